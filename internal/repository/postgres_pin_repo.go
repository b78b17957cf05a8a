package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pinmap/internal/model"
)

// PostgresPinRepo はPostgreSQLを使用したピンリポジトリ。
type PostgresPinRepo struct {
	db *sql.DB
}

// NewPostgresPinRepo はPostgresPinRepoを生成する。
func NewPostgresPinRepo(db *sql.DB) *PostgresPinRepo {
	return &PostgresPinRepo{db: db}
}

// List は全ピンを作成日時の降順で取得する。
func (r *PostgresPinRepo) List(ctx context.Context) ([]*model.Pin, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, category, lat, lng,
		        owner_external_id, owner_display_name, created_at
		 FROM pins ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("ピン一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var pins []*model.Pin
	for rows.Next() {
		pin := &model.Pin{}
		var description sql.NullString

		if err := rows.Scan(
			&pin.ID, &pin.Title, &description, &pin.Category,
			&pin.Lat, &pin.Lng,
			&pin.OwnerExternalID, &pin.OwnerDisplayName, &pin.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("ピンの読み取りに失敗しました: %w", err)
		}

		pin.Description = nullStringValue(description)
		pins = append(pins, pin)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ピン一覧の走査に失敗しました: %w", err)
	}

	return pins, nil
}

// FindByID は指定IDのピンを取得する。見つからない場合はnilを返す。
func (r *PostgresPinRepo) FindByID(ctx context.Context, id int64) (*model.Pin, error) {
	pin := &model.Pin{}
	var description sql.NullString

	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, description, category, lat, lng,
		        owner_external_id, owner_display_name, created_at
		 FROM pins WHERE id = $1`,
		id,
	).Scan(
		&pin.ID, &pin.Title, &description, &pin.Category,
		&pin.Lat, &pin.Lng,
		&pin.OwnerExternalID, &pin.OwnerDisplayName, &pin.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("ピンの取得に失敗しました: %w", err)
	}

	pin.Description = nullStringValue(description)
	return pin, nil
}

// Create はピンを作成し、採番されたIDと作成日時をpinに書き戻す。
func (r *PostgresPinRepo) Create(ctx context.Context, pin *model.Pin) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO pins (title, description, category, lat, lng,
		                   owner_external_id, owner_display_name)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		pin.Title, nullString(pin.Description), pin.Category,
		pin.Lat, pin.Lng,
		pin.OwnerExternalID, pin.OwnerDisplayName,
	).Scan(&pin.ID, &pin.CreatedAt)
	if err != nil {
		return fmt.Errorf("ピンの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はピンのtitle、description、category、lat、lngを更新する。
// owner_*とcreated_atは変更しない。
func (r *PostgresPinRepo) Update(ctx context.Context, pin *model.Pin) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE pins SET
		    title = $2, description = $3, category = $4, lat = $5, lng = $6
		 WHERE id = $1`,
		pin.ID, pin.Title, nullString(pin.Description), pin.Category,
		pin.Lat, pin.Lng,
	)
	if err != nil {
		return fmt.Errorf("ピンの更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのピンを削除する。
func (r *PostgresPinRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pins WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("ピンの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// DeleteAll は全ピンを削除し、削除件数を返す。
func (r *PostgresPinRepo) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM pins`)
	if err != nil {
		return 0, fmt.Errorf("全ピンの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return affected, nil
}

// nullString は空文字列をsql.NullStringに変換する。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はsql.NullStringから文字列を取得する。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// compile-time interface check
var _ PinRepository = (*PostgresPinRepo)(nil)
