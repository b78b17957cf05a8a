package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/pinmap/internal/model"
)

// PostgresPathRepo はPostgreSQLを使用したパスリポジトリ。
// linesはJSONBカラムに正規化済みの構造で保存する。
type PostgresPathRepo struct {
	db *sql.DB
}

// NewPostgresPathRepo はPostgresPathRepoを生成する。
func NewPostgresPathRepo(db *sql.DB) *PostgresPathRepo {
	return &PostgresPathRepo{db: db}
}

// List は全パスを作成日時の降順で取得する。
func (r *PostgresPathRepo) List(ctx context.Context) ([]*model.Path, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, lines,
		        owner_external_id, owner_display_name, created_at, updated_at
		 FROM paths ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("パス一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var paths []*model.Path
	for rows.Next() {
		path, err := scanPath(rows.Scan)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("パス一覧の走査に失敗しました: %w", err)
	}

	return paths, nil
}

// FindByID は指定IDのパスを取得する。見つからない場合はnilを返す。
func (r *PostgresPathRepo) FindByID(ctx context.Context, id int64) (*model.Path, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, lines,
		        owner_external_id, owner_display_name, created_at, updated_at
		 FROM paths WHERE id = $1`,
		id,
	)

	path, err := scanPath(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return path, nil
}

// Create はパスを作成し、採番されたIDと作成・更新日時をpathに書き戻す。
func (r *PostgresPathRepo) Create(ctx context.Context, path *model.Path) error {
	linesJSON, err := json.Marshal(path.Lines)
	if err != nil {
		return fmt.Errorf("linesのシリアライズに失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`INSERT INTO paths (name, description, lines,
		                    owner_external_id, owner_display_name)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		path.Name, nullString(path.Description), linesJSON,
		path.OwnerExternalID, path.OwnerDisplayName,
	).Scan(&path.ID, &path.CreatedAt, &path.UpdatedAt)
	if err != nil {
		return fmt.Errorf("パスの作成に失敗しました: %w", err)
	}
	return nil
}

// Update はパスのname、description、lines、updated_atを更新する。
// owner_*とcreated_atは変更しない。
func (r *PostgresPathRepo) Update(ctx context.Context, path *model.Path) error {
	linesJSON, err := json.Marshal(path.Lines)
	if err != nil {
		return fmt.Errorf("linesのシリアライズに失敗しました: %w", err)
	}

	err = r.db.QueryRowContext(ctx,
		`UPDATE paths SET
		    name = $2, description = $3, lines = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING updated_at`,
		path.ID, path.Name, nullString(path.Description), linesJSON,
	).Scan(&path.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("パスの更新対象が見つかりません: id=%d", path.ID)
	}
	if err != nil {
		return fmt.Errorf("パスの更新に失敗しました: %w", err)
	}
	return nil
}

// DeleteByID は指定IDのパスを削除する。
func (r *PostgresPathRepo) DeleteByID(ctx context.Context, id int64) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM paths WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("パスの削除に失敗しました: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("削除件数の取得に失敗しました: %w", err)
	}
	return affected > 0, nil
}

// scanPath は1行分のパスを読み取る。
func scanPath(scan func(dest ...any) error) (*model.Path, error) {
	path := &model.Path{}
	var description sql.NullString
	var linesJSON []byte

	err := scan(
		&path.ID, &path.Name, &description, &linesJSON,
		&path.OwnerExternalID, &path.OwnerDisplayName,
		&path.CreatedAt, &path.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("パスの読み取りに失敗しました: %w", err)
	}

	path.Description = nullStringValue(description)
	if err := json.Unmarshal(linesJSON, &path.Lines); err != nil {
		return nil, fmt.Errorf("linesのデシリアライズに失敗しました: %w", err)
	}
	return path, nil
}

// compile-time interface check
var _ PathRepository = (*PostgresPathRepo)(nil)
