// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/pinmap/internal/model"
)

// PinRepository はピンデータの永続化インターフェース。
type PinRepository interface {
	// List は全ピンを作成日時の降順で取得する。
	List(ctx context.Context) ([]*model.Pin, error)

	// FindByID は指定IDのピンを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Pin, error)

	// Create はピンを作成し、採番されたIDと作成日時をpinに書き戻す。
	Create(ctx context.Context, pin *model.Pin) error

	// Update はピンのtitle、description、category、lat、lngを更新する。
	// owner_*とcreated_atは変更しない。
	Update(ctx context.Context, pin *model.Pin) error

	// DeleteByID は指定IDのピンを削除する。
	// 削除された場合はtrue、該当行がない場合はfalseを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)

	// DeleteAll は全ピンを削除し、削除件数を返す。
	DeleteAll(ctx context.Context) (int64, error)
}

// PathRepository はパスデータの永続化インターフェース。
type PathRepository interface {
	// List は全パスを作成日時の降順で取得する。
	List(ctx context.Context) ([]*model.Path, error)

	// FindByID は指定IDのパスを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id int64) (*model.Path, error)

	// Create はパスを作成し、採番されたIDと作成・更新日時をpathに書き戻す。
	Create(ctx context.Context, path *model.Path) error

	// Update はパスのname、description、lines、updated_atを更新する。
	// owner_*とcreated_atは変更しない。
	Update(ctx context.Context, path *model.Path) error

	// DeleteByID は指定IDのパスを削除する。
	// 削除された場合はtrue、該当行がない場合はfalseを返す。
	DeleteByID(ctx context.Context, id int64) (bool, error)
}
