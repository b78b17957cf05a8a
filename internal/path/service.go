// Package path はパス注釈管理のドメインロジックを提供する。
package path

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hitoshi/pinmap/internal/authz"
	"github.com/hitoshi/pinmap/internal/geometry"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/repository"
	"github.com/hitoshi/pinmap/internal/security"
)

// CreateInput はパス作成の入力。
// Linesは生のJSONのまま受け取り、正規化を通してから保存する。
type CreateInput struct {
	Name        string
	Description string
	Lines       json.RawMessage
}

// UpdateInput はパス部分更新の入力。
// nilのフィールドは変更せず、既存の値を維持する。
type UpdateInput struct {
	Name        *string
	Description *string
	Lines       json.RawMessage
}

// Service はパス管理のサービス層。
// 入力検証、ジオメトリ正規化、所有者・管理者の認可判定を行う。
type Service struct {
	repo      repository.PathRepository
	policy    *authz.Policy
	sanitizer security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.PathRepository, policy *authz.Policy, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		repo:      repo,
		policy:    policy,
		sanitizer: sanitizer,
	}
}

// List は全パスを作成日時の降順で返す。認証は不要。
func (s *Service) List(ctx context.Context) ([]*model.Path, error) {
	paths, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("パス一覧の取得に失敗しました: %w", err)
	}
	return paths, nil
}

// Create はパスを作成する。
// linesはジオメトリ正規化に通し、違反があれば全体を失敗させる（部分書き込みなし）。
func (s *Service) Create(ctx context.Context, input CreateInput, identity *model.Identity) (*model.Path, error) {
	name := s.sanitizer.Sanitize(input.Name)
	if name == "" {
		return nil, model.NewValidationError("nameは必須です")
	}

	lines, err := geometry.NormalizeLines(input.Lines)
	if err != nil {
		return nil, err
	}

	path := &model.Path{
		Name:             name,
		Description:      s.sanitizer.Sanitize(input.Description),
		Lines:            lines,
		OwnerExternalID:  identity.ExternalID,
		OwnerDisplayName: identity.DisplayName,
	}

	if err := s.repo.Create(ctx, path); err != nil {
		return nil, fmt.Errorf("パスの作成に失敗しました: %w", err)
	}
	return path, nil
}

// Update はパスを部分更新する。
// 所有者または管理者のみ実行できる。linesが含まれる場合は再度正規化する。
// owner_*とcreated_atは変更されず、成功するたびにupdated_atが進む。
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, identity *model.Identity) (*model.Path, error) {
	path, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("パスの取得に失敗しました: %w", err)
	}
	if path == nil {
		return nil, model.NewPathNotFoundError(id)
	}

	if !s.policy.CanMutate(path.OwnerExternalID, identity) {
		return nil, model.NewForbiddenError()
	}

	if input.Name != nil {
		name := s.sanitizer.Sanitize(*input.Name)
		if name == "" {
			return nil, model.NewValidationError("nameを空にはできません")
		}
		path.Name = name
	}
	if input.Description != nil {
		path.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Lines != nil {
		lines, err := geometry.NormalizeLines(input.Lines)
		if err != nil {
			return nil, err
		}
		path.Lines = lines
	}

	if err := s.repo.Update(ctx, path); err != nil {
		return nil, fmt.Errorf("パスの更新に失敗しました: %w", err)
	}
	return path, nil
}

// Delete はパスを削除する。所有者または管理者のみ実行できる。
// 同じIDの2回目の削除はNotFoundになる。
func (s *Service) Delete(ctx context.Context, id int64, identity *model.Identity) error {
	path, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("パスの取得に失敗しました: %w", err)
	}
	if path == nil {
		return model.NewPathNotFoundError(id)
	}

	if !s.policy.CanMutate(path.OwnerExternalID, identity) {
		return model.NewForbiddenError()
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("パスの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewPathNotFoundError(id)
	}
	return nil
}
