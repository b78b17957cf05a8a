// Package pin はピン注釈管理のドメインロジックを提供する。
package pin

import (
	"context"
	"fmt"

	"github.com/hitoshi/pinmap/internal/authz"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/repository"
	"github.com/hitoshi/pinmap/internal/security"
)

// CreateInput はピン作成の入力。
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Lat         *float64
	Lng         *float64
}

// UpdateInput はピン部分更新の入力。
// nilのフィールドは変更せず、既存の値を維持する。
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	Lat         *float64
	Lng         *float64
}

// Service はピン管理のサービス層。
// 入力検証、サニタイズ、所有者・管理者の認可判定を行う。
type Service struct {
	repo      repository.PinRepository
	policy    *authz.Policy
	sanitizer security.TextSanitizerService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(repo repository.PinRepository, policy *authz.Policy, sanitizer security.TextSanitizerService) *Service {
	return &Service{
		repo:      repo,
		policy:    policy,
		sanitizer: sanitizer,
	}
}

// List は全ピンを作成日時の降順で返す。認証は不要。
func (s *Service) List(ctx context.Context) ([]*model.Pin, error) {
	pins, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("ピン一覧の取得に失敗しました: %w", err)
	}
	return pins, nil
}

// Create はピンを作成する。
// 所有者情報は呼び出し元のidentityから設定され、以降変更されない。
func (s *Service) Create(ctx context.Context, input CreateInput, identity *model.Identity) (*model.Pin, error) {
	title := s.sanitizer.Sanitize(input.Title)
	category := s.sanitizer.Sanitize(input.Category)

	if title == "" {
		return nil, model.NewValidationError("titleは必須です")
	}
	if category == "" {
		return nil, model.NewValidationError("categoryは必須です")
	}
	if input.Lat == nil || input.Lng == nil {
		return nil, model.NewValidationError("latとlngは必須です")
	}

	pin := &model.Pin{
		Title:            title,
		Description:      s.sanitizer.Sanitize(input.Description),
		Category:         category,
		Lat:              *input.Lat,
		Lng:              *input.Lng,
		OwnerExternalID:  identity.ExternalID,
		OwnerDisplayName: identity.DisplayName,
	}

	if err := s.repo.Create(ctx, pin); err != nil {
		return nil, fmt.Errorf("ピンの作成に失敗しました: %w", err)
	}
	return pin, nil
}

// Update はピンを部分更新する。
// 所有者または管理者のみ実行できる。owner_*とcreated_atは変更されない。
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, identity *model.Identity) (*model.Pin, error) {
	pin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("ピンの取得に失敗しました: %w", err)
	}
	if pin == nil {
		return nil, model.NewPinNotFoundError(id)
	}

	if !s.policy.CanMutate(pin.OwnerExternalID, identity) {
		return nil, model.NewForbiddenError()
	}

	if input.Title != nil {
		title := s.sanitizer.Sanitize(*input.Title)
		if title == "" {
			return nil, model.NewValidationError("titleを空にはできません")
		}
		pin.Title = title
	}
	if input.Description != nil {
		pin.Description = s.sanitizer.Sanitize(*input.Description)
	}
	if input.Category != nil {
		category := s.sanitizer.Sanitize(*input.Category)
		if category == "" {
			return nil, model.NewValidationError("categoryを空にはできません")
		}
		pin.Category = category
	}
	if input.Lat != nil {
		pin.Lat = *input.Lat
	}
	if input.Lng != nil {
		pin.Lng = *input.Lng
	}

	if err := s.repo.Update(ctx, pin); err != nil {
		return nil, fmt.Errorf("ピンの更新に失敗しました: %w", err)
	}
	return pin, nil
}

// Delete はピンを削除する。所有者または管理者のみ実行できる。
// 同じIDの2回目の削除はNotFoundになる。
func (s *Service) Delete(ctx context.Context, id int64, identity *model.Identity) error {
	pin, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ピンの取得に失敗しました: %w", err)
	}
	if pin == nil {
		return model.NewPinNotFoundError(id)
	}

	if !s.policy.CanMutate(pin.OwnerExternalID, identity) {
		return model.NewForbiddenError()
	}

	deleted, err := s.repo.DeleteByID(ctx, id)
	if err != nil {
		return fmt.Errorf("ピンの削除に失敗しました: %w", err)
	}
	if !deleted {
		return model.NewPinNotFoundError(id)
	}
	return nil
}

// DeleteAll は全ピンを削除し、削除件数を返す。管理者のみ実行できる。
func (s *Service) DeleteAll(ctx context.Context, identity *model.Identity) (int64, error) {
	if !s.policy.IsAdmin(identity) {
		return 0, model.NewForbiddenError()
	}

	count, err := s.repo.DeleteAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("全ピンの削除に失敗しました: %w", err)
	}
	return count, nil
}
