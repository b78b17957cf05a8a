// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, map, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeTokenExpired   = "TOKEN_EXPIRED"
	ErrCodeForbidden      = "FORBIDDEN"
	ErrCodePinNotFound    = "PIN_NOT_FOUND"
	ErrCodePathNotFound   = "PATH_NOT_FOUND"
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeInvalidRequest = "INVALID_REQUEST"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewTokenExpiredError はトークン期限切れエラーを生成する。
func NewTokenExpiredError() *APIError {
	return &APIError{
		Code:     ErrCodeTokenExpired,
		Message:  "セッションの有効期限が切れています。",
		Category: "auth",
		Action:   "再度ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
// 所有者でも管理者でもない認証済みユーザーによる変更操作で使用する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "自分が作成した注釈のみ変更できます。",
	}
}

// NewPinNotFoundError はピン未検出エラーを生成する。
func NewPinNotFoundError(pinID int64) *APIError {
	return &APIError{
		Code:     ErrCodePinNotFound,
		Message:  fmt.Sprintf("指定されたピンが見つかりません: %d", pinID),
		Category: "map",
		Action:   "ピンIDを確認してください。",
	}
}

// NewPathNotFoundError はパス未検出エラーを生成する。
func NewPathNotFoundError(pathID int64) *APIError {
	return &APIError{
		Code:     ErrCodePathNotFound,
		Message:  fmt.Sprintf("指定されたパスが見つかりません: %d", pathID),
		Category: "map",
		Action:   "パスIDを確認してください。",
	}
}

// NewValidationError は入力不正エラーを生成する。
// reasonには最初に検出した問題を具体的に記述する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("入力が不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidRequestError はリクエストボディ解析失敗エラーを生成する。
func NewInvalidRequestError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	}
}
