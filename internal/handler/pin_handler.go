// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pinmap/internal/middleware"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/pin"
)

// PinServiceInterface はピンハンドラーが必要とするサービスインターフェース。
type PinServiceInterface interface {
	// List は全ピンを作成日時の新しい順に取得する。
	List(ctx context.Context) ([]*model.Pin, error)
	// Create は新しいピンを作成する。
	Create(ctx context.Context, input pin.CreateInput, identity *model.Identity) (*model.Pin, error)
	// Update は既存ピンを部分更新する。
	Update(ctx context.Context, id int64, input pin.UpdateInput, identity *model.Identity) (*model.Pin, error)
	// Delete はピンを削除する。
	Delete(ctx context.Context, id int64, identity *model.Identity) error
	// DeleteAll は全ピンを削除し、削除件数を返す。管理者専用。
	DeleteAll(ctx context.Context, identity *model.Identity) (int64, error)
}

// PinCreationRecorder はピン作成メトリクスの記録インターフェース。
type PinCreationRecorder interface {
	RecordPinCreated()
}

// PinHandler はピン管理のHTTPハンドラー。
type PinHandler struct {
	service  PinServiceInterface
	recorder PinCreationRecorder
}

// NewPinHandler はPinHandlerを生成する。recorderはnil可。
func NewPinHandler(service PinServiceInterface, recorder PinCreationRecorder) *PinHandler {
	return &PinHandler{
		service:  service,
		recorder: recorder,
	}
}

// createPinRequest はピン作成リクエストのボディ。
type createPinRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// updatePinRequest はピン部分更新リクエストのボディ。
// 省略されたフィールドは既存値を保持する。
type updatePinRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Category    *string  `json:"category"`
	Lat         *float64 `json:"lat"`
	Lng         *float64 `json:"lng"`
}

// pinResponse はピン情報のAPIレスポンス。
type pinResponse struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	OwnerID     string    `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	CreatedAt   time.Time `json:"created_at"`
}

// deleteAllResponse は全削除レスポンス。
type deleteAllResponse struct {
	Deleted int64 `json:"deleted"`
}

// ListPins は全ピンの一覧を返す。認証不要。
// GET /pins
func (h *PinHandler) ListPins(w http.ResponseWriter, r *http.Request) {
	pins, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]pinResponse, 0, len(pins))
	for _, p := range pins {
		resp = append(resp, toPinResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreatePin は新しいピンを作成する。
// POST /pins
func (h *PinHandler) CreatePin(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createPinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), pin.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Lat:         req.Lat,
		Lng:         req.Lng,
	}, identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordPinCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPinResponse(created))
}

// UpdatePin は既存ピンを部分更新する。所有者または管理者のみ。
// PUT /pins/{id}
func (h *PinHandler) UpdatePin(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id, ok := parseIDParam(w, r, "PIN_NOT_FOUND")
	if !ok {
		return
	}

	var req updatePinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), id, pin.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Lat:         req.Lat,
		Lng:         req.Lng,
	}, identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPinResponse(updated))
}

// DeletePin はピンを削除する。所有者または管理者のみ。
// DELETE /pins/{id}
func (h *PinHandler) DeletePin(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id, ok := parseIDParam(w, r, "PIN_NOT_FOUND")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, identity); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DeleteAllPins は全ピンを削除する。管理者専用。
// DELETE /pins/delete_all
func (h *PinHandler) DeleteAllPins(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	count, err := h.service.DeleteAll(r.Context(), identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	slog.Info("all pins deleted",
		slog.String("admin_id", identity.ExternalID),
		slog.Int64("count", count),
	)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(deleteAllResponse{Deleted: count})
}

// --- ヘルパー関数 ---

// toPinResponse はmodel.PinからAPIレスポンスに変換する。
func toPinResponse(p *model.Pin) pinResponse {
	return pinResponse{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Category:    p.Category,
		Lat:         p.Lat,
		Lng:         p.Lng,
		OwnerID:     p.OwnerExternalID,
		OwnerName:   p.OwnerDisplayName,
		CreatedAt:   p.CreatedAt,
	}
}

// parseIDParam はURLパラメータidを数値に解析する。
// 解析できない場合は404を書き込みfalseを返す。
func parseIDParam(w http.ResponseWriter, r *http.Request, notFoundCode string) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		var apiErr *model.APIError
		if notFoundCode == "PATH_NOT_FOUND" {
			apiErr = model.NewPathNotFoundError(0)
		} else {
			apiErr = model.NewPinNotFoundError(0)
		}
		writeAPIErrorResponse(w, http.StatusNotFound, apiErr)
		return 0, false
	}
	return id, true
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized, model.ErrCodeTokenExpired:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodePinNotFound, model.ErrCodePathNotFound:
		return http.StatusNotFound
	case model.ErrCodeValidation, model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
