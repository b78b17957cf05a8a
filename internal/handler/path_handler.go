package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/hitoshi/pinmap/internal/middleware"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/path"
)

// PathServiceInterface は経路ハンドラーが必要とするサービスインターフェース。
type PathServiceInterface interface {
	// List は全経路を作成日時の新しい順に取得する。
	List(ctx context.Context) ([]*model.Path, error)
	// Create は新しい経路を作成する。
	Create(ctx context.Context, input path.CreateInput, identity *model.Identity) (*model.Path, error)
	// Update は既存経路を部分更新する。
	Update(ctx context.Context, id int64, input path.UpdateInput, identity *model.Identity) (*model.Path, error)
	// Delete は経路を削除する。
	Delete(ctx context.Context, id int64, identity *model.Identity) error
}

// PathCreationRecorder は経路作成メトリクスの記録インターフェース。
type PathCreationRecorder interface {
	RecordPathCreated()
}

// PathHandler は経路管理のHTTPハンドラー。
type PathHandler struct {
	service  PathServiceInterface
	recorder PathCreationRecorder
}

// NewPathHandler はPathHandlerを生成する。recorderはnil可。
func NewPathHandler(service PathServiceInterface, recorder PathCreationRecorder) *PathHandler {
	return &PathHandler{
		service:  service,
		recorder: recorder,
	}
}

// createPathRequest は経路作成リクエストのボディ。
// linesは座標点の形式が複数許容されるため生のJSONとして受け取る。
type createPathRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Lines       json.RawMessage `json:"lines"`
}

// updatePathRequest は経路部分更新リクエストのボディ。
// 省略されたフィールドは既存値を保持する。
type updatePathRequest struct {
	Name        *string         `json:"name"`
	Description *string         `json:"description"`
	Lines       json.RawMessage `json:"lines"`
}

// pathResponse は経路情報のAPIレスポンス。
type pathResponse struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Lines       []model.Polyline `json:"lines"`
	OwnerID     string           `json:"owner_id"`
	OwnerName   string           `json:"owner_name"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// ListPaths は全経路の一覧を返す。認証不要。
// GET /paths
func (h *PathHandler) ListPaths(w http.ResponseWriter, r *http.Request) {
	paths, err := h.service.List(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]pathResponse, 0, len(paths))
	for _, p := range paths {
		resp = append(resp, toPathResponse(p))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// CreatePath は新しい経路を作成する。
// POST /paths
func (h *PathHandler) CreatePath(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req createPathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	created, err := h.service.Create(r.Context(), path.CreateInput{
		Name:        req.Name,
		Description: req.Description,
		Lines:       req.Lines,
	}, identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if h.recorder != nil {
		h.recorder.RecordPathCreated()
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPathResponse(created))
}

// UpdatePath は既存経路を部分更新する。所有者または管理者のみ。
// PUT /paths/{id}
func (h *PathHandler) UpdatePath(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id, ok := parseIDParam(w, r, "PATH_NOT_FOUND")
	if !ok {
		return
	}

	var req updatePathRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError())
		return
	}

	updated, err := h.service.Update(r.Context(), id, path.UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Lines:       req.Lines,
	}, identity)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPathResponse(updated))
}

// DeletePath は経路を削除する。所有者または管理者のみ。
// DELETE /paths/{id}
func (h *PathHandler) DeletePath(w http.ResponseWriter, r *http.Request) {
	identity, err := middleware.IdentityFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	id, ok := parseIDParam(w, r, "PATH_NOT_FOUND")
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id, identity); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// toPathResponse はmodel.PathからAPIレスポンスに変換する。
func toPathResponse(p *model.Path) pathResponse {
	lines := p.Lines
	if lines == nil {
		lines = []model.Polyline{}
	}
	return pathResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Lines:       lines,
		OwnerID:     p.OwnerExternalID,
		OwnerName:   p.OwnerDisplayName,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
