package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pinmap/internal/model"
	"github.com/hitoshi/pinmap/internal/path"
)

// mockPathService はPathServiceInterfaceのテスト用モック。
type mockPathService struct {
	listFunc   func(ctx context.Context) ([]*model.Path, error)
	createFunc func(ctx context.Context, input path.CreateInput, identity *model.Identity) (*model.Path, error)
	updateFunc func(ctx context.Context, id int64, input path.UpdateInput, identity *model.Identity) (*model.Path, error)
	deleteFunc func(ctx context.Context, id int64, identity *model.Identity) error
}

func (m *mockPathService) List(ctx context.Context) ([]*model.Path, error) {
	return m.listFunc(ctx)
}

func (m *mockPathService) Create(ctx context.Context, input path.CreateInput, identity *model.Identity) (*model.Path, error) {
	return m.createFunc(ctx, input, identity)
}

func (m *mockPathService) Update(ctx context.Context, id int64, input path.UpdateInput, identity *model.Identity) (*model.Path, error) {
	return m.updateFunc(ctx, id, input, identity)
}

func (m *mockPathService) Delete(ctx context.Context, id int64, identity *model.Identity) error {
	return m.deleteFunc(ctx, id, identity)
}

var _ PathServiceInterface = (*mockPathService)(nil)

// pathTestRouter は経路ハンドラーのルーティングを組み立てる。
func pathTestRouter(h *PathHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/paths", h.ListPaths)
	r.Post("/paths", h.CreatePath)
	r.Put("/paths/{id}", h.UpdatePath)
	r.Delete("/paths/{id}", h.DeletePath)
	return r
}

func samplePath() *model.Path {
	return &model.Path{
		ID:          1,
		Name:        "散歩コース",
		Description: "川沿いのルート",
		Lines: []model.Polyline{
			{{Lat: 35.0, Lng: 139.0}, {Lat: 35.1, Lng: 139.1}},
		},
		OwnerExternalID:  "user-1",
		OwnerDisplayName: "alice",
		CreatedAt:        time.Now(),
		UpdatedAt:        time.Now(),
	}
}

func TestListPaths_ReturnsPaths(t *testing.T) {
	svc := &mockPathService{
		listFunc: func(ctx context.Context) ([]*model.Path, error) {
			return []*model.Path{samplePath()}, nil
		},
	}
	h := NewPathHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/paths", nil)
	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}

	var resp []pathResponse
	if err := json.NewDecoder(w.Result().Body).Decode(&resp); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if len(resp) != 1 {
		t.Fatalf("len = %d, want 1", len(resp))
	}
	if len(resp[0].Lines) != 1 || len(resp[0].Lines[0]) != 2 {
		t.Errorf("lines = %+v, want 1 polyline with 2 points", resp[0].Lines)
	}
}

func TestListPaths_Empty_ReturnsEmptyArray(t *testing.T) {
	svc := &mockPathService{
		listFunc: func(ctx context.Context) ([]*model.Path, error) {
			return nil, nil
		},
	}
	h := NewPathHandler(svc, nil)

	req := httptest.NewRequest(http.MethodGet, "/paths", nil)
	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, req)

	if got := w.Body.String(); got != "[]\n" {
		t.Errorf("body = %q, want []", got)
	}
}

func TestCreatePath_Success_Returns201(t *testing.T) {
	var gotInput path.CreateInput
	svc := &mockPathService{
		createFunc: func(ctx context.Context, input path.CreateInput, identity *model.Identity) (*model.Path, error) {
			gotInput = input
			p := samplePath()
			p.Name = input.Name
			return p, nil
		},
	}
	recorder := &countingRecorder{}
	h := NewPathHandler(svc, recorder)

	body := []byte(`{"name":"散歩コース","lines":[[{"lat":35.0,"lng":139.0},{"lat":35.1,"lng":139.1}]]}`)
	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, authedRequest(http.MethodPost, "/paths", body))

	if w.Result().StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body = %s", w.Result().StatusCode, http.StatusCreated, w.Body.String())
	}
	if gotInput.Name != "散歩コース" {
		t.Errorf("name = %q, want 散歩コース", gotInput.Name)
	}
	if len(gotInput.Lines) == 0 {
		t.Error("lines should be passed through as raw JSON")
	}
	if recorder.paths != 1 {
		t.Errorf("path creation metric = %d, want 1", recorder.paths)
	}
}

func TestCreatePath_ValidationError_Returns400(t *testing.T) {
	svc := &mockPathService{
		createFunc: func(ctx context.Context, input path.CreateInput, identity *model.Identity) (*model.Path, error) {
			return nil, model.NewValidationError("linesは2点以上の線分が必要です")
		},
	}
	h := NewPathHandler(svc, nil)

	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, authedRequest(http.MethodPost, "/paths", []byte(`{"name":"x","lines":[[]]}`)))

	if w.Result().StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusBadRequest)
	}
	assertErrorCode(t, w, model.ErrCodeValidation)
}

func TestCreatePath_NoIdentity_Returns401(t *testing.T) {
	svc := &mockPathService{}
	h := NewPathHandler(svc, nil)

	req := httptest.NewRequest(http.MethodPost, "/paths", nil)
	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, req)

	if w.Result().StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusUnauthorized)
	}
}

func TestUpdatePath_PartialUpdate_OmitsLines(t *testing.T) {
	svc := &mockPathService{
		updateFunc: func(ctx context.Context, id int64, input path.UpdateInput, identity *model.Identity) (*model.Path, error) {
			if input.Name == nil || *input.Name != "新ルート" {
				t.Errorf("name = %v, want 新ルート", input.Name)
			}
			if input.Lines != nil {
				t.Error("lines should be nil when omitted")
			}
			p := samplePath()
			p.Name = *input.Name
			return p, nil
		},
	}
	h := NewPathHandler(svc, nil)

	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, authedRequest(http.MethodPut, "/paths/1", []byte(`{"name":"新ルート"}`)))

	if w.Result().StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Result().StatusCode, http.StatusOK)
	}
}

func TestUpdatePath_NotFound_Returns404(t *testing.T) {
	svc := &mockPathService{
		updateFunc: func(ctx context.Context, id int64, input path.UpdateInput, identity *model.Identity) (*model.Path, error) {
			return nil, model.NewPathNotFoundError(id)
		},
	}
	h := NewPathHandler(svc, nil)

	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, authedRequest(http.MethodPut, "/paths/999", []byte(`{"name":"x"}`)))

	if w.Result().StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNotFound)
	}
	assertErrorCode(t, w, model.ErrCodePathNotFound)
}

func TestDeletePath_Forbidden_Returns403(t *testing.T) {
	svc := &mockPathService{
		deleteFunc: func(ctx context.Context, id int64, identity *model.Identity) error {
			return model.NewForbiddenError()
		},
	}
	h := NewPathHandler(svc, nil)

	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, authedRequest(http.MethodDelete, "/paths/1", nil))

	if w.Result().StatusCode != http.StatusForbidden {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusForbidden)
	}
}

func TestDeletePath_Success_Returns204(t *testing.T) {
	svc := &mockPathService{
		deleteFunc: func(ctx context.Context, id int64, identity *model.Identity) error {
			return nil
		},
	}
	h := NewPathHandler(svc, nil)

	w := httptest.NewRecorder()
	pathTestRouter(h).ServeHTTP(w, authedRequest(http.MethodDelete, "/paths/1", nil))

	if w.Result().StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want %d", w.Result().StatusCode, http.StatusNoContent)
	}
}
