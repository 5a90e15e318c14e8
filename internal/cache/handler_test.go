package cache

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fabriqd/fabriq/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubReader backs the handler with a fixed set of cached results.
type stubReader struct {
	results     map[string]map[string]any
	readErr     error
	invalidated []string
}

func (s *stubReader) Get(_ context.Context, kind, id string, dest any) (bool, error) {
	if s.readErr != nil {
		return false, s.readErr
	}
	result, ok := s.results[kind+":"+id]
	if !ok {
		return false, nil
	}
	raw, _ := json.Marshal(result)
	return true, json.Unmarshal(raw, dest)
}

func (s *stubReader) Invalidate(_ context.Context, kind, id string) error {
	if s.readErr != nil {
		return s.readErr
	}
	s.invalidated = append(s.invalidated, kind+":"+id)
	return nil
}

func newResultsRouter(reader ResultReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.ErrorHandler())

	h := NewResultsHandler(reader)
	r.GET("/results/:kind/:id", h.Get)
	r.DELETE("/results/:kind/:id", h.Invalidate)
	return r
}

func TestResultsHandler_Get(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		reader     *stubReader
		wantStatus int
	}{
		{
			name: "cached design result",
			path: "/results/design/d-1",
			reader: &stubReader{results: map[string]map[string]any{
				"design:d-1": {"design_id": "d-1", "urls": []any{"https://cdn/0.png"}},
			}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "cache miss",
			path:       "/results/render/r-1",
			reader:     &stubReader{},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "unknown kind",
			path:       "/results/orders/o-1",
			reader:     &stubReader{},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "cache unavailable",
			path:       "/results/design/d-1",
			reader:     &stubReader{readErr: errors.New("redis down")},
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newResultsRouter(tt.reader)

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			r.ServeHTTP(w, req)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusOK {
				var result map[string]any
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
				assert.Equal(t, "d-1", result["design_id"])
			}
		})
	}
}

func TestResultsHandler_Invalidate(t *testing.T) {
	reader := &stubReader{}
	r := newResultsRouter(reader)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/results/design/d-1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, []string{"design:d-1"}, reader.invalidated)
}

func TestResultsHandler_Invalidate_UnknownKind(t *testing.T) {
	reader := &stubReader{}
	r := newResultsRouter(reader)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodDelete, "/results/jobs/j-1", nil)
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, reader.invalidated)
}
