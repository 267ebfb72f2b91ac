package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptvault/internal/contextutils"
	"promptvault/internal/services"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestWriteSuccess(t *testing.T) {
	b := NewBuilder(nil, zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/badges", nil)
	req = req.WithContext(contextutils.WithRequestID(req.Context(), "req-1"))
	rec := httptest.NewRecorder()

	b.WriteSuccess(rec, req, map[string]int{"count": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json; charset=utf-8", rec.Header().Get("Content-Type"))

	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Equal(t, "v1", resp.Version)
	assert.Nil(t, resp.Error)
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
		wantMsg    string
		wantFields int
	}{
		{
			name:       "not found",
			err:        services.EntityNotFoundError("user", int64(9)),
			wantStatus: http.StatusNotFound,
			wantType:   "NOT_FOUND",
			wantMsg:    "user not found",
		},
		{
			name: "validation with fields",
			err: services.NewDetailedValidationError("invalid request", []services.FieldError{
				{Field: "rating", Message: "rating must be at most 5", Code: "MAX"},
			}),
			wantStatus: http.StatusBadRequest,
			wantType:   "VALIDATION_ERROR",
			wantMsg:    "invalid request",
			wantFields: 1,
		},
		{
			name:       "store outage",
			err:        services.NewServiceUnavailableError("activity store unavailable", errors.New("dial tcp: refused")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   "SERVICE_UNAVAILABLE",
			wantMsg:    "activity store unavailable",
		},
		{
			name:       "plain error is masked",
			err:        errors.New("pq: relation \"users\" does not exist"),
			wantStatus: http.StatusInternalServerError,
			wantType:   "INTERNAL_ERROR",
			wantMsg:    "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder(nil, zap.NewNop())
			rec := httptest.NewRecorder()
			b.WriteError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "no-cache, no-store, must-revalidate", rec.Header().Get("Cache-Control"))

			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantType, resp.Error.Type)
			assert.Equal(t, tt.wantMsg, resp.Error.Message)
			assert.Len(t, resp.Error.Fields, tt.wantFields)
			assert.NotContains(t, rec.Body.String(), "refused")
		})
	}
}
