package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openbooks/backend/internal/domain/shared"
	"github.com/openbooks/backend/internal/interfaces/http/dto"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name       string
		setup      func(*gin.Context)
		expectedID string
	}{
		{
			name: "from context",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-request-id")
			},
			expectedID: "ctx-request-id",
		},
		{
			name: "from header when context empty",
			setup: func(c *gin.Context) {
				c.Request.Header.Set("X-Request-ID", "header-request-id")
			},
			expectedID: "header-request-id",
		},
		{
			name:       "empty when not set",
			setup:      func(c *gin.Context) {},
			expectedID: "",
		},
		{
			name: "context takes precedence over header",
			setup: func(c *gin.Context) {
				c.Set("request_id", "ctx-id")
				c.Request.Header.Set("X-Request-ID", "header-id")
			},
			expectedID: "ctx-id",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)
			tt.setup(c)

			assert.Equal(t, tt.expectedID, getRequestID(c))
		})
	}
}

func TestBaseHandlerSuccess(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Success(c, map[string]string{"key": "value"})

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
}

func TestBaseHandlerSuccessWithMeta(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.SuccessWithMeta(c, []string{"a", "b"}, 45, 2, 10)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(45), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.Page)
	assert.Equal(t, 5, resp.Meta.TotalPages)
}

func TestBaseHandlerCreated(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	h.Created(c, map[string]string{"id": "123"})

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestBaseHandlerNoContent(t *testing.T) {
	h := &BaseHandler{}

	engine := gin.New()
	engine.DELETE("/test", func(c *gin.Context) {
		h.NoContent(c)
	})

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest("DELETE", "/test", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.Bytes())
}

func TestBaseHandlerBadRequest(t *testing.T) {
	h := &BaseHandler{}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)
	c.Set("request_id", "req-123")

	h.BadRequest(c, "Invalid payload")

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, dto.ErrCodeBadRequest, resp.Error.Code)
	assert.Equal(t, "req-123", resp.Error.RequestID)
}

func TestBaseHandlerHandleError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "not found",
			err:          shared.ErrNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  "NOT_FOUND",
		},
		{
			name:         "movement not found",
			err:          shared.ErrMovementNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  "MOVEMENT_NOT_FOUND",
		},
		{
			name:         "already exists",
			err:          shared.ErrAlreadyExists,
			expectedCode: http.StatusConflict,
			expectedErr:  "ALREADY_EXISTS",
		},
		{
			name:         "concurrent modification",
			err:          shared.ErrConcurrentModification,
			expectedCode: http.StatusConflict,
			expectedErr:  "CONCURRENT_MODIFICATION",
		},
		{
			name:         "already reversed",
			err:          shared.ErrAlreadyReversed,
			expectedCode: http.StatusConflict,
			expectedErr:  "ALREADY_REVERSED",
		},
		{
			name:         "validation",
			err:          shared.ErrValidation,
			expectedCode: http.StatusBadRequest,
			expectedErr:  "VALIDATION_ERROR",
		},
		{
			name:         "invalid transition",
			err:          shared.ErrInvalidTransition,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  "INVALID_TRANSITION",
		},
		{
			name:         "insufficient stock",
			err:          shared.ErrInsufficientStock,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  "INSUFFICIENT_STOCK",
		},
		{
			name:         "currency mismatch",
			err:          shared.ErrCurrencyMismatch,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  "CURRENCY_MISMATCH",
		},
		{
			name:         "unbalanced entry falls back to 500",
			err:          shared.ErrUnbalancedEntry,
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "UNBALANCED_ENTRY",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &BaseHandler{}
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/", nil)

			h.HandleError(c, tt.err)

			assert.Equal(t, tt.expectedCode, w.Code)

			var resp dto.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}

	t.Run("nil error writes nothing", func(t *testing.T) {
		h := &BaseHandler{}
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)

		h.HandleError(c, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.Bytes())
	})

	t.Run("standard error becomes internal", func(t *testing.T) {
		h := &BaseHandler{}
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)

		h.HandleError(c, assert.AnError)

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
		assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	})

	t.Run("wrapped domain error keeps its code", func(t *testing.T) {
		h := &BaseHandler{}
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)

		h.HandleError(c, fmt.Errorf("loading item: %w", shared.ErrNotFound))

		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "NOT_FOUND", resp.Error.Code)
	})
}

func TestParseUUIDParam(t *testing.T) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}

	_, ok := parseUUIDParam(c, "id")
	assert.False(t, ok)

	c.Params = gin.Params{{Key: "id", Value: "550e8400-e29b-41d4-a716-446655440000"}}
	id, ok := parseUUIDParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id.String())
}
