package apiresponses

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func respond(t *testing.T, handler gin.HandlerFunc) (*httptest.ResponseRecorder, APIError) {
	t.Helper()
	w := httptest.NewRecorder()
	ctx, _ := gin.CreateTestContext(w)
	ctx.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	handler(ctx)

	var body APIError
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestRespondNotFound(t *testing.T) {
	w, body := respond(t, func(c *gin.Context) {
		RespondNotFound(c, "instance wf-1 is not pending")
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "instance wf-1 is not pending", body.Error)
	assert.Equal(t, "NOT_FOUND", body.Code)
}

func TestRespondBadRequest(t *testing.T) {
	w, body := respond(t, func(c *gin.Context) {
		RespondBadRequest(c, "unknown reminder type")
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "BAD_REQUEST", body.Code)
}

func TestRespondConflict(t *testing.T) {
	w, body := respond(t, func(c *gin.Context) {
		RespondConflict(c, "a run is already in progress")
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "CONFLICT", body.Code)
}

func TestRespondBadGatewayDefaultsMessage(t *testing.T) {
	w, body := respond(t, func(c *gin.Context) {
		RespondBadGateway(c, "")
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "bad gateway", body.Error)
}

func TestRespondInternalErrorSanitizes(t *testing.T) {
	log := zap.NewNop().Sugar()
	w, body := respond(t, func(c *gin.Context) {
		RespondInternalError(c, "trigger run", errors.New("redis: connection refused"), log)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "failed to trigger run", body.Error)
	assert.NotContains(t, body.Error, "redis")
}
