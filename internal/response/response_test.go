package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/proctor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   ErrCode
	}{
		{proctor.ErrNotActive, http.StatusConflict, ErrSessionNotActive},
		{fmt.Errorf("dispatch: %w", proctor.ErrSessionClosed), http.StatusGone, ErrSessionClosed},
		{proctor.ErrOptionOutOfRange, http.StatusUnprocessableEntity, ErrOptionOutOfRange},
		{errors.New("boom"), http.StatusInternalServerError, ErrInternal},
	}
	for _, tt := range tests {
		status, code := FromError(tt.err)
		assert.Equal(t, tt.status, status, tt.err.Error())
		assert.Equal(t, tt.code, code, tt.err.Error())
	}
}

func TestFailEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(ContextKeyRequestID, "req-1")

	FailWithError(c, proctor.ErrSessionClosed)

	require.Equal(t, http.StatusGone, w.Code)
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Error)
	assert.Equal(t, ErrSessionClosed, body.Error.Code)
	assert.Equal(t, GetMessage(ErrSessionClosed), body.Error.Message)
	assert.Equal(t, "req-1", body.Metadata.RequestID)
}

func TestRequestIDMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware(zerolog.Nop()))
	r.GET("/x", func(c *gin.Context) { Success(c, http.StatusOK, gin.H{"ok": true}) })

	const supplied = "0b6f6f5e-1f1c-4a57-9a53-3c1f1b9f7e21"
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", supplied)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, supplied, w.Header().Get("X-Request-ID"))
	var body Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, supplied, body.Metadata.RequestID)

	// Non-UUID values are replaced rather than echoed back.
	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "<script>")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	_, err := uuid.Parse(w.Header().Get("X-Request-ID"))
	assert.NoError(t, err)
}
