package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/xerrors"
)

type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Detail string          `json:"detail"`
	Data   json.RawMessage `json:"data"`
}

func record(t *testing.T, fn func(c *gin.Context)) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)
	var body envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

type statusErr struct{}

func (statusErr) Error() string   { return "teapot" }
func (statusErr) HTTPStatus() int { return http.StatusTeapot }

func TestSuccess(t *testing.T) {
	w, body := record(t, func(c *gin.Context) { Success(c, gin.H{"price": 1.5}) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, body.Code)
	assert.JSONEq(t, `{"price":1.5}`, string(body.Data))
}

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   int
		wantMsg    string
	}{
		{"catalog", xerrors.ErrSpotNotPositive.WithDetail("S0=-1"), http.StatusBadRequest, 400201, "S0 must be positive"},
		{"wrapped", fmt.Errorf("open: %w", xerrors.ErrUnknownHandle), http.StatusNotFound, 404101, "unknown pricer handle"},
		{"provider", statusErr{}, http.StatusTeapot, http.StatusTeapot, "teapot"},
		{"plain", errors.New("boom"), http.StatusInternalServerError, http.StatusInternalServerError, "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := record(t, func(c *gin.Context) { Error(c, tt.err) })
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, body.Code)
			assert.Equal(t, tt.wantMsg, body.Msg)
		})
	}
}

func TestErrorKeepsDetail(t *testing.T) {
	_, body := record(t, func(c *gin.Context) { Error(c, xerrors.ErrStepTooSmall.WithDetail("h=0.001")) })
	assert.Equal(t, "h=0.001", body.Detail)
}
