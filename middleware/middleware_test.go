package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wyfcoding/lookback/contextx"
	"github.com/wyfcoding/lookback/idgen"
	"github.com/wyfcoding/lookback/limiter"
	"github.com/wyfcoding/lookback/metrics"
	"golang.org/x/time/rate"
)

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(mw...)
	return r
}

func do(r http.Handler, method, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimit(t *testing.T) {
	r := newEngine(RateLimit(limiter.NewLocalLimiter(rate.Every(time.Hour), 1)))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ping", "").Code)
	w := do(r, http.MethodGet, "/ping", "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "too many requests")
}

func TestConcurrencyLimit(t *testing.T) {
	d := limiter.NewDynamicSemaphoreLimiter(1)
	release := make(chan struct{})
	entered := make(chan struct{})
	r := newEngine(ConcurrencyLimit(d, 20*time.Millisecond))
	r.GET("/slow", func(c *gin.Context) {
		close(entered)
		<-release
		c.Status(http.StatusOK)
	})
	r.GET("/fast", func(c *gin.Context) { c.Status(http.StatusOK) })

	var wg sync.WaitGroup
	wg.Add(1)
	var slow *httptest.ResponseRecorder
	go func() {
		defer wg.Done()
		slow = do(r, http.MethodGet, "/slow", "")
	}()
	<-entered

	assert.Equal(t, http.StatusServiceUnavailable, do(r, http.MethodGet, "/fast", "").Code)
	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, slow.Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/fast", "").Code)
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	r := newEngine(Recovery(logger))
	r.GET("/panic", func(*gin.Context) { panic("boom") })

	w := do(r, http.MethodGet, "/panic", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.Contains(t, buf.String(), "handler panicked")
	assert.Contains(t, buf.String(), `"route":"/panic"`)

	r.GET("/abort", func(*gin.Context) { panic(http.ErrAbortHandler) })
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() { do(r, http.MethodGet, "/abort", "") })
}

func TestRequestID(t *testing.T) {
	r := newEngine(RequestID(new(idgen.Sequence)))
	var seen string
	r.GET("/id", func(c *gin.Context) {
		seen = contextx.GetRequestID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := do(r, http.MethodGet, "/id", "")
	assert.Equal(t, "1", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "1", seen)

	req := httptest.NewRequest(http.MethodGet, "/id", nil)
	req.Header.Set(HeaderXRequestID, "abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "abc", seen)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	r := newEngine(Logger(slog.New(slog.NewJSONHandler(&buf, nil))))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusAccepted) })

	r.GET("/missing", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	do(r, http.MethodGet, "/x?a=1", "")
	assert.Contains(t, buf.String(), `"level":"INFO"`)
	assert.Contains(t, buf.String(), `"status":202`)
	assert.Contains(t, buf.String(), `"query":"a=1"`)

	buf.Reset()
	do(r, http.MethodGet, "/missing", "")
	assert.Contains(t, buf.String(), `"level":"WARN"`)
	assert.Contains(t, buf.String(), `"route":"/missing"`)
}

func TestHTTPMetrics(t *testing.T) {
	m := metrics.NewMetrics("test")
	r := newEngine(HTTPMetrics(m, MetricsOptions{SkipPaths: []string{"/health"}}))
	r.GET("/v1/items/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	do(r, http.MethodGet, "/v1/items/1", "")
	do(r, http.MethodGet, "/v1/items/2", "")
	do(r, http.MethodGet, "/health", "")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/v1/items/:id", "200")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues(http.MethodGet, "/health", "200")))
}

func TestMaxBodyBytes(t *testing.T) {
	r := newEngine(MaxBodyBytes(8))
	r.POST("/echo", func(c *gin.Context) {
		var buf bytes.Buffer
		if _, err := buf.ReadFrom(c.Request.Body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.String(http.StatusOK, buf.String())
	})

	w := do(r, http.MethodPost, "/echo", "short")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "short", w.Body.String())
	assert.Equal(t, http.StatusRequestEntityTooLarge, do(r, http.MethodPost, "/echo", "this is far too long").Code)
}

func TestTraceIDHeaderWithoutSpan(t *testing.T) {
	r := newEngine(TraceIDHeader())
	r.GET("/t", func(c *gin.Context) { c.Status(http.StatusOK) })
	assert.Empty(t, do(r, http.MethodGet, "/t", "").Header().Get(HeaderXTraceID))
}
