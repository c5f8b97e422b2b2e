package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newLimitedRouter(rl *RedisRateLimiter, failOpen bool) *gin.Engine {
	r := gin.New()
	r.Use(rl.Middleware(zap.NewNop(), failOpen))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func doGet(r http.Handler) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRedisRateLimiter_FirstRequestSetsExpiry(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "test")

	mock.ExpectIncr("test:10.0.0.1").SetVal(1)
	mock.ExpectPExpire("test:10.0.0.1", time.Minute).SetVal(true)

	w := doGet(newLimitedRouter(rl, true))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimiter_RejectsOverLimit(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "test")

	mock.ExpectIncr("test:10.0.0.1").SetVal(3)

	w := doGet(newLimitedRouter(rl, true))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisRateLimiter_FailOpen(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "test")

	mock.ExpectIncr("test:10.0.0.1").SetErr(errors.New("connection refused"))

	w := doGet(newLimitedRouter(rl, true))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRedisRateLimiter_FailClosed(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	rl := NewRedisRateLimiter(rdb, 2, time.Minute, "test")

	mock.ExpectIncr("test:10.0.0.1").SetErr(errors.New("connection refused"))

	w := doGet(newLimitedRouter(rl, false))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
