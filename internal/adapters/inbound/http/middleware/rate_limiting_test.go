package middleware_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/handlers"
	"github.com/architeacher/device-inventory/internal/adapters/inbound/http/middleware"
	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/stretchr/testify/suite"
	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

type RateLimitingTestSuite struct {
	suite.Suite
	log    logger.Logger
	config config.RateLimiting
}

func TestRateLimitingTestSuite(t *testing.T) {
	t.Parallel()
	suite.Run(t, new(RateLimitingTestSuite))
}

func (s *RateLimitingTestSuite) SetupTest() {
	s.log = logger.NewTestLogger()
	s.config = config.RateLimiting{
		Enabled:           true,
		RequestsPerSecond: 1,
		BurstSize:         1,
		SkipPaths:         []string{"/health"},
	}
}

func (s *RateLimitingTestSuite) newHandler(cfg config.RateLimiting, store throttled.GCRAStoreCtx) http.Handler {
	limiter, err := middleware.RateLimiting(cfg, store, s.log)
	s.Require().NoError(err)

	return limiter(okHandler)
}

func (s *RateLimitingTestSuite) newStore() throttled.GCRAStoreCtx {
	store, err := memstore.NewCtx(100)
	s.Require().NoError(err)

	return store
}

func (s *RateLimitingTestSuite) serve(handler http.Handler, path, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = remoteAddr

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func (s *RateLimitingTestSuite) TestBlocksRequestsOverBurst() {
	handler := s.newHandler(s.config, s.newStore())

	for range 2 {
		rec := s.serve(handler, "/devices", "192.168.1.1:1000")
		s.Require().Equal(http.StatusOK, rec.Code)
		s.Require().Equal("2", rec.Header().Get(middleware.RateLimitLimitHeader))
	}

	rec := s.serve(handler, "/devices", "192.168.1.1:1001")
	s.Require().Equal(http.StatusTooManyRequests, rec.Code)
	s.Require().Equal("0", rec.Header().Get(middleware.RateLimitRemainingHeader))

	retryAfter, err := strconv.Atoi(rec.Header().Get(middleware.RetryAfterHeader))
	s.Require().NoError(err)
	s.Require().Positive(retryAfter)

	var resp handlers.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Equal(http.StatusTooManyRequests, resp.Status)
	s.Require().Equal([]string{middleware.MessageTooManyRequests}, resp.Errors)
}

func (s *RateLimitingTestSuite) TestQuotaIsPerClient() {
	handler := s.newHandler(s.config, s.newStore())

	for range 3 {
		s.serve(handler, "/devices", "10.0.0.1:1000")
	}

	rec := s.serve(handler, "/devices", "10.0.0.2:1000")
	s.Require().Equal(http.StatusOK, rec.Code)
}

func (s *RateLimitingTestSuite) TestSkipPaths() {
	cases := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{name: "exact match", path: "/health", wantStatus: http.StatusOK},
		{name: "sub path", path: "/health/readiness", wantStatus: http.StatusOK},
		{name: "shared prefix only", path: "/healthcheck", wantStatus: http.StatusTooManyRequests},
		{name: "device route", path: "/devices", wantStatus: http.StatusTooManyRequests},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			handler := s.newHandler(s.config, s.newStore())

			var rec *httptest.ResponseRecorder
			for range 3 {
				rec = s.serve(handler, tc.path, "192.168.2.1:1000")
			}

			s.Require().Equal(tc.wantStatus, rec.Code)
		})
	}
}

func (s *RateLimitingTestSuite) TestDisabledPassesThrough() {
	cfg := s.config
	cfg.Enabled = false

	handler := s.newHandler(cfg, nil)

	for range 5 {
		s.Require().Equal(http.StatusOK, s.serve(handler, "/devices", "192.168.3.1:1000").Code)
	}
}

func (s *RateLimitingTestSuite) TestStoreErrors() {
	cases := []struct {
		name       string
		graceful   bool
		wantStatus int
	}{
		{name: "graceful degradation", graceful: true, wantStatus: http.StatusOK},
		{name: "strict", graceful: false, wantStatus: http.StatusServiceUnavailable},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			cfg := s.config
			cfg.GracefulDegraded = tc.graceful

			rec := s.serve(s.newHandler(cfg, errorStore{}), "/devices", "192.168.4.1:1000")
			s.Require().Equal(tc.wantStatus, rec.Code)
		})
	}
}

var errStoreUnavailable = errors.New("store unavailable")

type errorStore struct{}

func (errorStore) GetWithTime(context.Context, string) (int64, time.Time, error) {
	return 0, time.Time{}, errStoreUnavailable
}

func (errorStore) SetIfNotExistsWithTTL(context.Context, string, int64, time.Duration) (bool, error) {
	return false, errStoreUnavailable
}

func (errorStore) CompareAndSwapWithTTL(context.Context, string, int64, int64, time.Duration) (bool, error) {
	return false, errStoreUnavailable
}
