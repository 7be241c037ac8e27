package repos_test

import (
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/architeacher/device-inventory/internal/config"
	"github.com/architeacher/device-inventory/internal/infrastructure"
	"github.com/architeacher/device-inventory/pkg/logger"
	"github.com/stretchr/testify/suite"
)

// redisSuite starts a fresh miniredis per test.
type redisSuite struct {
	suite.Suite
	miniRedis   *miniredis.Miniredis
	redisClient *infrastructure.RedisClient
}

func (s *redisSuite) SetupTest() {
	var err error
	s.miniRedis, err = miniredis.Run()
	s.Require().NoError(err)

	s.redisClient = infrastructure.NewRedisClient(config.Cache{
		Address:       s.miniRedis.Addr(),
		PoolSize:      5,
		DialTimeout:   time.Second,
		ReadTimeout:   time.Second,
		WriteTimeout:  time.Second,
		DefaultExpiry: time.Hour,
	}, logger.NewTestLogger())
}

func (s *redisSuite) TearDownTest() {
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}

	if s.miniRedis != nil {
		s.miniRedis.Close()
	}
}
