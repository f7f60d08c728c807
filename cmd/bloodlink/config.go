package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bloodlink/internal/db"
	"bloodlink/internal/lifecycle"
	"bloodlink/internal/matcher"
	"bloodlink/internal/notify"
	"bloodlink/internal/seed"
	"bloodlink/internal/server"
	"bloodlink/internal/store"
	"bloodlink/internal/sweeper"
	"bloodlink/pkg/types"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

func loadConfig() (*types.Config, error) {
	c := new(types.Config)
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}

	if c.ServerPort == 0 {
		c.ServerPort = 8080
	}

	if c.ReadTimeoutSec == 0 {
		c.ReadTimeoutSec = 10
	}

	if c.WriteTimeoutSec == 0 {
		c.WriteTimeoutSec = 15
	}

	return c, nil
}

func requireDatabase(c *types.Config) error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("set DATABASE_URL")
	}
	return nil
}

func newLogger(c *types.Config) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logger.WithError(err).WithField("log_level", c.LogLevel).Warn("unknown log level, using info")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger
}

func newVerifier(ctx context.Context, c *types.Config) (*server.TokenVerifier, error) {
	switch {
	case c.JWKSURL != "":
		return server.NewJWKSVerifier(ctx, c.JWKSURL, c.JWTIssuer)
	case c.JWTSecret != "":
		return server.NewHMACVerifier([]byte(c.JWTSecret), c.JWTIssuer)
	}
	return nil, errors.New("set JWT_SECRET or JWKS_URL")
}

type requestStore interface {
	lifecycle.RequestStore
	sweeper.RequestStore
	seed.RequestWriter
}

type userStore interface {
	lifecycle.UserStore
	matcher.DonorSource
	sweeper.UserStore
	seed.UserWriter
}

type notificationStore interface {
	notify.NotificationStore
	server.NotificationStore
}

type stores struct {
	requests      requestStore
	users         userStore
	notifications notificationStore
	close         func()
}

// openStores connects to Postgres, or builds an in-memory store when
// memory is set.
func openStores(ctx context.Context, c *types.Config, memory bool) (*stores, error) {
	if memory {
		mem := store.NewMemoryStore()
		return &stores{
			requests:      mem,
			users:         mem,
			notifications: mem,
			close:         func() {},
		}, nil
	}

	if err := requireDatabase(c); err != nil {
		return nil, err
	}

	pool, err := db.Connect(ctx, c)
	if err != nil {
		return nil, err
	}

	return &stores{
		requests:      store.NewRequestRepository(pool),
		users:         store.NewUserRepository(pool),
		notifications: store.NewNotificationRepository(pool),
		close:         pool.Close,
	}, nil
}

func sweeperOptions(c *types.Config) sweeper.Options {
	return sweeper.Options{
		Interval:  c.SweepInterval,
		Timeout:   c.SweepTimeout,
		BatchSize: c.SweepBatchSize,
		Clock:     func() time.Time { return time.Now().UTC() },
	}
}
