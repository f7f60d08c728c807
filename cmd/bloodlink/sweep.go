package main

import (
	"context"
	"fmt"

	"bloodlink/internal/db"
	"bloodlink/internal/notify"
	"bloodlink/internal/store"
	"bloodlink/internal/sweeper"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var sweepCommand = &cli.Command{
	Name:  "sweep",
	Usage: "Run one expiry sweep and exit",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := requireDatabase(cfg); err != nil {
			return err
		}

		logger := newLogger(cfg)
		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		// No realtime hub in a one-off run; notifications are only persisted.
		emitter := notify.NewEmitter(logger, store.NewNotificationRepository(pool), nil)

		s := sweeper.New(logger, store.NewRequestRepository(pool), store.NewUserRepository(pool), emitter, sweeperOptions(cfg))
		result := s.Sweep(ctx)

		logger.WithFields(logrus.Fields{
			"expired":  result.Expired,
			"failed":   result.Failed,
			"restored": result.Restored,
		}).Info("sweep finished")

		if result.Failed > 0 {
			return fmt.Errorf("sweep finished with %d failures", result.Failed)
		}
		return nil
	},
}
