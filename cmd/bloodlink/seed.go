package main

import (
	"context"
	"fmt"
	"time"

	"bloodlink/internal/db"
	"bloodlink/internal/seed"
	"bloodlink/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with demo donors and requests",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "requests",
			Usage: "Number of demo requests to create",
			Value: 20,
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "Delete previously seeded requests first",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if err := requireDatabase(cfg); err != nil {
			return err
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		if c.Bool("reset") {
			deleted, err := seed.ResetFakeRequests(ctx, pool)
			if err != nil {
				return err
			}
			logrus.WithField("deleted", deleted).Info("Seeded requests reset")
		}

		now := time.Now().UTC()

		users, err := seed.SeedFakeUsers(ctx, store.NewUserRepository(pool), now)
		if err != nil {
			return fmt.Errorf("failed to seed users: %w", err)
		}
		logrus.WithField("users", users).Info("Users seeded")

		requests, err := seed.SeedFakeRequests(ctx, store.NewRequestRepository(pool), c.Int("requests"), cfg.RequestTTL, now)
		if err != nil {
			return fmt.Errorf("failed to seed requests: %w", err)
		}
		logrus.WithField("requests", requests).Info("Requests seeded")

		return nil
	},
}
