package main

import (
	"context"
	"fmt"

	"bloodlink/internal/db"
	"bloodlink/internal/store"

	"github.com/k0kubun/pp/v3"
	"github.com/urfave/cli/v2"
)

var inspectCommand = &cli.Command{
	Name:      "inspect",
	Usage:     "Pretty-print a request with its assignments and rejections",
	ArgsUsage: "<requestID>",
	Action: func(c *cli.Context) error {
		requestID := c.Args().First()
		if requestID == "" {
			return fmt.Errorf("request id is required")
		}

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

		request, err := store.NewRequestRepository(pool).Request(ctx, requestID)
		if err != nil {
			return err
		}

		pp.Println(request)
		return nil
	},
}
