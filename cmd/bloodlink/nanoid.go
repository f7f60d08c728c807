package main

import (
	"fmt"

	"bloodlink/internal/utils"

	"github.com/urfave/cli/v2"
)

// nanoidCommand prints ids in the format the stores assign, for fixtures
// and manual inserts.
var nanoidCommand = &cli.Command{
	Name:  "nanoid",
	Usage: "Print request/user ids in the store's format",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:    "count",
			Aliases: []string{"n"},
			Usage:   "How many ids to print",
			Value:   1,
		},
		&cli.IntFlag{
			Name:  "size",
			Usage: "Id length",
			Value: utils.NanoidSize,
		},
	},
	Action: func(c *cli.Context) error {
		size := c.Int("size")
		if size <= 0 {
			return fmt.Errorf("size must be positive, got %d", size)
		}

		for i := 0; i < c.Int("count"); i++ {
			fmt.Println(utils.NanoIDSize(size))
		}
		return nil
	},
}
