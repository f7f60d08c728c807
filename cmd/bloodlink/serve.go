package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bloodlink/internal/lifecycle"
	"bloodlink/internal/matcher"
	"bloodlink/internal/notify"
	"bloodlink/internal/realtime"
	"bloodlink/internal/seed"
	"bloodlink/internal/server"
	"bloodlink/internal/sweeper"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "Start the HTTP server and the expiry sweeper",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "memory",
			Usage: "Use the in-memory store instead of Postgres",
		},
		&cli.BoolFlag{
			Name:  "seed",
			Usage: "Load demo users and requests on start (in-memory store only)",
		},
	},
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	config, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger(config)

	memory := cCtx.Bool("memory")
	st, err := openStores(ctx, config, memory)
	if err != nil {
		return err
	}
	defer st.close()

	if memory && cCtx.Bool("seed") {
		now := time.Now().UTC()
		if _, err := seed.SeedFakeUsers(ctx, st.users, now); err != nil {
			return err
		}
		if _, err := seed.SeedFakeRequests(ctx, st.requests, 20, config.RequestTTL, now); err != nil {
			return err
		}
		logger.Info("in-memory store seeded")
	}

	verifier, err := newVerifier(ctx, config)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(logger)

	var pusher notify.Pusher = hub
	if config.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     config.RedisAddr,
			Password: config.RedisPassword,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.WithError(err).Warn("redis close error")
			}
		}()

		broker := realtime.NewRedisBroker(logger, redisClient, config.RedisChannel, hub)
		go func() {
			if err := broker.Run(ctx); err != nil {
				logger.WithError(err).Error("realtime broker stopped")
			}
		}()
		pusher = broker
	}

	emitter := notify.NewEmitter(logger, st.notifications, pusher)

	manager := lifecycle.New(logger, st.requests, st.users, matcher.New(st.users), emitter, lifecycle.Options{
		RequestTTL:  config.RequestTTL,
		MatchLimit:  config.MatchLimit,
		SearchLimit: config.SearchLimit,
		Clock:       func() time.Time { return time.Now().UTC() },
	})

	sweeper.New(logger, st.requests, st.users, emitter, sweeperOptions(config)).Start(ctx)

	gateway := realtime.NewGateway(logger, hub, config.WSAllowedOrigins)

	srv, err := server.New(config, logger, manager, st.notifications, verifier, gateway)
	if err != nil {
		return err
	}

	go func() {
		logger.WithFields(logrus.Fields{
			"port":   config.ServerPort,
			"memory": memory,
		}).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
