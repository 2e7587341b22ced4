// Command migrate управляет схемой базы: up, down [N], version, force V.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"artstory-server/internal/config"
	"artstory-server/internal/database"
	"artstory-server/pkg/migration"

	"github.com/rs/zerolog"
	"go.uber.org/zap"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: migrate [-env-file .env] <up|down [N]|version|force V>\n")
	flag.PrintDefaults()
}

func main() {
	envFile := flag.String("env-file", ".env", "path to .env file")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall timeout")
	flag.Usage = usage
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.LoadDatabaseConfig(*envFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger.Info().Str("dsn", cfg.MaskedDSN()).Str("command", args[0]).Msg("starting migration")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	pool, err := database.NewPool(ctx, database.PoolConfig{
		DSN:        cfg.GetDSN(),
		MaxConns:   2,
		MaxRetries: 5,
		RetryDelay: 2 * time.Second,
	}, zap.NewNop())
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	migrator := migration.New(pool, database.MigrationsFS(), database.MigrationsPath, logger)

	switch args[0] {
	case "up":
		err = migrator.Up(ctx)
	case "down":
		steps := 0
		if len(args) > 1 {
			if steps, err = strconv.Atoi(args[1]); err != nil || steps < 0 {
				logger.Fatal().Str("steps", args[1]).Msg("down expects a non-negative number of steps")
			}
		}
		err = migrator.Down(ctx, steps)
	case "version":
		var status migration.Status
		status, err = migrator.Status(ctx)
		if err == nil {
			logger.Info().Uint("version", status.Version).Bool("dirty", status.Dirty).Msg("current schema version")
		}
	case "force":
		if len(args) < 2 {
			logger.Fatal().Msg("force expects a version")
		}
		version, convErr := strconv.Atoi(args[1])
		if convErr != nil {
			logger.Fatal().Err(convErr).Msg("invalid version")
		}
		err = migrator.Force(ctx, version)
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		logger.Fatal().Err(err).Msg("migration command failed")
	}
}
