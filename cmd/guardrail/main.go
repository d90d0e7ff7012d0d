package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/porchlight-social/guardrail/util/cliutil"

	"github.com/carlmjohnson/versioninfo"
	_ "github.com/joho/godotenv/autoload"
	cli "github.com/urfave/cli/v2"
)

func main() {
	if err := run(os.Args); err != nil {
		slog.Error("exiting", "err", err)
		os.Exit(-1)
	}
}

func run(args []string) error {

	app := cli.App{
		Name:    "guardrail",
		Usage:   "content moderation decision engine (admin daemon)",
		Version: versioninfo.Short(),
	}

	app.Commands = []*cli.Command{
		runCmd,
	}

	return app.Run(args)
}

var runCmd = &cli.Command{
	Name:  "run",
	Usage: "run the service",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Value:   "sqlite://data/guardrail/guardrail.db",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "redis-url",
			Usage:   "redis connection URL for throttle counters; empty uses in-process counters",
			EnvVars: []string{"REDIS_URL"},
		},
		&cli.StringFlag{
			Name:    "api-listen",
			Usage:   "IP or address, and port, to listen on for the admin API",
			Value:   ":8300",
			EnvVars: []string{"GUARDRAIL_API_LISTEN"},
		},
		&cli.IntFlag{
			Name:    "max-db-connections",
			EnvVars: []string{"MAX_DB_CONNECTIONS"},
			Value:   40,
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "log verbosity level (debug, info, warn, error)",
			Value:   "info",
			EnvVars: []string{"GUARDRAIL_LOG_LEVEL", "LOG_LEVEL"},
		},
		&cli.StringFlag{
			Name:    "log-format",
			Usage:   "log format (text or json)",
			Value:   "text",
			EnvVars: []string{"GUARDRAIL_LOG_FMT", "LOG_FORMAT"},
		},
	},
	Action: func(cctx *cli.Context) error {
		logger, err := cliutil.SetupSlog(cliutil.LogOptions{
			LogLevel:  cctx.String("log-level"),
			LogFormat: cctx.String("log-format"),
		})
		if err != nil {
			return err
		}

		db, err := cliutil.SetupDatabase(cctx.String("database-url"), cctx.Int("max-db-connections"))
		if err != nil {
			return fmt.Errorf("setting up database: %w", err)
		}

		srv, err := NewServer(db, Config{
			RedisURL: cctx.String("redis-url"),
			Logger:   logger,
		})
		if err != nil {
			return fmt.Errorf("initializing service: %w", err)
		}

		return srv.RunAPI(cctx.String("api-listen"))
	},
}
