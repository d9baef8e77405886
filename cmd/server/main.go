package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/npezzotti/go-chatrelay/internal/api"
	"github.com/npezzotti/go-chatrelay/internal/config"
	"github.com/npezzotti/go-chatrelay/internal/database"
	"github.com/npezzotti/go-chatrelay/internal/server"
	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/users"
	"go.uber.org/zap"
)

const defaultSigningKey = "wT0phFUusHZIrDhL9bUKPUhwaxKhpi/SaI6PtgB+MgU="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dbDriver       string
	dsn            string
	signingKey     string
	allowedOrigins stringSliceFlag
	msgRate        float64
	msgBurst       int
	debug          bool
)

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func openRepository(cfg *config.Config) (database.ChatRepository, error) {
	if cfg.DatabaseDriver == config.DriverSqlite {
		return database.NewSqliteChatRepository(cfg.DatabaseDSN)
	}
	return database.NewPgChatRepository(cfg.DatabaseDSN)
}

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dbDriver, "db-driver", config.DriverPostgres, "database driver (postgres or sqlite)")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS and websockets")
	flag.Float64Var(&msgRate, "msg-rate", 5, "events per second allowed on each connection")
	flag.IntVar(&msgBurst, "msg-burst", 10, "event burst allowed on each connection")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	zl, err := newLogger(debug)
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	logger := zl.Sugar().Named("go-chatrelay")

	cfg, err := config.NewConfig(addr, dbDriver, dsn, signingKey, allowedOrigins,
		config.RateLimit{PerSecond: msgRate, Burst: msgBurst})
	if err != nil {
		logger.Fatalw("config", "error", err)
	}

	repo, err := openRepository(cfg)
	if err != nil {
		logger.Fatalw("db open", "driver", cfg.DatabaseDriver, "error", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			logger.Errorw("db close", "error", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	relay := server.NewRelay(repo, logger, statsUpdater, cfg.RateLimit)
	srv := api.NewChatApp(mux, logger, repo, relay, users.NewDirectory(repo, logger), cfg)

	statsUpdater.Run()

	go relay.Server.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Infow("received signal", "signal", sig.String())
	case err := <-errCh:
		logger.Errorw("server", "error", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Errorw("HTTP server shutdown", "error", err)
	}

	logger.Info("shutting down chat server")
	if err := relay.Server.Shutdown(shutDownCtx); err != nil {
		logger.Errorw("chat server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
}
