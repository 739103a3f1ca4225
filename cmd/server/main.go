package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/muddy-beach/beachmud/pkg/boltstore"
	"github.com/muddy-beach/beachmud/pkg/crypt"
	"github.com/muddy-beach/beachmud/pkg/game"
	"github.com/muddy-beach/beachmud/pkg/server"
)

// envDefault returns the environment variable value if set, otherwise the fallback.
func envDefault(envVar, fallback string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return fallback
}

func main() {
	confFile := flag.String("conf", envDefault("MUD_CONF", ""), "Path to YAML config file (env: MUD_CONF)")
	port := flag.Int("port", 0, "TCP port to listen on, overrides config (env: MUD_PORT)")
	boltPath := flag.String("bolt", envDefault("MUD_BOLT", ""), "Path to bbolt database, overrides config (env: MUD_BOLT)")
	sqlPath := flag.String("sqldb", envDefault("MUD_SQLDB", ""), "Path to SQLite scrollback database, overrides config (env: MUD_SQLDB)")
	flag.Parse()

	cfg, err := server.LoadConfig(*confFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	// Flags and env override the config file.
	if *port == 0 {
		if envPort := os.Getenv("MUD_PORT"); envPort != "" {
			if p, err := strconv.Atoi(envPort); err == nil {
				*port = p
			}
		}
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *boltPath != "" {
		cfg.BoltPath = *boltPath
	}
	if *sqlPath != "" {
		cfg.ScrollbackPath = *sqlPath
	}

	log, err := buildLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting", zap.String("name", cfg.Name), zap.Int("port", cfg.Port))

	store, err := boltstore.Open(cfg.BoltPath)
	if err != nil {
		log.Fatal("opening bolt database", zap.Error(err))
	}
	defer store.Close()

	rooms, err := server.LoadRooms(store, log)
	if err != nil {
		log.Fatal("loading rooms", zap.Error(err))
	}
	if _, ok := rooms[cfg.EntryRoom]; !ok {
		log.Fatal("entry room not found", zap.String("room", cfg.EntryRoom))
	}

	world := game.NewWorld(rooms, cfg.EntryRoom, server.NewBoltSaver(store), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Scrollback journal, best-effort: the game runs fine without it.
	sqldb, err := server.OpenSQLStore(cfg.ScrollbackPath, 5)
	if err != nil {
		log.Warn("scrollback database unavailable", zap.Error(err))
	} else {
		defer sqldb.Close()
		sw := server.NewScrollbackWriter(sqldb, world.Bus, log)
		if sw != nil {
			defer sw.Close()
			server.StartRetentionCleanup(ctx, sqldb, cfg.ScrollbackRetentionDuration(), log)
		}
	}

	var metrics *server.Metrics
	if cfg.MetricsEnabled {
		metrics = server.NewMetrics(world, time.Now())
		world.OnTick = metrics.ObserveTick
		go func() {
			if err := metrics.Serve(cfg.MetricsPort, log); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	dispatcher := server.NewDispatcher(cfg, world, store, crypt.NewScryptHasher(), metrics, log)
	if err := dispatcher.Start(ctx); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	log.Info("shutdown complete")
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}
