package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/iwango/server/internal/config"
	"github.com/iwango/server/internal/game"
	"github.com/iwango/server/internal/gate"
	"github.com/iwango/server/internal/handler"
	gonet "github.com/iwango/server/internal/net"
	"github.com/iwango/server/internal/notify"
	"github.com/iwango/server/internal/persist"
	"github.com/iwango/server/internal/world"
)

const gatePort = 9500

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config
	cfgPath := "iwango.cfg"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Open the database and run migrations
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	db, err := persist.NewDB(cfg.DatabasePath, log)
	if err != nil {
		cancel()
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	if err := persist.RunMigrations(ctx, db); err != nil {
		cancel()
		return fmt.Errorf("migrations: %w", err)
	}
	cancel()

	// 4. Load the title table
	titles, err := game.LoadTitleTable()
	if err != nil {
		return fmt.Errorf("load title table: %w", err)
	}
	log.Info("titles loaded", zap.Int("count", titles.Count()))

	// 5. Build the world: one server per hosted title
	var notifier world.Notifier = world.NopNotifier{}
	if cfg.DiscordWebhook != "" {
		notifier = notify.NewDiscord(cfg.DiscordWebhook, log)
	}

	registry := world.NewRegistry()
	for _, title := range titles.Servers() {
		registry.Add(world.NewTitleServer(
			title,
			cfg.ServerName(title.Code),
			cfg.MOTD(title.Code),
			notifier,
			log,
		))
	}

	// 6. Listeners: the gate plus one port per title, all feeding one
	// event channel
	events := make(chan gonet.Event, 1024)
	var nextID atomic.Uint64

	gateServer, err := gonet.NewServer(gatePort, "gate", &nextID, events, log)
	if err != nil {
		return err
	}
	servers := []*gonet.Server{gateServer}
	for _, title := range titles.Servers() {
		srv, err := gonet.NewServer(title.Port, title.Code, &nextID, events, log)
		if err != nil {
			return err
		}
		servers = append(servers, srv)
	}
	for _, srv := range servers {
		go srv.AcceptLoop()
		log.Info("listening", zap.String("addr", srv.Addr().String()))
	}

	// 7. Request handling
	gateHandler := gate.New(titles, registry, persist.NewHandleRepo(db), log)
	dispatch := handler.NewRegistry(&handler.Deps{
		Config:   cfg,
		ExtraMem: persist.NewExtraMemRepo(db),
		Log:      log,
	})

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	// 8. Event loop: the single goroutine that owns all domain state
	players := make(map[uint64]*world.Player)
	loopCtx := context.Background()

	for {
		select {
		case ev := <-events:
			switch ev.Kind {
			case gonet.EventConnected:
				if ev.Session.Tag == "gate" {
					continue
				}
				server := registry.ByCode(ev.Session.Tag)
				if server == nil {
					ev.Session.Close()
					continue
				}
				players[ev.Session.ID] = world.NewPlayer(ev.Session, server, log)

			case gonet.EventFrame:
				if ev.Session.Tag == "gate" {
					gateHandler.HandleRequest(loopCtx, ev.Session, ev.Frame)
					continue
				}
				p, ok := players[ev.Session.ID]
				if !ok {
					continue
				}
				req, err := gonet.ParseLobbyRequest(ev.Frame)
				if err != nil {
					log.Warn("malformed frame",
						zap.Uint64("session", ev.Session.ID), zap.Error(err))
					ev.Session.Close()
					continue
				}
				dispatch.Dispatch(loopCtx, p, &req)

			case gonet.EventClosed:
				if p, ok := players[ev.Session.ID]; ok {
					delete(players, ev.Session.ID)
					p.Disconnect(false)
				}
			}

		case sig := <-shutdownCh:
			log.Info("shutdown signal", zap.String("signal", sig.String()))
			for _, srv := range servers {
				srv.Shutdown()
			}
			for id, p := range players {
				delete(players, id)
				p.Disconnect(true)
			}
			log.Info("server stopped")
			return nil
		}
	}
}

func newLogger(levelStr, format string) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
