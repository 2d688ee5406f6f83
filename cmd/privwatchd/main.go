package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/l1jgo/privwatch/internal/config"
	"github.com/l1jgo/privwatch/internal/core/event"
	"github.com/l1jgo/privwatch/internal/data"
	"github.com/l1jgo/privwatch/internal/handler"
	"github.com/l1jgo/privwatch/internal/metrics"
	gonet "github.com/l1jgo/privwatch/internal/net"
	"github.com/l1jgo/privwatch/internal/persist"
	"github.com/l1jgo/privwatch/internal/scripting"
	"github.com/l1jgo/privwatch/internal/watch"
	"github.com/l1jgo/privwatch/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName string, serverID int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m           privwatch  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      權限變更監看服務 · Go               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m伺服器:\033[0m %s \033[90m(編號: %d)\033[0m\n\n", serverName, serverID)
}

func printSection(title string) {
	// Use rune count for CJK width calculation (each CJK char = 2 columns)
	displayWidth := 0
	for _, r := range title {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	lineLen := 46 - displayWidth - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	displayWidth := 0
	for _, r := range label {
		if r > 0x7F {
			displayWidth += 2
		} else {
			displayWidth++
		}
	}
	dotsLen := 42 - displayWidth - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/server.toml"
	if p := os.Getenv("PRIVWATCH_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Server.ID)

	// 3. Connect to PostgreSQL and run migrations
	printSection("資料庫")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	printOK("PostgreSQL 連線成功")

	if err := persist.RunMigrations(ctx, db.Pool); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	printOK("資料庫遷移完成")
	fmt.Println()

	// 4. Create repositories
	accountRepo := persist.NewAccountRepo(db)
	grantRepo := persist.NewGrantRepo(db)

	// 5. Load privilege definitions and create world state
	printSection("資料載入")

	privTable, err := data.LoadPrivilegeTable(cfg.Watch.PrivilegeList)
	if err != nil {
		return fmt.Errorf("load privilege table: %w", err)
	}
	printStat("權限定義", privTable.Count())

	worldState := world.NewState()
	bus := event.NewBus()

	// 5a. Initialize Lua automation engine
	luaEngine, err := scripting.NewEngine(cfg.Watch.ScriptsDir, worldState, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("Lua 腳本載入完成")
	fmt.Println()

	// 6. Metrics
	m := metrics.New()
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		go func() {
			if err := http.ListenAndServe(cfg.Metrics.BindAddress, mux); err != nil {
				log.Error("metrics listener stopped", zap.Error(err))
			}
		}()
	}

	// 7. Create the privilege watcher and wire the bus
	watcher := watch.New(cfg.Watch.DebounceWindow, worldState,
		func(sessionID uint64, d watch.Delta) {
			info := worldState.Get(sessionID)
			if info == nil {
				return // session exited between settle and publish
			}
			event.Publish(bus, event.PrivilegesChanged{
				SessionID: sessionID,
				Account:   info.Account,
				Active:    d.Active,
				Added:     d.Added,
				Removed:   d.Removed,
			})
		}, log)

	event.Subscribe(bus, func(ev event.SessionEntered) {
		watcher.Track(ev.SessionID)
		m.TrackedSessions.Set(float64(watcher.Tracked()))
		m.Sessions.Set(float64(worldState.Count()))
	})
	event.Subscribe(bus, func(ev event.SessionExited) {
		watcher.Untrack(ev.SessionID)
		m.TrackedSessions.Set(float64(watcher.Tracked()))
	})
	event.Subscribe(bus, func(ev event.PrivilegesChanged) {
		m.SettlesTotal.Inc()
		m.DeltaNames.Add(float64(len(ev.Added) + len(ev.Removed)))
		log.Info("權限已變更",
			zap.String("account", ev.Account),
			zap.Strings("added", ev.Added),
			zap.Strings("removed", ev.Removed))
	})
	event.Subscribe(bus, func(ev event.PrivilegesChanged) {
		luaEngine.OnPrivilegesChanged(ev.SessionID, ev.Account, ev.Active, ev.Added, ev.Removed)
	})
	event.Subscribe(bus, func(ev event.PrivilegesChanged) {
		handler.NotifyWatchers(worldState, ev)
	})
	event.Subscribe(bus, func(ev event.PrivilegesChanged) {
		// Persist only the most recent settled snapshot, off the settle path.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := grantRepo.ReplaceSnapshot(ctx, ev.Account, ev.Active); err != nil {
				log.Warn("快照儲存失敗", zap.String("account", ev.Account), zap.Error(err))
			}
		}()
	})

	// 8. Create command registry and register handlers
	deps := &handler.Deps{
		AccountRepo: accountRepo,
		GrantRepo:   grantRepo,
		Config:      cfg,
		Log:         log,
		World:       worldState,
		Bus:         bus,
		Privileges:  privTable,
	}
	reg := handler.NewRegistry(log)
	handler.RegisterAll(reg, deps)

	// 9. Create network server
	linesPerSec := 0
	if cfg.RateLimit.Enabled {
		linesPerSec = cfg.RateLimit.LinesPerSecond
	}
	netServer, err := gonet.NewServer(
		cfg.Network.BindAddress,
		cfg.Network.InQueueSize,
		cfg.Network.OutQueueSize,
		linesPerSec,
		cfg.Network.ReadTimeout,
		cfg.Network.WriteTimeout,
		log,
	)
	if err != nil {
		return fmt.Errorf("net server: %w", err)
	}
	go netServer.AcceptLoop()

	// 10. Service loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	printSection("伺服器就緒")
	printReady(fmt.Sprintf("監聽位址 %s", netServer.Addr().String()))
	printReady(fmt.Sprintf("去抖動視窗 %s", cfg.Watch.DebounceWindow))
	fmt.Println()

	for {
		select {
		case sess := <-netServer.NewSessions():
			go handler.ServeSession(sess, reg)

		case sessionID := <-netServer.DeadSessions():
			// Publish the exit before dropping world state: the watcher
			// needs the locator to still resolve the session so it can
			// restore the original table reference.
			if info := worldState.Get(sessionID); info != nil {
				event.Publish(bus, event.SessionExited{SessionID: sessionID, Account: info.Account})
				worldState.Remove(sessionID)
				m.Sessions.Set(float64(worldState.Count()))
				log.Info(fmt.Sprintf("客戶端離線  session=%d  account=%s", sessionID, info.Account))
			}

		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			watcher.CleanUp()
			netServer.Shutdown()
			worldState.All(func(info *world.SessionInfo) {
				info.Session.Close()
			})
			log.Info("伺服器已停止")
			return nil
		}
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
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
