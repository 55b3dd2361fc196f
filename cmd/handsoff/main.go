package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ayusman/handsoff/internal/app"
	"github.com/ayusman/handsoff/internal/config"
	"github.com/ayusman/handsoff/internal/logging"
	"github.com/ayusman/handsoff/internal/notify"
	"github.com/ayusman/handsoff/internal/plugin"
	"github.com/ayusman/handsoff/internal/server"
	"github.com/ayusman/handsoff/internal/store"
	"github.com/ayusman/handsoff/internal/tray"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("hands off exited")
	}
}

func run() error {
	cfg, err := config.Load(config.ResolvePath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Init("handsoff", cfg.Log)

	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	// The journal lives for the session only.
	st, err := store.NewMemory()
	if err != nil {
		return fmt.Errorf("initialize journal: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := server.NewHub()
	notifier, closeNotifier := buildNotifier(ctx, cfg, hub)
	defer closeNotifier()

	a := app.New(app.Config{
		Store:         st,
		Camera:        cfg.CameraSettings(),
		Gate:          cfg.GateSettings(),
		Detector:      cfg.DetectorSettings(),
		Classifier:    cfg.ClassifierConfig(),
		Policy:        policy,
		Notifier:      notifier,
		NotifyTimeout: cfg.Notify.Timeout,
	})
	if err := a.Start(); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	defer a.Stop()

	srvErr := make(chan error, 1)
	if cfg.Server.Addr != "" {
		srv := server.New(server.Config{Store: st, App: a, Hub: hub})
		go func() { srvErr <- srv.Run(ctx, cfg.Server.Addr) }()
	}

	log.Info().
		Int("stages", len(policy.Stages)).
		Str("api", cfg.Server.Addr).
		Bool("tray", cfg.Tray).
		Msg("hands off running")

	if cfg.Tray {
		runTray(ctx, a, cfg.Server.Addr)
		return nil
	}

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		return nil
	case err := <-srvErr:
		return fmt.Errorf("status API: %w", err)
	}
}

// buildNotifier assembles the configured alert sinks. Sinks that fail to
// initialize are logged and left out.
func buildNotifier(ctx context.Context, cfg config.Config, hub *server.Hub) (notify.Notifier, func()) {
	sinks := notify.Multi{hub}

	if cfg.Notify.Log {
		sinks = append(sinks, notify.NewLogger(log.Logger))
	}

	if cfg.Notify.Plugin != "" {
		mgr := plugin.NewManager(cfg.Notify.PluginDir)
		if err := mgr.Discover(); err != nil {
			log.Warn().Err(err).Str("dir", cfg.Notify.PluginDir).Msg("plugin discovery failed")
		}
		plugins, err := notify.FromManager(mgr, plugin.NewExecutor(cfg.Notify.Timeout), cfg.Notify.Plugin)
		if err != nil {
			log.Warn().Err(err).Msg("alert plugin unavailable")
		}
		sinks = append(sinks, plugins...)
	}

	closer := func() {}
	if cfg.Notify.RedisAddr != "" {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		pub, err := notify.NewRedisPublisher(dialCtx, notify.RedisConfig{
			Address:  cfg.Notify.RedisAddr,
			Password: cfg.Notify.RedisPassword,
			DB:       cfg.Notify.RedisDB,
			Channel:  cfg.Notify.RedisChannel,
		})
		cancel()
		if err != nil {
			log.Warn().Err(err).Msg("redis alert publisher disabled")
		} else {
			log.Info().Str("channel", pub.Channel()).Msg("publishing alerts to redis")
			sinks = append(sinks, pub)
			closer = func() {
				if err := pub.Close(); err != nil {
					log.Warn().Err(err).Msg("error closing redis publisher")
				}
			}
		}
	}

	return sinks, closer
}

// runTray blocks in the menu bar loop until Quit or a signal.
func runTray(ctx context.Context, a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.Watch(a.Status, tray.DefaultRefresh)
	t.OnQuit(func() { log.Info().Msg("quit from menu") })
	if addr != "" && runtime.GOOS == "darwin" {
		t.OnOpen(func() {
			if err := exec.Command("open", "http://"+addr+"/api/status").Start(); err != nil {
				log.Warn().Err(err).Msg("could not open browser")
			}
		})
	}

	go func() {
		<-ctx.Done()
		t.Quit()
	}()

	t.Run()
}
