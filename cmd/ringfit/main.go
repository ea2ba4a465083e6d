package main

import (
	"context"
	"flag"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ayusman/ringfit/internal/app"
	"github.com/ayusman/ringfit/internal/config"
	"github.com/ayusman/ringfit/internal/server"
	"github.com/ayusman/ringfit/internal/store"
	"github.com/ayusman/ringfit/internal/tray"
	"github.com/ayusman/ringfit/internal/tryon"
)

// journalRetention is how long finished sessions are kept.
const journalRetention = 30 * 24 * time.Hour

func main() {
	configFile := flag.String("config", "", "path to a config file (default: search ./config.yaml and ~/.ringfit)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg.Log)

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to create data directory")
	}

	st, err := store.New(cfg.DBPath())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize store")
	}
	defer st.Close()

	application := app.New(app.Config{
		Store:        st,
		Constraints:  cfg.Camera,
		Detector:     cfg.Detector,
		Selection:    cfg.Selection,
		RestartDelay: cfg.Tryon.RestartDelay,
	})
	defer application.Close()

	if n, err := application.PruneJournal(journalRetention); err != nil {
		log.Warn().Err(err).Msg("failed to prune session journal")
	} else if n > 0 {
		log.Info().Int64("sessions", n).Msg("pruned session journal")
	}

	webDir := findWebDir(cfg.Server.StaticDir, cfg.DataDir)
	if webDir != "" {
		log.Info().Str("dir", webDir).Msg("serving static files")
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		TryOn:     application.Controller(),
		Sessions:  application.Sessions(),
		StreamFPS: cfg.Camera.FPS,
	})

	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("starting server")
		if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Tray {
		runTray(ctx, application.Controller(), "http://"+browsable(cfg.Server.Addr))
	} else {
		<-ctx.Done()
	}

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("server shutdown")
	}
}

func setupLogging(cfg config.LogConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// runTray blocks in the tray loop until Quit or ctx ends.
func runTray(ctx context.Context, ctrl *tryon.Controller, url string) {
	t := tray.New()
	t.SetStatus(ctrl.Status())
	unsubscribe := ctrl.Subscribe(func(ev tryon.Event) { t.SetStatus(ev.Status) })
	defer unsubscribe()

	t.OnStart(func() {
		if err := ctrl.Start(context.Background()); err != nil {
			log.Warn().Err(err).Msg("start from tray")
		}
	})
	t.OnStop(ctrl.Stop)
	t.OnRestart(func() {
		if err := ctrl.Restart(context.Background()); err != nil {
			log.Warn().Err(err).Msg("restart from tray")
		}
	})
	t.OnSettings(func() { openBrowser(url) })

	go func() {
		<-ctx.Done()
		t.Quit()
	}()
	t.Run()
}

// browsable turns a listen address into one a browser can open.
func browsable(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "localhost" + addr
	}
	return strings.Replace(addr, "0.0.0.0", "localhost", 1)
}

func openBrowser(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	if err := cmd.Start(); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("failed to open browser")
		return
	}
	go cmd.Wait()
}

// findWebDir returns the first existing web directory: the configured one,
// then "web" up to two levels above the working directory, then the data
// directory. Empty means no static files are served.
func findWebDir(configured, dataDir string) string {
	candidates := []string{configured, "web", "../web", "../../web", filepath.Join(dataDir, "web")}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
