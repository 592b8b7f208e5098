package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/natya/internal/app"
	"github.com/ayusman/natya/internal/config"
	"github.com/ayusman/natya/internal/monitoring"
	"github.com/ayusman/natya/internal/plugin"
	"github.com/ayusman/natya/internal/server"
	"github.com/ayusman/natya/internal/skeleton"
	"github.com/ayusman/natya/internal/store"
	"github.com/ayusman/natya/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a JSON config file")
	replayPath := flag.String("replay", "", "replay a recorded JSONL body stream, print recognitions and exit")
	flag.Parse()

	fmt.Println("Natya - Body Gesture Recognition")

	if err := run(*configPath, *replayPath); err != nil {
		monitoring.Logf("%v", err)
		os.Exit(1)
	}
}

func run(configPath, replayPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize the store
	if err := os.MkdirAll(cfg.GetDataDir(), 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	st, err := store.New(cfg.GetDBPath())
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	plugins := plugin.NewManager(cfg.GetPluginDir())
	if err := plugins.Discover(); err != nil {
		monitoring.Logf("Plugin discovery failed: %v", err)
	}
	monitoring.Logf("Loaded %d plugins from %s", len(plugins.List()), plugins.PluginDir())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if replayPath != "" {
		return replay(ctx, cfg, st, plugins, replayPath)
	}
	return serve(ctx, cfg, st, plugins)
}

// replay runs a recording through the recognizer without the server.
func replay(ctx context.Context, cfg *config.Config, st *store.Store, plugins *plugin.Manager, path string) error {
	src, err := skeleton.OpenReplay(path, sourceConfig(cfg.GetSource()))
	if err != nil {
		return err
	}
	defer src.Close()

	application, err := app.New(app.Config{Store: st, Plugins: plugins, Settings: cfg})
	if err != nil {
		return err
	}
	if err := application.LoadSettings(); err != nil {
		return fmt.Errorf("failed to load gesture settings: %w", err)
	}

	recs, err := application.Replay(ctx, src)
	for _, rec := range recs {
		fmt.Printf("tick %d: %s (body %d)\n", rec.Tick, rec.Type, rec.TrackingID)
	}
	fmt.Printf("%d gestures recognized\n", len(recs))
	return err
}

// serve runs the live pipeline, the HTTP server and the tray until asked to quit.
func serve(ctx context.Context, cfg *config.Config, st *store.Store, plugins *plugin.Manager) error {
	src, err := openSource(cfg.GetSource())
	if err != nil {
		return err
	}

	hub := server.NewHub()
	application, err := app.New(app.Config{
		Store:       st,
		Source:      src,
		Plugins:     plugins,
		Broadcaster: hub,
		Settings:    cfg,
	})
	if err != nil {
		return err
	}
	if err := application.LoadSettings(); err != nil {
		return fmt.Errorf("failed to load gesture settings: %w", err)
	}

	webDir := findWebDir(cfg)
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir:  webDir,
		Store:      st,
		Recognizer: application,
		Plugins:    plugins,
		Hub:        hub,
	})

	addr := cfg.GetListenAddr()
	errCh := make(chan error, 1)
	go func() {
		fmt.Printf("Starting server on %s\n", addr)
		errCh <- srv.ListenAndServe(addr)
	}()

	if err := application.Start(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if cfg.GetTray() {
		t := tray.New(application.IsEnabled())
		t.OnToggle(application.SetEnabled)
		t.OnSettings(func() { openBrowser(settingsURL(addr)) })
		t.OnQuit(cancel)
		application.RegisterGestureCallback(t.SetLastGesture)

		go func() {
			select {
			case <-ctx.Done():
			case err := <-errCh:
				errCh <- err
			}
			t.Quit()
		}()
		// The tray owns the main goroutine until it quits
		t.Run()
	} else {
		select {
		case <-ctx.Done():
		case err := <-errCh:
			errCh <- err
		}
	}

	application.Stop()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		monitoring.Logf("Server shutdown failed: %v", err)
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	default:
	}
	return nil
}

func sourceConfig(sc config.SourceConfig) skeleton.Config {
	c := skeleton.DefaultConfig()
	if sc.MaxBodies > 0 {
		c.MaxBodies = sc.MaxBodies
	}
	return c
}

// openSource creates the body source selected by the config.
func openSource(sc config.SourceConfig) (skeleton.Source, error) {
	switch sc.Kind {
	case config.SourceReplay:
		return skeleton.OpenReplay(sc.Path, sourceConfig(sc))
	case config.SourceBridge:
		return skeleton.NewBridgeSource(sc.Command, sc.Args, sourceConfig(sc))
	default:
		return nil, errors.New("unknown source kind " + sc.Kind)
	}
}

func settingsURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
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
		monitoring.Logf("Failed to open browser: %v", err)
		return
	}
	go cmd.Wait()
}

// findWebDir returns the configured static directory, or searches "web",
// "../web", "../../web" and <data dir>/web. Returns the first existing
// directory or empty string if none found.
func findWebDir(cfg *config.Config) string {
	if dir := cfg.GetStaticDir(); dir != "" {
		return dir
	}

	// Check relative paths from current working directory
	candidates := []string{"web", "../web", "../../web", filepath.Join(cfg.GetDataDir(), "web")}
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	return ""
}
