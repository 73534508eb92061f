package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/alert"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/app"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/config"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/detector"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/server"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/store"
	"github.com/LichPham2511/AI-Camera-Fire-Smoke-Human-Detection/internal/tray"
)

func main() {
	cfg := config.Load()

	// Flags override environment settings
	weights := flag.String("weights", cfg.Weights, "model weights path, or AUTO for the newest file next to the binary")
	source := flag.String("source", cfg.Source, "camera index, video file, or stream URL")
	conf := flag.Float64("conf", cfg.ConfThreshold, "minimum detection confidence")
	imgsz := flag.Int("imgsz", cfg.InputSize, "square inference input size in pixels")
	addr := flag.String("addr", cfg.Addr, "dashboard listen address")
	save := flag.Bool("save", false, "save annotated snapshots of alerting frames")
	noTray := flag.Bool("no-tray", false, "run headless without the system tray")
	check := flag.Bool("check", false, "resolve the weights file and exit")
	flag.Parse()

	cfg.Weights = *weights
	cfg.Source = *source
	cfg.ConfThreshold = *conf
	cfg.InputSize = *imgsz
	cfg.Addr = *addr
	if !*save {
		cfg.SnapshotDir = ""
	}

	// Missing weights is a hard startup error: a detection service that
	// cannot load its model must not come up looking healthy.
	weightsPath, err := detector.ResolveWeights(cfg.Weights)
	if err != nil {
		log.Fatalf("%v\nHint: place a .onnx or .pt weights file next to the binary, or pass --weights <path>", err)
	}

	fmt.Printf("Using weights: %s\n", weightsPath)
	if *check {
		fmt.Println("Weights resolved successfully, exiting")
		return
	}

	fmt.Println("AI Camera - Fire, Smoke and Human Detection")

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	a := app.New(app.Config{
		Store:         st,
		PluginDir:     cfg.PluginDir,
		SnapshotDir:   cfg.SnapshotDir,
		Source:        cfg.Source,
		IdleFPS:       cfg.IdleFPS,
		ActiveFPS:     cfg.ActiveFPS,
		IdleTimeoutMs: cfg.IdleTimeoutMs,
		PluginTimeout: cfg.PluginTimeout,
		RetentionDays: cfg.RetentionDays,
	})

	d, err := detector.New(detector.Config{
		Weights:       weightsPath,
		ConfThreshold: cfg.ConfThreshold,
		NMSThreshold:  cfg.NMSThreshold,
		InputSize:     cfg.InputSize,
	})
	if err != nil {
		log.Fatalf("Failed to load detection model %s: %v", weightsPath, err)
	}
	a.SetDetector(d)

	if err := a.LoadRules(); err != nil {
		log.Fatalf("Failed to load alert rules: %v", err)
	}
	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}

	staticDir := findStaticDir(cfg.StaticDir)
	if staticDir != "" {
		fmt.Printf("Serving dashboard from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir:      staticDir,
		Store:          st,
		Camera:         a.Camera(),
		Detector:       a.Detector(),
		Metrics:        a.Metrics().Handler(),
		OnRulesChanged: func() { reloadRules(a) },
	})
	a.Subscribe(srv.Alerts().Publish)

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start detection pipeline: %v", err)
	}
	defer a.Stop()

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := srv.ListenAndServe(cfg.Addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if *noTray {
		runHeadless()
		return
	}

	runTray(a, cfg.Addr)
}

// reloadRules reloads the matcher from the database after an API change.
func reloadRules(a *app.App) {
	if err := a.LoadRules(); err != nil {
		log.Printf("Failed to reload alert rules: %v", err)
	}
}

// runHeadless blocks until an interrupt or terminate signal arrives.
func runHeadless() {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	fmt.Println("Shutting down")
}

// runTray runs the system tray loop on the main goroutine, which systray
// requires. Blocks until the user quits.
func runTray(a *app.App, addr string) {
	t := tray.New()
	t.OnToggle(a.SetEnabled)
	t.OnDashboard(func() {
		if err := openBrowser(dashboardURL(addr)); err != nil {
			log.Printf("Failed to open dashboard: %v", err)
		}
	})
	a.Subscribe(func(al alert.Alert) { t.SetLastAlert(al) })

	t.Run()
}

// dashboardURL turns a listen address like ":8080" into a browsable URL.
func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

// openBrowser opens the URL in the default browser.
func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// findStaticDir searches for the dashboard directory, starting with the
// configured path and falling back to common relative locations.
func findStaticDir(configured string) string {
	candidates := []string{configured, "web", "../web", "../../web"}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			return p
		}
	}
	return ""
}
