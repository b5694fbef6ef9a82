package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"photokeep/internal/catalog"
	"photokeep/internal/hasher"
	"photokeep/internal/logging"
	"photokeep/internal/media"
	"photokeep/internal/memory"
	"photokeep/internal/metrics"
	"photokeep/internal/scanner"
	"photokeep/internal/startup"
	"photokeep/internal/syncer"
	"photokeep/internal/vpath"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Set the heap limit before image decoding starts allocating
	memory.Configure()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	// Initialize catalog store
	storeStart := time.Now()
	store, err := catalog.Open(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to initialize catalog: %v", err)
	}
	defer store.Close()
	startup.LogCatalogInit(time.Since(storeStart))

	// Initialize thumbnail pipeline
	startup.LogThumbnailInit(config.ThumbnailsEnabled)
	if err := media.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using pure-Go image path: %v", err)
	}
	defer media.ShutdownVips()

	// Build the scan pipeline with its collaborators
	resolver := vpath.NewResolver(config.LibraryDir)
	scanSvc := syncer.New(
		store,
		scanner.New(config.LibraryDir),
		hasher.NewSHA256(),
		media.NewExtractor(),
		media.NewThumbnailGenerator(config.ThumbnailDir),
		catalog.NewQueue(store),
		resolver,
	)

	startup.LogSyncerInit(config.ScanInterval, config.ScanOnStart)

	metrics.InitializeMetrics()

	// Scan loop runs until the shutdown signal cancels its context
	scanCtx, cancelScans := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		runScanLoop(scanCtx, scanSvc, config.ScanInterval, config.ScanOnStart)
	}()

	// Health and metrics listener
	var srv *http.Server
	if config.MetricsEnabled {
		srv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     setupRouter(store, scanSvc),
			ReadTimeout: 15 * time.Second,
			IdleTimeout: 60 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()

		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-scanCtx.Done():
					return
				case <-ticker.C:
					store.UpdateDBMetrics()
				}
			}
		}()
	}

	startup.LogServiceStarted(startup.ServiceConfig{
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})

	// Block until a termination signal arrives
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	startup.LogShutdownStep("Stopping scan loop")
	cancelScans()
	wg.Wait()
	startup.LogShutdownStepComplete("Scan loop stopped")

	if srv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Compacting catalog")
	if err := store.Vacuum(); err != nil {
		logging.Warn("Catalog vacuum failed: %v", err)
	} else {
		startup.LogShutdownStepComplete("Catalog compacted")
	}

	startup.LogShutdownComplete()
}

// runScanLoop runs the startup scan and then re-scans on the
// configured interval. An interval of zero disables periodic scans;
// the loop then only serves the startup scan.
func runScanLoop(ctx context.Context, scanSvc *syncer.Syncer, interval time.Duration, scanOnStart bool) {
	if scanOnStart {
		runScan(ctx, scanSvc)
	}

	if interval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runScan(ctx, scanSvc)
		}
	}
}

// runScan consumes one streamed scan, logging progress checkpoints
// and the final summary.
func runScan(ctx context.Context, scanSvc *syncer.Syncer) {
	for p := range scanSvc.ScanStream(ctx) {
		if !p.Completed {
			logging.Debug("Scan progress: %s (%d%%)", p.Message, p.Percentage)
			continue
		}
		if p.Error != "" {
			logging.Error("Scan failed: %s", p.Error)
			continue
		}
		st := p.Statistics
		logging.Info("Scan complete in %s: %d files, %d new, %d updated, %d moved, %d duplicates removed, %d orphans removed",
			st.Duration, st.TotalFilesFound, st.NewFiles, st.UpdatedFiles, st.MovedFiles,
			st.DuplicateAssetsRemoved, st.OrphanedFilesRemoved)
	}
}

func setupRouter(store *catalog.Store, scanSvc *syncer.Syncer) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", healthHandler(store, scanSvc)).Methods("GET")
	r.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	r.HandleFunc("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(startup.GetBuildInfo()); err != nil {
			logging.Warn("Failed to encode version response: %v", err)
		}
	}).Methods("GET")
	return r
}

func healthHandler(store *catalog.Store, scanSvc *syncer.Syncer) http.HandlerFunc {
	type health struct {
		Status       string            `json:"status"`
		ScanRunning  bool              `json:"scanRunning"`
		LastScanTime *time.Time        `json:"lastScanTime,omitempty"`
		LastScan     *catalog.LastScan `json:"lastScan,omitempty"`
	}

	return func(w http.ResponseWriter, _ *http.Request) {
		h := health{
			Status:      "ok",
			ScanRunning: scanSvc.IsRunning(),
			LastScan:    store.LastScan(),
		}
		if t := scanSvc.LastScanTime(); !t.IsZero() {
			h.LastScanTime = &t
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(h); err != nil {
			logging.Warn("Failed to encode health response: %v", err)
		}
	}
}
