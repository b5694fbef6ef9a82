package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"photokeep/internal/catalog"
	"photokeep/internal/hasher"
	"photokeep/internal/media"
	"photokeep/internal/scanner"
	"photokeep/internal/syncer"
	"photokeep/internal/vpath"
)

const (
	defaultLibraryDir = "/library"
	defaultDataDir    = "/data"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	libraryDir := getEnv("LIBRARY_DIR", defaultLibraryDir)
	dataDir := getEnv("DATA_DIR", defaultDataDir)
	thumbnailDir := getEnv("THUMBNAIL_DIR", filepath.Join(dataDir, "thumbnails"))

	store, err := catalog.Open(ctx, filepath.Join(dataDir, "photokeep.db"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to open catalog: %v\n", err)
		fmt.Fprintf(os.Stderr, "Make sure DATA_DIR is set correctly (current: %s)\n", dataDir)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to close catalog: %v\n", err)
		}
	}()

	switch command {
	case "scan":
		if !runScan(ctx, store, libraryDir, thumbnailDir) {
			os.Exit(1)
		}
	case "status":
		if !showStatus(ctx, store) {
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %q\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage: scanctl <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  scan    Run a single catalog scan and print the summary")
	fmt.Fprintln(os.Stderr, "  status  Show catalog counts and the last scan summary")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Environment: LIBRARY_DIR, DATA_DIR, THUMBNAIL_DIR")
}

func runScan(ctx context.Context, store *catalog.Store, libraryDir, thumbnailDir string) bool {
	if err := media.InitVips(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: libvips unavailable, using pure-Go image path: %v\n", err)
	}
	defer media.ShutdownVips()

	sync := syncer.New(
		store,
		scanner.New(libraryDir),
		hasher.NewSHA256(),
		media.NewExtractor(),
		media.NewThumbnailGenerator(thumbnailDir),
		catalog.NewQueue(store),
		vpath.NewResolver(libraryDir),
	)

	fmt.Printf("Scanning %s...\n", libraryDir)
	stats, err := sync.Scan(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: scan failed: %v\n", err)
		return false
	}

	fmt.Print(formatSummary(stats))
	return true
}

func showStatus(ctx context.Context, store *catalog.Store) bool {
	assets, err := store.CountAssets(ctx, store.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to count assets: %v\n", err)
		return false
	}
	folders, err := store.CountFolders(ctx, store.DB())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to count folders: %v\n", err)
		return false
	}

	fmt.Printf("Assets:  %d\n", assets)
	fmt.Printf("Folders: %d\n", folders)

	last := store.LastScan()
	if last == nil {
		fmt.Println("Last scan: never")
		return true
	}
	fmt.Printf("Last scan: %s (%d assets, %d new, %d updated, %d moved, %d removed)\n",
		last.FinishedAt.Format("2006-01-02 15:04:05"),
		last.TotalAssets, last.NewFiles, last.UpdatedFiles, last.MovedFiles, last.RemovedFiles)
	return true
}

func formatSummary(stats *syncer.Statistics) string {
	return fmt.Sprintf(
		"Scan complete in %s\n"+
			"  Files found:         %d\n"+
			"  New:                 %d\n"+
			"  Updated:             %d\n"+
			"  Moved:               %d\n"+
			"  Unchanged:           %d\n"+
			"  Failed:              %d\n"+
			"  Duplicates removed:  %d\n"+
			"  Orphans removed:     %d assets, %d folders\n",
		stats.Duration,
		stats.TotalFilesFound,
		stats.NewFiles,
		stats.UpdatedFiles,
		stats.MovedFiles,
		stats.UnchangedFiles,
		stats.FailedFiles,
		stats.DuplicateAssetsRemoved,
		stats.OrphanedFilesRemoved,
		stats.OrphanedFoldersRemoved,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
