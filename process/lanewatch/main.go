package main

import (
	"flag"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"tollgate/pkg/anpr"
	"tollgate/pkg/toll"
)

// Lanewatch scans a frame inbox directory (one per checkpoint lane), runs
// every frame through the toll pipeline, and optionally keeps watching for
// new frames dropped by the camera. Each worker handles one frame at a
// time so a slow frame in one lane never blocks another.

var verbose bool

const plateMinConfidence = 0.45

func main() {
	dirFlag := flag.String("dir", "frames", "frame inbox directory to scan")
	watch := flag.Bool("watch", false, "watch directory for new frames")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	base := flag.String("base", "", "toll system base directory (default TOLL_BASE or toll_system)")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-frame logging")
	flag.Parse()

	if *base == "" {
		*base = os.Getenv("TOLL_BASE")
	}
	if *base == "" {
		*base = "toll_system"
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "lanewatch").Logger()
	pipeline, err := buildPipeline(*base, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}

	// the watcher registers before the initial scan so a frame dropped
	// while the scan runs lands in the event stream instead of vanishing;
	// a frame picked up by both paths is skipped once it has been moved
	var watcher *fsnotify.Watcher
	if *watch {
		var err error
		watcher, err = openInboxWatcher(*dirFlag)
		if err != nil {
			logger.Fatal().Err(err).Msg("watch failed")
		}
		defer watcher.Close()
	}

	files := listFrameFiles(*dirFlag)
	w := effectiveWorkers(*workers)
	logger.Info().Int("frames", len(files)).Int("workers", w).Str("dir", *dirFlag).Msg("scanning inbox")

	fileCh := make(chan string, 1024)
	var g errgroup.Group
	for i := 0; i < w; i++ {
		g.Go(func() error {
			for name := range fileCh {
				processFrame(pipeline, *dirFlag, name, logger)
			}
			return nil
		})
	}

	for _, f := range files {
		fileCh <- f
	}

	if watcher != nil {
		watchLoop(watcher, fileCh)
		// watchLoop only returns on watcher shutdown
	}
	close(fileCh)
	_ = g.Wait()
}

// buildPipeline assembles a DB-free pipeline over the toll base directory.
func buildPipeline(base string, logger zerolog.Logger) (*toll.Pipeline, error) {
	fm, err := toll.NewFileManager(base)
	if err != nil {
		return nil, err
	}
	cfg, err := toll.LoadConfig(fm.ConfigPath("config.txt"))
	if err != nil {
		return nil, err
	}
	errlog, err := toll.OpenErrorLog(fm.LogPath("error_log.txt"))
	if err != nil {
		return nil, err
	}
	txlog, err := toll.OpenTransactionLog(fm.LogPath("transaction_log.csv"))
	if err != nil {
		return nil, err
	}
	registry, err := toll.LoadRegistry(fm.ConfigPath("registered_vehicles.csv"), errlog)
	if err != nil {
		_ = errlog.Appendf("could not open registered vehicles file: %v", err)
		registry = toll.NewRegistry()
	}
	billing, err := toll.NewBillingEngine(cfg.Rates, registry)
	if err != nil {
		return nil, err
	}
	recognizer, err := anpr.NewTesseractRecognizer()
	if err != nil {
		return nil, err
	}
	return toll.NewPipeline(toll.PipelineParams{
		Localizer:  anpr.NewLocalizer(anpr.NewGradientDetector(), plateMinConfidence),
		Recognizer: recognizer,
		Registry:   registry,
		Billing:    billing,
		Files:      fm,
		TxLog:      txlog,
		ErrLog:     errlog,
		Log:        logger,
	}), nil
}

func effectiveWorkers(w int) int {
	if w <= 0 {
		return runtime.NumCPU()
	}
	return w
}

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func listFrameFiles(dir string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !isSupportedExt(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

func isSupportedExt(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
		return true
	}
	return false
}

// openInboxWatcher registers an fsnotify watcher on the inbox directory.
func openInboxWatcher(dir string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// watchLoop feeds debounced create events into fileCh. Cameras write
// frames incrementally, so a file is forwarded only after it has been
// quiet for 300ms.
func watchLoop(w *fsnotify.Watcher, fileCh chan<- string) {
	log.Printf("Watching inbox (debounced) ...")

	pending := map[string]time.Time{}
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create == fsnotify.Create {
				name := filepath.Base(ev.Name)
				if !isSupportedExt(name) {
					continue
				}
				pending[name] = time.Now()
			}
		case <-ticker.C:
			now := time.Now()
			for name, t := range pending {
				if now.Sub(t) > 300*time.Millisecond { // stable
					fileCh <- name
					delete(pending, name)
				}
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// processFrame runs one frame and moves it out of the inbox so a frame is
// processed exactly once across restarts. A frame the scan and the watcher
// both queued has already been moved by the first worker; skip it.
func processFrame(pipeline *toll.Pipeline, dir, name string, logger zerolog.Logger) {
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return
	}
	out := pipeline.ProcessFile(path)
	logV("frame %s -> %s plate=%s", name, out.Status, out.Plate)
	logger.Info().
		Str("frame", name).
		Str("status", string(out.Status)).
		Str("plate", out.Plate).
		Msg("frame processed")
	if err := moveToProcessed(dir, name); err != nil {
		logger.Warn().Err(err).Str("frame", name).Msg("failed to move processed frame")
	}
}

// moveToProcessed moves a frame into <dir>/processed/<name>, attempting an
// atomic rename and falling back to copy+remove across filesystems.
func moveToProcessed(dir, name string) error {
	processedDir := filepath.Join(dir, "processed")
	if err := os.MkdirAll(processedDir, 0o755); err != nil {
		return err
	}
	src := filepath.Join(dir, name)
	dst := filepath.Join(processedDir, name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	return copyRemove(src, dst)
}

func copyRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	_ = out.Close()
	return os.Remove(src)
}
