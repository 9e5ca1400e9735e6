// Package inbox watches a drop directory for scanned page images and feeds
// them through the scan pipeline. Processed images move to the archive's
// processed/ directory, failures to failed/.
package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/dagaz/internal/imagestore"
	"github.com/starford/dagaz/internal/ocr"
	"github.com/starford/dagaz/internal/scan"
)

// settleDelay is how long a file must stay quiet before it is processed.
// Phone sync tools and scanners write images in multiple chunks.
const settleDelay = 500 * time.Millisecond

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".heic": true,
}

// EventCallback is called after a file is handled.
// kind is one of "processed", "failed".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the inbox directory and processes
// image drops until ctx is cancelled. Files already sitting in the inbox at
// startup are processed first. It calls cb (if non-nil) after each file.
func Watch(ctx context.Context, svc *scan.Service, images imagestore.Store, inboxDir string, logger *slog.Logger, cb EventCallback) error {
	if err := os.MkdirAll(inboxDir, 0o755); err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(inboxDir); err != nil {
		return err
	}

	logger.Info("inbox: started", slog.String("dir", inboxDir))

	process := func(path string) {
		if _, statErr := os.Stat(path); statErr != nil {
			return // moved away before settle
		}
		_, scanErr := svc.ScanImage(ctx, path, ocr.Options{})
		if scanErr != nil {
			logger.Warn("inbox: scan failed",
				slog.String("path", path), slog.String("error", scanErr.Error()))
			if _, mvErr := images.MoveFailed(path); mvErr != nil {
				logger.Error("inbox: move to failed dir failed",
					slog.String("path", path), slog.String("error", mvErr.Error()))
			}
			if cb != nil {
				cb("failed", path)
			}
			return
		}
		if _, mvErr := images.MoveProcessed(path); mvErr != nil {
			logger.Error("inbox: move to processed dir failed",
				slog.String("path", path), slog.String("error", mvErr.Error()))
		}
		logger.Debug("inbox: processed", slog.String("path", path))
		if cb != nil {
			cb("processed", path)
		}
	}

	// Drain anything already waiting.
	drainExisting(inboxDir, process)

	// Per-file debounce timers; a timer fires once writes go quiet.
	timers := make(map[string]*time.Timer)
	settled := make(chan string, 64)

	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("inbox: stopped")
			return nil

		case path := <-settled:
			delete(timers, path)
			process(path)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !imageExts[strings.ToLower(filepath.Ext(ev.Name))] {
				continue
			}
			path := ev.Name
			if t, exists := timers[path]; exists {
				t.Reset(settleDelay)
			} else {
				timers[path] = time.AfterFunc(settleDelay, func() {
					select {
					case settled <- path:
					case <-ctx.Done():
					}
				})
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("inbox: watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

func drainExisting(dir string, process func(string)) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		process(filepath.Join(dir, e.Name()))
	}
}
