package inbox

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/starford/dagaz/internal/bujo"
	"github.com/starford/dagaz/internal/imagestore"
	"github.com/starford/dagaz/internal/ocr"
	"github.com/starford/dagaz/internal/scan"
	"github.com/starford/dagaz/internal/store"
)

type fakeRecognizer struct {
	mu     sync.Mutex
	result ocr.Result
	err    error
	calls  int
}

func (f *fakeRecognizer) Process(_ context.Context, _ string, _ ocr.Options) (ocr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.result, f.err
}

func (f *fakeRecognizer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// watcherTestEnv sets up an inbox dir, archive, store, and scan service.
func watcherTestEnv(t *testing.T, rec *fakeRecognizer) (string, string, *scan.Service, imagestore.Store) {
	t.Helper()
	inboxDir := t.TempDir()
	archiveDir := t.TempDir()

	images, err := imagestore.NewFS(archiveDir)
	if err != nil {
		t.Fatal(err)
	}
	db, err := store.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	svc := scan.NewService(rec, bujo.New(), db)
	return inboxDir, archiveDir, svc, images
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestWatch_NewImageProcessed(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{Text: "• Buy milk", Confidence: 0.9}}
	inboxDir, archiveDir, svc, images := watcherTestEnv(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var events []string

	go Watch(ctx, svc, images, inboxDir, testLogger(), func(kind, path string) {
		mu.Lock()
		events = append(events, kind)
		mu.Unlock()
	})

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(inboxDir, "page.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return rec.callCount() == 1
	}, "image not scanned by watcher")

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		files, _ := os.ReadDir(filepath.Join(archiveDir, "processed"))
		return len(files) == 1
	}, "image not moved to processed/")

	eventually(t, 2*time.Second, 50*time.Millisecond, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, e := range events {
			if e == "processed" {
				return true
			}
		}
		return false
	}, "processed callback not fired")
}

func TestWatch_FailedScanMovedToFailed(t *testing.T) {
	rec := &fakeRecognizer{err: context.DeadlineExceeded}
	inboxDir, archiveDir, svc, images := watcherTestEnv(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, images, inboxDir, testLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(filepath.Join(inboxDir, "bad.png"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		files, _ := os.ReadDir(filepath.Join(archiveDir, "failed"))
		return len(files) == 1
	}, "image not moved to failed/")
}

func TestWatch_IgnoresNonImages(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{Text: "x", Confidence: 0.9}}
	inboxDir, _, svc, images := watcherTestEnv(t, rec)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, images, inboxDir, testLogger(), nil)

	time.Sleep(100 * time.Millisecond)

	_ = os.WriteFile(filepath.Join(inboxDir, "notes.txt"), []byte("text"), 0o644)
	_ = os.WriteFile(filepath.Join(inboxDir, "doc.pdf"), []byte("pdf"), 0o644)

	time.Sleep(settleDelay + 300*time.Millisecond)
	if rec.callCount() != 0 {
		t.Errorf("non-images scanned %d times", rec.callCount())
	}
}

func TestWatch_DrainsExistingFiles(t *testing.T) {
	rec := &fakeRecognizer{result: ocr.Result{Text: "• task", Confidence: 0.9}}
	inboxDir, archiveDir, svc, images := watcherTestEnv(t, rec)

	// File waiting before the watcher starts.
	if err := os.WriteFile(filepath.Join(inboxDir, "waiting.jpg"), []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go Watch(ctx, svc, images, inboxDir, testLogger(), nil)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		files, _ := os.ReadDir(filepath.Join(archiveDir, "processed"))
		return len(files) == 1
	}, "pre-existing file not drained")
}
