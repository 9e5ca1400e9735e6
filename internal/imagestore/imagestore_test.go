package imagestore

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveUpload_DedupesByContent(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}

	first, err := fs.SaveUpload("page.jpg", []byte("same-bytes"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	second, err := fs.SaveUpload("other-name.jpg", []byte("same-bytes"))
	if err != nil {
		t.Fatalf("SaveUpload: %v", err)
	}
	if first != second {
		t.Errorf("same content stored twice: %s vs %s", first, second)
	}
	if filepath.Ext(first) != ".jpg" {
		t.Errorf("extension lost: %s", first)
	}
	if data, _ := os.ReadFile(first); string(data) != "same-bytes" {
		t.Errorf("content = %q", data)
	}
}

func TestSaveUpload_DistinctContent(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	a, _ := fs.SaveUpload("a.png", []byte("aaa"))
	b, _ := fs.SaveUpload("b.png", []byte("bbb"))
	if a == b {
		t.Error("distinct content should get distinct names")
	}
}

func TestMoveProcessedAndFailed(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}

	inbox := t.TempDir()
	src := filepath.Join(inbox, "scan.png")
	if err := os.WriteFile(src, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest, err := fs.MoveProcessed(src)
	if err != nil {
		t.Fatalf("MoveProcessed: %v", err)
	}
	if filepath.Dir(dest) != filepath.Join(root, "processed") {
		t.Errorf("dest = %s", dest)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("source should be gone after move")
	}

	src2 := filepath.Join(inbox, "bad.png")
	if err := os.WriteFile(src2, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	dest2, err := fs.MoveFailed(src2)
	if err != nil {
		t.Fatalf("MoveFailed: %v", err)
	}
	if filepath.Dir(dest2) != filepath.Join(root, "failed") {
		t.Errorf("dest = %s", dest2)
	}
}

func TestMoveProcessed_CollisionGetsTimestamp(t *testing.T) {
	root := t.TempDir()
	fs, err := NewFS(root)
	if err != nil {
		t.Fatal(err)
	}
	inbox := t.TempDir()

	for i := 0; i < 2; i++ {
		src := filepath.Join(inbox, "scan.png")
		if err := os.WriteFile(src, []byte("img"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := fs.MoveProcessed(src); err != nil {
			t.Fatalf("MoveProcessed #%d: %v", i, err)
		}
	}

	files, err := os.ReadDir(filepath.Join(root, "processed"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("files = %d, want 2", len(files))
	}
}

func TestSafePath_RejectsTraversal(t *testing.T) {
	fs, err := NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.safePath("../escape.png"); err == nil {
		t.Error("traversal should be rejected")
	}
	if _, err := fs.safePath("/etc/passwd"); err == nil {
		t.Error("absolute path should be rejected")
	}
}
