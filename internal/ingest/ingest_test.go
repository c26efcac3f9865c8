package ingest

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestAllowedExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{".pdf", true},
		{"PDF", true},
		{".JPeg", true},
		{"png", true},
		{".docx", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := AllowedExt(tt.ext); got != tt.want {
			t.Errorf("AllowedExt(%q) = %v, want %v", tt.ext, got, tt.want)
		}
	}
}

func TestIsHiddenAndPartial(t *testing.T) {
	if !IsHidden("/inbox/.DS_Store") || IsHidden("/inbox/contract.pdf") {
		t.Error("IsHidden misclassified")
	}
	for _, p := range []string{"a.pdf.part", "b.pdf.crdownload", "~$draft.pdf", "x.TMP"} {
		if !IsPartial(p) {
			t.Errorf("IsPartial(%q) = false", p)
		}
	}
	if IsPartial("contract.pdf") {
		t.Error("IsPartial(contract.pdf) = true")
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.pdf"))
	writeFile(t, filepath.Join(root, "sub", "b.PNG"))
	writeFile(t, filepath.Join(root, "notes.txt"))
	writeFile(t, filepath.Join(root, ".hidden", "c.pdf"))
	writeFile(t, filepath.Join(root, ".d.pdf"))
	writeFile(t, filepath.Join(root, "e.pdf.part"))

	files, stats, err := Discover(root, true)
	if err != nil {
		t.Fatalf("Discover: %v", err)
	}
	sort.Strings(files)
	want := []string{filepath.Join(root, "a.pdf"), filepath.Join(root, "sub", "b.PNG")}
	if len(files) != len(want) {
		t.Fatalf("files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %s, want %s", i, files[i], want[i])
		}
	}
	if stats.Matched != 2 {
		t.Errorf("matched = %d, want 2", stats.Matched)
	}

	all, _, err := Discover(root, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("without skipHidden found %d files, want 4", len(all))
	}
}

func TestDiscoverRequiresRoot(t *testing.T) {
	if _, _, err := Discover("  ", false); err == nil {
		t.Error("expected error for empty root")
	}
	if _, _, err := Discover(filepath.Join(t.TempDir(), "missing"), false); err == nil {
		t.Error("expected error for missing root")
	}
}

func receive(t *testing.T, ch <-chan string, within time.Duration) (string, bool) {
	t.Helper()
	select {
	case p, ok := <-ch:
		return p, ok
	case <-time.After(within):
		return "", false
	}
}

func TestWatcherEmitsInitialAndNewFiles(t *testing.T) {
	root := t.TempDir()
	existing := filepath.Join(root, "existing.pdf")
	writeFile(t, existing)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{root},
		InitialScan: true,
		Debounce:    50 * time.Millisecond,
		SkipHidden:  true,
	}, nil)
	if err != nil {
		t.Fatalf("StartWatcher: %v", err)
	}

	if p, ok := receive(t, events, 2*time.Second); !ok || p != existing {
		t.Fatalf("initial event = %q, %v", p, ok)
	}

	created := filepath.Join(root, "new.pdf")
	writeFile(t, filepath.Join(root, "ignored.txt"))
	writeFile(t, created)

	p, ok := receive(t, events, 3*time.Second)
	if !ok || p != created {
		t.Fatalf("event = %q, %v; want %s", p, ok, created)
	}
	// create and write of one file collapse into one emission
	if extra, ok := receive(t, events, 300*time.Millisecond); ok {
		t.Errorf("unexpected second event %q", extra)
	}

	cancel()
	for range events {
	}
}

func TestWatcherRequiresRoots(t *testing.T) {
	if _, _, err := StartWatcher(context.Background(), WatchConfig{}, nil); err == nil {
		t.Fatal("expected error without roots")
	}
}
