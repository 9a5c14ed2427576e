package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/LavishGent/larder/internal/cache"
	"github.com/LavishGent/larder/internal/config"
	"github.com/LavishGent/larder/internal/types"
)

type note struct {
	Title string `json:"title"`
	Pages int    `json:"pages"`
}

// seed writes notes into dir/name with strictly increasing access times,
// so the last key is the most recently used.
func seed(t *testing.T, dir, name string, keys ...string) {
	t.Helper()

	cfg := config.ForTestingAt(dir)
	cfg.Disk.Name = name

	base := time.Now().Add(-time.Minute)
	tick := 0
	opts := &types.Options{Clock: func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}}

	disk, err := cache.NewDiskCache[note](cfg, opts)
	if err != nil {
		t.Fatalf("NewDiskCache: %v", err)
	}
	for i, k := range keys {
		if !disk.Set(k, note{Title: k, Pages: i + 1}, 0) {
			t.Fatalf("Set(%q) failed", k)
		}
	}
	if err := disk.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func run(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()

	var out, errOut bytes.Buffer
	code = Run(&out, &errOut, append([]string{"larder"}, args...), map[string]string{})
	return out.String(), errOut.String(), code
}

func TestRunUsage(t *testing.T) {
	t.Run("no command prints usage", func(t *testing.T) {
		out, _, code := run(t)
		if code != 0 {
			t.Errorf("exit = %d, want 0", code)
		}
		if !strings.Contains(out, "Usage: larder") {
			t.Errorf("stdout = %q, want usage", out)
		}
	})

	t.Run("unknown command fails", func(t *testing.T) {
		_, errOut, code := run(t, "--dir", t.TempDir(), "frobnicate")
		if code != 1 {
			t.Errorf("exit = %d, want 1", code)
		}
		if !strings.Contains(errOut, "unknown command: frobnicate") {
			t.Errorf("stderr = %q", errOut)
		}
	})

	t.Run("bad flag fails", func(t *testing.T) {
		_, errOut, code := run(t, "--bogus")
		if code != 1 {
			t.Errorf("exit = %d, want 1", code)
		}
		if !strings.HasPrefix(errOut, "error:") {
			t.Errorf("stderr = %q", errOut)
		}
	})
}

func TestKeys(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "notes", "a", "b", "c")

	out, errOut, code := run(t, "--dir", dir, "--name", "notes", "keys")
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
	got := strings.Fields(out)
	if diff := cmp.Diff([]string{"c", "b", "a"}, got); diff != "" {
		t.Errorf("keys mismatch (-want +got):\n%s", diff)
	}

	out, _, _ = run(t, "--dir", dir, "--name", "notes", "keys", "--limit", "2")
	if diff := cmp.Diff([]string{"c", "b"}, strings.Fields(out)); diff != "" {
		t.Errorf("limited keys mismatch (-want +got):\n%s", diff)
	}
}

func TestGet(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "notes", "alpha")

	out, errOut, code := run(t, "--dir", dir, "--name", "notes", "get", "alpha")
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, `"title": "alpha"`) || !strings.Contains(out, `"pages": 1`) {
		t.Errorf("stdout = %q, want indented note", out)
	}

	_, errOut, code = run(t, "--dir", dir, "--name", "notes", "get", "missing")
	if code != 1 {
		t.Errorf("missing key exit = %d, want 1", code)
	}
	if !strings.Contains(errOut, "missing: not found") {
		t.Errorf("stderr = %q", errOut)
	}

	_, errOut, code = run(t, "--dir", dir, "--name", "notes", "get")
	if code != 1 || !strings.Contains(errOut, errKeyRequired.Error()) {
		t.Errorf("no key: exit = %d, stderr = %q", code, errOut)
	}
}

func TestRemoveAndClear(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "notes", "a", "b", "c")

	out, errOut, code := run(t, "--dir", dir, "--name", "notes", "rm", "a", "zzz")
	if code != 0 {
		t.Fatalf("rm exit = %d, stderr = %q", code, errOut)
	}
	if want := "Removed 1 of 2 keys"; !strings.Contains(out, want) {
		t.Errorf("rm stdout = %q, want %q", out, want)
	}

	out, _, _ = run(t, "--dir", dir, "--name", "notes", "stats")
	if !strings.Contains(out, "entries:     2") {
		t.Errorf("stats after rm = %q", out)
	}

	out, _, code = run(t, "--dir", dir, "--name", "notes", "clear")
	if code != 0 || !strings.Contains(out, "Cleared 2 entries") {
		t.Errorf("clear: exit = %d, stdout = %q", code, out)
	}

	out, _, _ = run(t, "--dir", dir, "--name", "notes", "keys")
	if strings.TrimSpace(out) != "" {
		t.Errorf("keys after clear = %q, want empty", out)
	}
}

func TestSweep(t *testing.T) {
	dir := t.TempDir()
	seed(t, dir, "notes", "a", "b", "c", "d")

	cfgPath := filepath.Join(dir, "larder.json")
	body := `{
		// trim down to two entries
		"disk": {"totalCountLimit": 2},
	}`
	if err := os.WriteFile(cfgPath, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	out, errOut, code := run(t, "-c", cfgPath, "--dir", dir, "--name", "notes", "sweep")
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "by_count: 2") {
		t.Errorf("stdout = %q, want by_count: 2", out)
	}

	out, _, _ = run(t, "--dir", dir, "--name", "notes", "keys")
	if diff := cmp.Diff([]string{"d", "c"}, strings.Fields(out)); diff != "" {
		t.Errorf("survivors mismatch (-want +got):\n%s", diff)
	}
}

func TestInitConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "larder.json")

	out, errOut, code := run(t, "--dir", dir, "--name", "thumbs", "init-config", path)
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, "Wrote "+path) {
		t.Errorf("stdout = %q", out)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load(written config): %v", err)
	}
	if cfg.Disk.Path != dir || cfg.Disk.Name != "thumbs" {
		t.Errorf("Disk = %q/%q, want %q/thumbs", cfg.Disk.Path, cfg.Disk.Name, dir)
	}

	_, errOut, code = run(t, "init-config", path)
	if code != 1 || !strings.Contains(errOut, "already exists") {
		t.Errorf("second write: exit = %d, stderr = %q", code, errOut)
	}

	_, errOut, code = run(t, "init-config", "--force", path)
	if code != 0 {
		t.Errorf("forced write: exit = %d, stderr = %q", code, errOut)
	}
}

func TestPrintConfig(t *testing.T) {
	dir := t.TempDir()

	out, errOut, code := run(t, "--dir", dir, "--name", "n1", "print-config")
	if code != 0 {
		t.Fatalf("exit = %d, stderr = %q", code, errOut)
	}
	if !strings.Contains(out, `"name": "n1"`) {
		t.Errorf("stdout = %q, want disk name", out)
	}
}
