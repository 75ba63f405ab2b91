package util

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestLoadFilesSkipsVCSAndNodeModules(t *testing.T) {
	root := t.TempDir()
	write := func(rel, content string) {
		p := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("index.js", "module.exports = 1")
	write("lib/a.py", "print('a')")
	write(".git/config", "[core]")
	write("node_modules/x/index.js", "evil()")

	files, err := LoadFiles([]string{root})
	if err != nil {
		t.Fatal(err)
	}
	got := []string{}
	for _, f := range files {
		got = append(got, f.Path)
	}
	sort.Strings(got)
	want := []string{"index.js", "lib/a.py"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected files (-want +got):\n%s", diff)
	}
}

func TestFindFilesSingleFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "setup.py")
	if err := os.WriteFile(p, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	found := FindFiles([]string{p, filepath.Join(dir, "missing")})
	if len(found) != 1 {
		t.Fatalf("got %d files", len(found))
	}
	if found[0].RelativePath() != "setup.py" {
		t.Errorf("relative path = %q", found[0].RelativePath())
	}
}

func TestLoggerDefaultsToNoop(t *testing.T) {
	if Logger() == nil {
		t.Fatal("logger must never be nil")
	}
	Log("quiet %d", 1)
}
