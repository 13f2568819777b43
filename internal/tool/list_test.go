package tool

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestListTool_DirectoriesBeforeFilesAlphabetical(t *testing.T) {
	dir := t.TempDir()
	mustMkdir(t, filepath.Join(dir, "zdir"))
	mustMkdir(t, filepath.Join(dir, "adir"))
	mustWrite(t, filepath.Join(dir, "b.txt"), "hi")
	mustWrite(t, filepath.Join(dir, "a.txt"), "hello")

	lt := &ListTool{}
	res := lt.Execute(context.Background(), map[string]any{}, dir)
	if res.IsError {
		t.Fatalf("unexpected error: %s", res.Output)
	}

	wantOrder := []string{"adir/", "zdir/", "a.txt (5 bytes)", "b.txt (2 bytes)"}
	lastIdx := -1
	for _, want := range wantOrder {
		idx := indexOf(res.Output, want)
		if idx == -1 {
			t.Fatalf("expected output to contain %q, got:\n%s", want, res.Output)
		}
		if idx < lastIdx {
			t.Fatalf("expected %q to appear after previous entries, got:\n%s", want, res.Output)
		}
		lastIdx = idx
	}
}

func TestListTool_HidesDotfilesByDefault(t *testing.T) {
	dir := t.TempDir()
	mustWrite(t, filepath.Join(dir, ".hidden"), "x")
	mustWrite(t, filepath.Join(dir, "visible.txt"), "y")

	lt := &ListTool{}
	res := lt.Execute(context.Background(), map[string]any{}, dir)
	if indexOf(res.Output, ".hidden") != -1 {
		t.Fatalf("expected .hidden to be omitted by default, got:\n%s", res.Output)
	}
	if indexOf(res.Output, "visible.txt") == -1 {
		t.Fatalf("expected visible.txt to be listed, got:\n%s", res.Output)
	}

	res = lt.Execute(context.Background(), map[string]any{"show_hidden": true}, dir)
	if indexOf(res.Output, ".hidden") == -1 {
		t.Fatalf("expected .hidden to be listed with show_hidden, got:\n%s", res.Output)
	}
}

func TestListTool_EmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	lt := &ListTool{}
	res := lt.Execute(context.Background(), map[string]any{}, dir)
	if indexOf(res.Output, "(empty directory)") == -1 {
		t.Fatalf("expected empty directory message, got:\n%s", res.Output)
	}
}

func TestListTool_NotFound(t *testing.T) {
	lt := &ListTool{}
	res := lt.Execute(context.Background(), map[string]any{"path": "/no/such/dir"}, t.TempDir())
	if !res.IsError {
		t.Fatal("expected an error for a nonexistent directory")
	}
}

func TestListTool_RequiresPermissionIsFalse(t *testing.T) {
	lt := &ListTool{}
	if lt.RequiresPermission() {
		t.Fatal("List should never require permission")
	}
}

func mustMkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.Mkdir(path, 0o755); err != nil {
		t.Fatal(err)
	}
}

func mustWrite(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}
