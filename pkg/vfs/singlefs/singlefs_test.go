package singlefs

import (
	"testing"

	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/vfs"
	"github.com/picofiber/picofiber/pkg/vfs/ramfs"
)

func writeFile(t *testing.T, fs *FS, path, contents string) {
	t.Helper()
	h, err := fs.Open(path, vfs.WriteOnly)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	if _, err := fs.Write(h, []byte(contents)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if err := fs.Close(h); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
}

func readFile(t *testing.T, fs *FS, path string) string {
	t.Helper()
	h, err := fs.Open(path, vfs.ReadOnly)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer fs.Close(h)
	buf := make([]byte, 4096)
	var out []byte
	for {
		n, err := fs.Read(h, buf)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if n == 0 {
			break
		}
		out = append(out, buf[:n]...)
	}
	return string(out)
}

func TestCopyfile(t *testing.T) {
	fs := New(ramfs.New())
	writeFile(t, fs, "src.txt", "hello copyfile")

	if err := fs.Copyfile("src.txt", "dst.txt"); err != nil {
		t.Fatalf("copyfile: %v", err)
	}
	if got := readFile(t, fs, "dst.txt"); got != "hello copyfile" {
		t.Errorf("dst contents = %q", got)
	}
}

func TestCopytreeAndRmtree(t *testing.T) {
	fs := New(ramfs.New())
	if err := fs.Mkdir("src"); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFile(t, fs, "src/a.txt", "A")
	if err := fs.Mkdir("src/sub"); err != nil {
		t.Fatalf("mkdir sub: %v", err)
	}
	writeFile(t, fs, "src/sub/b.txt", "B")

	if err := fs.Copytree("src", "dst"); err != nil {
		t.Fatalf("copytree: %v", err)
	}
	if got := readFile(t, fs, "dst/a.txt"); got != "A" {
		t.Errorf("dst/a.txt = %q", got)
	}
	if got := readFile(t, fs, "dst/sub/b.txt"); got != "B" {
		t.Errorf("dst/sub/b.txt = %q", got)
	}

	if err := fs.Rmtree("src"); err != nil {
		t.Fatalf("rmtree: %v", err)
	}
	if _, err := fs.Stat("src"); !perr.Is(err, perr.NoEntry) {
		t.Errorf("src still exists after rmtree: %v", err)
	}
}

func TestWalktreeShortCircuit(t *testing.T) {
	fs := New(ramfs.New())
	fs.Mkdir("d")
	writeFile(t, fs, "d/a.txt", "A")
	writeFile(t, fs, "d/b.txt", "B")

	var visited []string
	err := fs.Walktree("d", func(path string, st vfs.Stat) (bool, error) {
		visited = append(visited, path)
		return len(visited) < 2, nil
	})
	if err != nil {
		t.Fatalf("walktree: %v", err)
	}
	if len(visited) != 2 {
		t.Fatalf("visited = %v, want 2 entries before short-circuit", visited)
	}
}

func TestMakedirs(t *testing.T) {
	fs := New(ramfs.New())
	if err := fs.Makedirs("/a/b/c", false); err != nil {
		t.Fatalf("makedirs: %v", err)
	}
	st, err := fs.Stat("/a/b/c")
	if err != nil || !st.IsDir() {
		t.Fatalf("stat /a/b/c = %+v, %v", st, err)
	}

	if err := fs.Makedirs("/a/b/c", false); !perr.Is(err, perr.Exist) {
		t.Errorf("re-makedirs without existOK: err = %v, want Exist", err)
	}
	if err := fs.Makedirs("/a/b/c", true); err != nil {
		t.Errorf("re-makedirs with existOK: err = %v, want nil", err)
	}
}

func TestChdirTracksFrontEndCwd(t *testing.T) {
	fs := New(ramfs.New())
	fs.Mkdir("sub")
	if err := fs.Chdir("sub"); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	cwd, err := fs.Getcwd(make([]byte, 0, 256))
	if err != nil || cwd != "/sub" {
		t.Fatalf("getcwd = %q, %v, want /sub", cwd, err)
	}
	writeFile(t, fs, "rel.txt", "R")
	if got := readFile(t, fs, "/sub/rel.txt"); got != "R" {
		t.Errorf("relative write landed at wrong path: %q", got)
	}
}
