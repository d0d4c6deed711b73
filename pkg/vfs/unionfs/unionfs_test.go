package unionfs

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
	n, err := fs.Read(h, buf)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(buf[:n])
}

// TestScenarioD_UnionMountLongestPrefix reproduces spec Scenario D.
func TestScenarioD_UnionMountLongestPrefix(t *testing.T) {
	backendA := ramfs.New()
	backendB := ramfs.New()
	if err := backendB.Mkdir("home"); err != nil {
		t.Fatalf("mkdir home on B: %v", err)
	}

	u := New()
	if err := u.Mount("/", "/", backendA); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := backendA.Mkdir("mnt"); err != nil {
		t.Fatalf("mkdir mnt on A: %v", err)
	}
	if err := u.Mount("/mnt", "/home", backendB); err != nil {
		t.Fatalf("mount /mnt: %v", err)
	}

	writeFile(t, u, "/test.txt", "A")
	writeFile(t, u, "/mnt/test.txt", "B")

	if got := readFile(t, u, "/test.txt"); got != "A" {
		t.Errorf("/test.txt = %q, want A", got)
	}
	if got := readFile(t, u, "/mnt/test.txt"); got != "B" {
		t.Errorf("/mnt/test.txt = %q, want B", got)
	}

	stA, err := backendA.Stat("/test.txt")
	if err != nil || stA.Size != 1 {
		t.Errorf("backendA direct stat = %+v, %v", stA, err)
	}
	stB, err := backendB.Stat("/home/test.txt")
	if err != nil || stB.Size != 1 {
		t.Errorf("backendB direct stat = %+v, %v", stB, err)
	}
}

// TestScenarioF_CrossMountRename reproduces spec Scenario F.
func TestScenarioF_CrossMountRename(t *testing.T) {
	backendA := ramfs.New()
	backendB := ramfs.New()
	if err := backendB.Mkdir("data"); err != nil {
		t.Fatalf("mkdir data on B: %v", err)
	}

	u := New()
	if err := u.Mount("/", "/", backendA); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := backendA.Mkdir("b"); err != nil {
		t.Fatalf("mkdir b on A: %v", err)
	}
	if err := u.Mount("/b", "/data", backendB); err != nil {
		t.Fatalf("mount /b: %v", err)
	}

	writeFile(t, u, "/src.txt", "payload")

	if err := u.Rename("/src.txt", "/b/dst.txt"); err != nil {
		t.Fatalf("rename: %v", err)
	}

	if got := readFile(t, u, "/b/dst.txt"); got != "payload" {
		t.Errorf("/b/dst.txt = %q, want payload", got)
	}
	if _, err := u.Stat("/src.txt"); !perr.Is(err, perr.NoEntry) {
		t.Errorf("source still exists: %v", err)
	}

	dh, err := u.Opendir("/b")
	if err != nil {
		t.Fatalf("opendir /b: %v", err)
	}
	var names []string
	for {
		entry, ok, err := u.Readdir(dh)
		if err != nil {
			t.Fatalf("readdir: %v", err)
		}
		if !ok {
			break
		}
		names = append(names, entry.Name)
	}
	u.Closedir(dh)
	if len(names) != 1 || names[0] != "dst.txt" {
		t.Errorf("/b readdir = %v, want [dst.txt]", names)
	}
}

func TestMountFirstMustBeRoot(t *testing.T) {
	u := New()
	if err := u.Mount("/mnt", "/", ramfs.New()); !perr.Is(err, perr.Invalid) {
		t.Errorf("err = %v, want Invalid", err)
	}
}

func TestMountRequiresExistingDirectoryParent(t *testing.T) {
	u := New()
	if err := u.Mount("/", "/", ramfs.New()); err != nil {
		t.Fatalf("mount root: %v", err)
	}
	if err := u.Mount("/nope/sub", "/", ramfs.New()); err == nil {
		t.Errorf("mount under nonexistent parent should fail")
	}
}

func TestRemoveMountPointIsBusy(t *testing.T) {
	backendA := ramfs.New()
	backendB := ramfs.New()
	u := New()
	u.Mount("/", "/", backendA)
	if err := backendA.Mkdir("mnt"); err != nil {
		t.Fatalf("mkdir mnt: %v", err)
	}
	if err := u.Mount("/mnt", "/", backendB); err != nil {
		t.Fatalf("mount /mnt: %v", err)
	}
	if err := u.Remove("/mnt"); !perr.Is(err, perr.Busy) {
		t.Errorf("err = %v, want Busy", err)
	}
}

func TestUmountRefusesCwdAndSubmounts(t *testing.T) {
	backendA := ramfs.New()
	backendB := ramfs.New()
	backendC := ramfs.New()
	u := New()
	u.Mount("/", "/", backendA)
	backendA.Mkdir("mnt")
	u.Mount("/mnt", "/", backendB)
	backendB.Mkdir("sub")
	u.Mount("/mnt/sub", "/", backendC)

	if err := u.Umount("/mnt"); !perr.Is(err, perr.Busy) {
		t.Errorf("umount with submount err = %v, want Busy", err)
	}
	if err := u.Chdir("/mnt/sub"); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	if err := u.Umount("/mnt/sub"); !perr.Is(err, perr.Busy) {
		t.Errorf("umount cwd err = %v, want Busy", err)
	}
}

func TestStatMountPointSyntheticVsDelegated(t *testing.T) {
	backendA := ramfs.New()
	backendB := ramfs.New()
	u := New()
	u.Mount("/", "/", backendA)

	st, err := u.Stat("/")
	if err != nil || !st.IsDir() {
		t.Fatalf("root stat = %+v, %v, want synthetic directory", st, err)
	}

	backendA.Mkdir("mnt")
	if err := u.Mount("/mnt", "/", backendB); err != nil {
		t.Fatalf("mount: %v", err)
	}
	st2, err := u.Stat("/mnt")
	if err != nil || !st2.IsDir() {
		t.Fatalf("/mnt stat = %+v, %v, want delegated directory", st2, err)
	}
}

func TestCopytreeAcrossMounts(t *testing.T) {
	backendA := ramfs.New()
	backendB := ramfs.New()
	u := New()
	u.Mount("/", "/", backendA)
	backendA.Mkdir("mnt")
	u.Mount("/mnt", "/", backendB)

	u.Mkdir("/src")
	writeFile(t, u, "/src/a.txt", "A")

	if err := u.copyAcross("/src", "/mnt/dst"); err != nil {
		t.Fatalf("copyAcross: %v", err)
	}
	if got := readFile(t, u, "/mnt/dst/a.txt"); got != "A" {
		t.Errorf("/mnt/dst/a.txt = %q, want A", got)
	}
}
