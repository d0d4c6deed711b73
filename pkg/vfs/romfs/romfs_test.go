package romfs

import (
	"encoding/binary"
	"testing"

	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/vfs"
)

// buildImage assembles a small hand-laid-out ROMF image:
//
//	/
//	├── hello.txt  ("hi")
//	└── sub/       (empty)
func buildImage() []byte {
	const size = 98
	img := make([]byte, size)
	copy(img[0:4], magic)

	put := func(off uint32, v uint32) { binary.LittleEndian.PutUint32(img[off:], v) }

	// root dir entry @4
	put(4+offFlags, flagDir)
	put(4+offParent, absent)
	put(4+offSibling, absent)
	put(4+offName, 80)
	put(4+offMtime, 1000)
	put(4+offFirstKid, 28)

	// file entry "hello.txt" @28
	put(28+offFlags, flagFile)
	put(28+offParent, 4)
	put(28+offSibling, 56)
	put(28+offName, 82)
	put(28+offMtime, 2000)
	put(28+offData, 96)
	put(28+offDataSize, 2)

	// dir entry "sub" @56
	put(56+offFlags, flagDir)
	put(56+offParent, 4)
	put(56+offSibling, absent)
	put(56+offName, 92)
	put(56+offMtime, 3000)
	put(56+offFirstKid, absent)

	copy(img[80:], "/\x00")
	copy(img[82:], "hello.txt\x00")
	copy(img[92:], "sub\x00")
	copy(img[96:], "hi")

	return img
}

func TestMountRejectsBadMagic(t *testing.T) {
	if _, err := Mount([]byte("nope")); !perr.Is(err, perr.Protocol) {
		t.Fatalf("err = %v, want Protocol", err)
	}
}

func TestMountAndStatRoot(t *testing.T) {
	fs, err := Mount(buildImage())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	st, err := fs.Stat("/")
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if !st.IsDir() {
		t.Errorf("root stat = %+v, want directory", st)
	}
}

func TestReadFile(t *testing.T) {
	fs, err := Mount(buildImage())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	h, err := fs.Open("/hello.txt", vfs.ReadOnly)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	buf := make([]byte, 16)
	n, err := fs.Read(h, buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf[:n]) != "hi" {
		t.Errorf("read %q, want %q", buf[:n], "hi")
	}
	// A second read, past EOF, returns zero bytes.
	n2, err := fs.Read(h, buf)
	if err != nil || n2 != 0 {
		t.Errorf("read past EOF = (%d, %v), want (0, nil)", n2, err)
	}
}

func TestOpenForWriteIsRefused(t *testing.T) {
	fs, err := Mount(buildImage())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, err := fs.Open("/hello.txt", vfs.WriteOnly); !perr.Is(err, perr.Access) {
		t.Errorf("err = %v, want Access", err)
	}
}

func TestMutatingOperationsAreDeclined(t *testing.T) {
	fs, err := Mount(buildImage())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := fs.Mkdir("/new"); !perr.Is(err, perr.Access) {
		t.Errorf("mkdir err = %v, want Access", err)
	}
	if err := fs.Remove("/hello.txt"); !perr.Is(err, perr.Access) {
		t.Errorf("remove err = %v, want Access", err)
	}
	if err := fs.Rename("/hello.txt", "/renamed.txt"); !perr.Is(err, perr.Access) {
		t.Errorf("rename err = %v, want Access", err)
	}
	if err := fs.Utime("/hello.txt", 42); !perr.Is(err, perr.NotSupported) {
		t.Errorf("utime err = %v, want NotSupported", err)
	}
}

func TestOpendirReaddir(t *testing.T) {
	fs, err := Mount(buildImage())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	dh, err := fs.Opendir("/")
	if err != nil {
		t.Fatalf("opendir: %v", err)
	}
	var got []string
	for {
		entry, ok, err := fs.Readdir(dh)
		if err != nil {
			t.Fatalf("readdir: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, entry.Name)
	}
	want := []string{"hello.txt", "sub"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestChdirAndGetcwd(t *testing.T) {
	fs, err := Mount(buildImage())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if err := fs.Chdir("/sub"); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	cwd, err := fs.Getcwd(make([]byte, 0, 256))
	if err != nil {
		t.Fatalf("getcwd: %v", err)
	}
	if cwd != "/sub" {
		t.Errorf("getcwd = %q, want /sub", cwd)
	}
}

func TestStatMissingIsNoEntry(t *testing.T) {
	fs, err := Mount(buildImage())
	if err != nil {
		t.Fatalf("mount: %v", err)
	}
	if _, err := fs.Stat("/missing"); !perr.Is(err, perr.NoEntry) {
		t.Errorf("err = %v, want NoEntry", err)
	}
}
