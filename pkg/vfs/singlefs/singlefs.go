// Package singlefs is the thin single-backend front-end (spec §4.5 /
// component C6): it fixes one vfs.Backend, maintains its own cwd string
// independent of the backend, and layers tree-level convenience
// operations (copy, remove, walk, mkdir-all) on top of the backend's
// seventeen primitive operations.
//
// Grounded on the teacher's S3Filesystem facade (internal/filesystem),
// which wraps a single backend behind a path-normalising API the same
// way.
package singlefs

import (
	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/ppath"
	"github.com/picofiber/picofiber/pkg/vfs"
)

const component = "singlefs"

const blockSize = 512

func newErr(k perr.Kind, op, path string) error {
	return perr.New(k, component, op).WithPath(path)
}

// FS binds exactly one backend and exposes the user-facing filesystem
// API over it, including the recursive tree helpers the backend vtable
// does not itself offer.
type FS struct {
	backend vfs.Backend
	cwd     string
	pathMax int
}

// Option configures a new FS.
type Option func(*FS)

// WithPathMax overrides the default resolved-path length limit.
func WithPathMax(n int) Option {
	return func(fs *FS) { fs.pathMax = n }
}

// New returns an FS bound to backend, with cwd initialised to root.
func New(backend vfs.Backend, opts ...Option) *FS {
	fs := &FS{backend: backend, cwd: "/", pathMax: vfs.DefaultPathMax}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

func (fs *FS) resolve(path string) (string, error) {
	resolved, ok := ppath.Resolve(fs.cwd, path, fs.pathMax)
	if !ok {
		return "", newErr(perr.NameTooLong, "resolve", path)
	}
	return resolved, nil
}

func (fs *FS) join(a, b string) (string, error) {
	joined, ok := ppath.Join(a, b, fs.pathMax)
	if !ok {
		return "", newErr(perr.NameTooLong, "resolve", b)
	}
	return joined, nil
}

// Open resolves path against the current cwd and opens it on the
// backend.
func (fs *FS) Open(path string, mode vfs.OpenMode) (vfs.FileHandle, error) {
	p, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	return fs.backend.Open(p, mode)
}

// Close closes a handle previously returned by Open.
func (fs *FS) Close(fh vfs.FileHandle) error { return fs.backend.Close(fh) }

// Read reads from an open file handle.
func (fs *FS) Read(fh vfs.FileHandle, buf []byte) (int, error) { return fs.backend.Read(fh, buf) }

// Write writes to an open file handle.
func (fs *FS) Write(fh vfs.FileHandle, data []byte) (int, error) {
	return fs.backend.Write(fh, data)
}

// Seek repositions an open file handle.
func (fs *FS) Seek(fh vfs.FileHandle, offset int64, origin vfs.SeekOrigin) (int64, error) {
	return fs.backend.Seek(fh, offset, origin)
}

// Tell reports an open file handle's position.
func (fs *FS) Tell(fh vfs.FileHandle) (int64, error) { return fs.backend.Tell(fh) }

// Flush flushes an open file handle's pending writes.
func (fs *FS) Flush(fh vfs.FileHandle) error { return fs.backend.Flush(fh) }

// Mkdir creates a single directory.
func (fs *FS) Mkdir(path string) error {
	p, err := fs.resolve(path)
	if err != nil {
		return err
	}
	return fs.backend.Mkdir(p)
}

// Opendir opens a directory for enumeration.
func (fs *FS) Opendir(path string) (vfs.DirHandle, error) {
	p, err := fs.resolve(path)
	if err != nil {
		return nil, err
	}
	return fs.backend.Opendir(p)
}

// Readdir advances an open directory handle.
func (fs *FS) Readdir(dh vfs.DirHandle) (vfs.DirEntry, bool, error) { return fs.backend.Readdir(dh) }

// Closedir closes an open directory handle.
func (fs *FS) Closedir(dh vfs.DirHandle) error { return fs.backend.Closedir(dh) }

// Chdir changes the front-end's cwd, syncing the backend's own cwd to
// match (spec §4.5).
func (fs *FS) Chdir(path string) error {
	p, err := fs.resolve(path)
	if err != nil {
		return err
	}
	if err := fs.backend.Chdir(p); err != nil {
		return err
	}
	fs.cwd = p
	return nil
}

// Getcwd returns the front-end's own cwd string.
func (fs *FS) Getcwd(buf []byte) (string, error) {
	if cap(buf) > 0 && len(fs.cwd)+1 > cap(buf) {
		return "", newErr(perr.Range, "getcwd", fs.cwd)
	}
	return fs.cwd, nil
}

// Remove deletes a file or empty directory.
func (fs *FS) Remove(path string) error {
	p, err := fs.resolve(path)
	if err != nil {
		return err
	}
	return fs.backend.Remove(p)
}

// Rename renames src to dst on the backend.
func (fs *FS) Rename(src, dst string) error {
	sp, err := fs.resolve(src)
	if err != nil {
		return err
	}
	dp, err := fs.resolve(dst)
	if err != nil {
		return err
	}
	return fs.backend.Rename(sp, dp)
}

// Stat returns metadata for path.
func (fs *FS) Stat(path string) (vfs.Stat, error) {
	p, err := fs.resolve(path)
	if err != nil {
		return vfs.Stat{}, err
	}
	return fs.backend.Stat(p)
}

// Utime sets a path's modification time.
func (fs *FS) Utime(path string, mtime int64) error {
	p, err := fs.resolve(path)
	if err != nil {
		return err
	}
	return fs.backend.Utime(p, mtime)
}

// Copyfile streams src to dst in 512-byte blocks (spec §4.5). A short
// write on dst is reported as perr.NoSpace.
func (fs *FS) Copyfile(src, dst string) error {
	in, err := fs.Open(src, vfs.ReadOnly)
	if err != nil {
		return err
	}
	defer fs.Close(in)

	out, err := fs.Open(dst, vfs.WriteOnly)
	if err != nil {
		return err
	}
	defer fs.Close(out)

	buf := make([]byte, blockSize)
	for {
		n, err := fs.Read(in, buf)
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		w, err := fs.Write(out, buf[:n])
		if err != nil {
			return err
		}
		if w < n {
			return newErr(perr.NoSpace, "copyfile", dst)
		}
	}
	return fs.Flush(out)
}

// Copytree recursively copies the directory tree rooted at src into a
// newly created dst (spec §4.5): subdirectories are created before
// descent, files copied file-by-file.
func (fs *FS) Copytree(src, dst string) error {
	if err := fs.Mkdir(dst); err != nil {
		return err
	}
	dh, err := fs.Opendir(src)
	if err != nil {
		return err
	}
	defer fs.Closedir(dh)

	for {
		entry, ok, err := fs.Readdir(dh)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		childSrc, err := fs.join(src, entry.Name)
		if err != nil {
			return err
		}
		childDst, err := fs.join(dst, entry.Name)
		if err != nil {
			return err
		}
		st, err := fs.Stat(childSrc)
		if err != nil {
			return err
		}
		if st.IsDir() {
			if err := fs.Copytree(childSrc, childDst); err != nil {
				return err
			}
			continue
		}
		if err := fs.Copyfile(childSrc, childDst); err != nil {
			return err
		}
	}
}

// Rmtree recursively removes the directory tree rooted at path, files
// first, then their parent directories (spec §4.5).
func (fs *FS) Rmtree(path string) error {
	dh, err := fs.Opendir(path)
	if err != nil {
		if perr.Is(err, perr.NotDirectory) {
			return fs.Remove(path)
		}
		return err
	}
	var children []string
	for {
		entry, ok, err := fs.Readdir(dh)
		if err != nil {
			fs.Closedir(dh)
			return err
		}
		if !ok {
			break
		}
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		children = append(children, entry.Name)
	}
	fs.Closedir(dh)

	for _, name := range children {
		child, err := fs.join(path, name)
		if err != nil {
			return err
		}
		if err := fs.Rmtree(child); err != nil {
			return err
		}
	}
	return fs.Remove(path)
}

// WalkFunc is called once per entry during Walktree, pre-order.
// Returning false short-circuits the remainder of the walk (not an
// error: the walk reports success).
type WalkFunc func(path string, st vfs.Stat) (keepGoing bool, err error)

// Walktree performs a pre-order traversal of the tree rooted at path
// (spec §4.5).
func (fs *FS) Walktree(path string, fn WalkFunc) error {
	_, err := fs.walk(path, fn)
	return err
}

func (fs *FS) walk(path string, fn WalkFunc) (bool, error) {
	st, err := fs.Stat(path)
	if err != nil {
		return false, err
	}
	keepGoing, err := fn(path, st)
	if err != nil {
		return false, err
	}
	if !keepGoing || !st.IsDir() {
		return keepGoing, nil
	}

	dh, err := fs.Opendir(path)
	if err != nil {
		return false, err
	}
	defer fs.Closedir(dh)

	for {
		entry, ok, err := fs.Readdir(dh)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		if entry.Name == "." || entry.Name == ".." {
			continue
		}
		child, err := fs.join(path, entry.Name)
		if err != nil {
			return false, err
		}
		more, err := fs.walk(child, fn)
		if err != nil {
			return false, err
		}
		if !more {
			return false, nil
		}
	}
	return true, nil
}

// Makedirs creates every missing ancestor of path (spec §4.5). If the
// final component already exists, success requires existOK; otherwise
// the call fails with perr.Exist.
func (fs *FS) Makedirs(path string, existOK bool) error {
	resolved, err := fs.resolve(path)
	if err != nil {
		return err
	}

	prefix := ""
	if d := ppath.Drive(resolved); d != 0 {
		prefix = resolved[:2]
	}
	built := prefix
	if ppath.IsAbsolute(resolved) {
		built += "/"
	}

	var segments []string
	for rest := resolved; ; {
		seg, next := ppath.Top(rest)
		if seg == "" {
			break
		}
		segments = append(segments, seg)
		rest = next
	}

	for i, seg := range segments {
		built, err = fs.join(built, seg)
		if err != nil {
			return err
		}
		last := i == len(segments)-1
		err := fs.backend.Mkdir(built)
		if err == nil {
			continue
		}
		if !perr.Is(err, perr.Exist) {
			return err
		}
		if last && !existOK {
			return err
		}
	}
	return nil
}
