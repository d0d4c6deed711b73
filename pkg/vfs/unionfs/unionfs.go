// Package unionfs implements the union-mount front-end (spec §4.6 /
// component C7): a mount table composing several vfs.Backend values
// under a single virtual path tree, with longest-prefix resolution,
// cross-backend rename via copy-then-delete, and the same tree-level
// convenience operations singlefs offers, re-deriving the real path at
// every recursive step since the backend can change mid-walk.
//
// Grounded on the teacher's framing of one FilesystemInterface served
// over several transports (FUSE/SMB/NFS) from internal/adapter,
// inverted here to several backends served under one path tree, and on
// internal/distributed's node-table longest-match lookup shape.
package unionfs

import (
	"strings"
	"sync"

	"github.com/picofiber/picofiber/pkg/perr"
	"github.com/picofiber/picofiber/pkg/ppath"
	"github.com/picofiber/picofiber/pkg/vfs"
)

const component = "unionfs"

func newErr(k perr.Kind, op, path string) error {
	return perr.New(k, component, op).WithPath(path)
}

type mount struct {
	virtualPath string
	realPath    string
	backend     vfs.Backend
}

// FS is the union-mount front-end. The mount table is process-wide and
// not re-entrant: callers must not mount/umount concurrently with an
// in-flight filesystem operation (spec §4.7's shared-resource note).
type FS struct {
	mu      sync.Mutex
	mounts  map[string]*mount
	cwd     string
	pathMax int
	metrics *Metrics
}

// Option configures a new FS.
type Option func(*FS)

// WithPathMax overrides the default resolved-path length limit.
func WithPathMax(n int) Option {
	return func(fs *FS) { fs.pathMax = n }
}

// New returns an empty FS. The first call to Mount must bind the
// virtual root "/".
func New(opts ...Option) *FS {
	fs := &FS{mounts: make(map[string]*mount), cwd: "/", pathMax: vfs.DefaultPathMax}
	for _, opt := range opts {
		opt(fs)
	}
	return fs
}

// Mount binds backend's realPath subtree at virtualPath (spec §4.6).
// The first mount's virtualPath must be "/". Any later mount's
// virtualPath must already resolve, on the existing view, to a
// directory.
func (fs *FS) Mount(virtualPath, realPath string, backend vfs.Backend) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(fs.mounts) == 0 {
		if virtualPath != "/" {
			return newErr(perr.Invalid, "mount", virtualPath)
		}
		fs.mounts[virtualPath] = &mount{virtualPath: virtualPath, realPath: realPath, backend: backend}
		return nil
	}
	if _, exists := fs.mounts[virtualPath]; exists {
		return newErr(perr.Exist, "mount", virtualPath)
	}

	// The new mount's virtualPath, translated through whatever mount
	// already covers it, must already name a directory there (spec
	// §4.6's mount-table invariant).
	b, real, resolveErr := fs.resolveLocked(virtualPath)
	if resolveErr != nil {
		return newErr(perr.Invalid, "mount", virtualPath)
	}
	st, statErr := b.Stat(real)
	if statErr != nil || !st.IsDir() {
		return newErr(perr.Invalid, "mount", virtualPath)
	}

	fs.mounts[virtualPath] = &mount{virtualPath: virtualPath, realPath: realPath, backend: backend}
	return nil
}

// Umount removes the mount at virtualPath. It refuses the cwd's mount
// and any mount with sub-mounts beneath it (spec §4.6, both *busy*).
func (fs *FS) Umount(virtualPath string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.mounts[virtualPath]; !ok {
		return newErr(perr.NoEntry, "umount", virtualPath)
	}
	if fs.cwd == virtualPath || strings.HasPrefix(fs.cwd, virtualPath+"/") {
		return newErr(perr.Busy, "umount", virtualPath)
	}
	for vp := range fs.mounts {
		if vp != virtualPath && strings.HasPrefix(vp, virtualPath+"/") {
			return newErr(perr.Busy, "umount", virtualPath)
		}
	}
	delete(fs.mounts, virtualPath)
	return nil
}

// resolveLocked performs longest-prefix resolution (spec §4.6) under
// the caller's held lock.
func (fs *FS) resolveLocked(v string) (vfs.Backend, string, error) {
	var best *mount
	bestLen := -1
	for _, m := range fs.mounts {
		if !isPrefixMatch(v, m.virtualPath) {
			continue
		}
		if len(m.virtualPath) > bestLen {
			best = m
			bestLen = len(m.virtualPath)
		}
	}
	if best == nil {
		return nil, "", newErr(perr.NoEntry, "resolve", v)
	}
	return best.backend, translate(v, best), nil
}

// isPrefixMatch reports whether mount virtualPath is a valid prefix of
// v: either an exact match, or a directory-boundary prefix.
func isPrefixMatch(v, virtualPath string) bool {
	if v == virtualPath {
		return true
	}
	if virtualPath == "/" {
		return strings.HasPrefix(v, "/")
	}
	return strings.HasPrefix(v, virtualPath+"/")
}

// translate maps virtual path v into m's backend path space following
// the three corner-case substitution rules of spec §4.6.
func translate(v string, m *mount) string {
	if m.virtualPath == "/" && m.realPath != "/" {
		rest := strings.TrimPrefix(v, "/")
		if rest == "" {
			return m.realPath
		}
		if strings.HasSuffix(m.realPath, "/") {
			return m.realPath + rest
		}
		return m.realPath + "/" + rest
	}
	if m.virtualPath != "/" && m.realPath == "/" {
		rest := strings.TrimPrefix(v, m.virtualPath)
		if rest == "" {
			return "/"
		}
		return rest
	}
	rest := strings.TrimPrefix(v, m.virtualPath)
	if rest == "" {
		return m.realPath
	}
	return m.realPath + rest
}

func (fs *FS) resolve(path string) (vfs.Backend, string, error) {
	resolved, ok := ppath.Resolve(fs.cwd, path, fs.pathMax)
	if !ok {
		return nil, "", newErr(perr.NameTooLong, "resolve", path)
	}
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.resolveLocked(resolved)
}

func (fs *FS) resolveAbs(path string) (string, error) {
	resolved, ok := ppath.Resolve(fs.cwd, path, fs.pathMax)
	if !ok {
		return "", newErr(perr.NameTooLong, "resolve", path)
	}
	return resolved, nil
}

// Handle pairs a file handle with the backend that produced it: a
// union front-end has no single backend to dispatch Close/Read/etc
// through implicitly, since which backend served Open depends on
// where the path resolved.
type Handle struct {
	backend vfs.Backend
	handle  vfs.FileHandle
}

// Open resolves path to its mount and opens it on that backend.
func (fs *FS) Open(path string, mode vfs.OpenMode) (Handle, error) {
	b, real, err := fs.resolve(path)
	if err != nil {
		return Handle{}, err
	}
	fs.observe("open", b)
	h, err := b.Open(real, mode)
	if err != nil {
		return Handle{}, err
	}
	return Handle{backend: b, handle: h}, nil
}

// Close closes a handle opened through this union.
func (fs *FS) Close(fh Handle) error { return fh.backend.Close(fh.handle) }

// Read reads from a handle.
func (fs *FS) Read(fh Handle, buf []byte) (int, error) { return fh.backend.Read(fh.handle, buf) }

// Write writes to a handle.
func (fs *FS) Write(fh Handle, data []byte) (int, error) {
	return fh.backend.Write(fh.handle, data)
}

// Seek repositions a handle.
func (fs *FS) Seek(fh Handle, offset int64, origin vfs.SeekOrigin) (int64, error) {
	return fh.backend.Seek(fh.handle, offset, origin)
}

// Tell reports a handle's position.
func (fs *FS) Tell(fh Handle) (int64, error) { return fh.backend.Tell(fh.handle) }

// Flush flushes a handle's pending writes.
func (fs *FS) Flush(fh Handle) error { return fh.backend.Flush(fh.handle) }

// Mkdir creates a directory at path.
func (fs *FS) Mkdir(path string) error {
	b, real, err := fs.resolve(path)
	if err != nil {
		return err
	}
	fs.observe("mkdir", b)
	return b.Mkdir(real)
}

// DirHandle pairs a directory handle with its owning backend.
type DirHandle struct {
	backend vfs.Backend
	handle  vfs.DirHandle
}

// Opendir opens a directory for enumeration.
func (fs *FS) Opendir(path string) (DirHandle, error) {
	b, real, err := fs.resolve(path)
	if err != nil {
		return DirHandle{}, err
	}
	fs.observe("opendir", b)
	h, err := b.Opendir(real)
	if err != nil {
		return DirHandle{}, err
	}
	return DirHandle{backend: b, handle: h}, nil
}

// Readdir advances a directory handle.
func (fs *FS) Readdir(dh DirHandle) (vfs.DirEntry, bool, error) { return dh.backend.Readdir(dh.handle) }

// Closedir closes a directory handle.
func (fs *FS) Closedir(dh DirHandle) error { return dh.backend.Closedir(dh.handle) }

// Chdir changes the union's cwd, after statting the translated path
// and refusing non-directories (spec §4.6).
func (fs *FS) Chdir(path string) error {
	resolved, err := fs.resolveAbs(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	b, real, err := fs.resolveLocked(resolved)
	fs.mu.Unlock()
	if err != nil {
		return err
	}
	st, err := b.Stat(real)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return newErr(perr.NotDirectory, "chdir", path)
	}
	fs.mu.Lock()
	fs.cwd = resolved
	fs.mu.Unlock()
	return nil
}

// Getcwd returns the union's own cwd string.
func (fs *FS) Getcwd(buf []byte) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if cap(buf) > 0 && len(fs.cwd)+1 > cap(buf) {
		return "", newErr(perr.Range, "getcwd", fs.cwd)
	}
	return fs.cwd, nil
}

// Remove deletes path. It refuses a path that equals an existing
// mount's virtual-path with perr.Busy (spec §4.6).
func (fs *FS) Remove(path string) error {
	resolved, err := fs.resolveAbs(path)
	if err != nil {
		return err
	}
	fs.mu.Lock()
	_, isMount := fs.mounts[resolved]
	b, real, resolveErr := fs.resolveLocked(resolved)
	fs.mu.Unlock()
	if isMount {
		return newErr(perr.Busy, "remove", path)
	}
	if resolveErr != nil {
		return resolveErr
	}
	fs.observe("remove", b)
	return b.Remove(real)
}

// Stat returns metadata for path. A stat of an exact mount point is
// answered synthetically when no parent mount exists to delegate to;
// otherwise it is delegated to the parent mount (spec §4.6).
func (fs *FS) Stat(path string) (vfs.Stat, error) {
	resolved, err := fs.resolveAbs(path)
	if err != nil {
		return vfs.Stat{}, err
	}

	fs.mu.Lock()
	self, isExactMount := fs.mounts[resolved]
	if isExactMount {
		parentB, parentReal, found := fs.resolveLockedExcluding(resolved, self)
		fs.mu.Unlock()
		if !found {
			return vfs.Stat{Mode: vfs.ModeDirectory}, nil
		}
		fs.observe("stat", parentB)
		return parentB.Stat(parentReal)
	}
	b, real, resolveErr := fs.resolveLocked(resolved)
	fs.mu.Unlock()
	if resolveErr != nil {
		return vfs.Stat{}, resolveErr
	}
	fs.observe("stat", b)
	return b.Stat(real)
}

// resolveLockedExcluding is like resolveLocked but ignores the given
// mount, used to find an exact mount point's parent mount.
func (fs *FS) resolveLockedExcluding(v string, exclude *mount) (vfs.Backend, string, bool) {
	var best *mount
	bestLen := -1
	for _, m := range fs.mounts {
		if m == exclude {
			continue
		}
		if !isPrefixMatch(v, m.virtualPath) {
			continue
		}
		if len(m.virtualPath) > bestLen {
			best = m
			bestLen = len(m.virtualPath)
		}
	}
	if best == nil {
		return nil, "", false
	}
	return best.backend, translate(v, best), true
}

// Utime sets a path's modification time.
func (fs *FS) Utime(path string, mtime int64) error {
	b, real, err := fs.resolve(path)
	if err != nil {
		return err
	}
	fs.observe("utime", b)
	return b.Utime(real, mtime)
}

// Rename renames src to dst. When both resolve to the same backend it
// delegates to that backend's rename; otherwise it performs copy-then-delete,
// recursively for directories (spec §4.6).
func (fs *FS) Rename(src, dst string) error {
	srcB, srcReal, err := fs.resolve(src)
	if err != nil {
		return err
	}
	dstB, dstReal, err := fs.resolve(dst)
	if err != nil {
		return err
	}
	fs.observe("rename", srcB)
	if sameBackend(srcB, dstB) {
		return srcB.Rename(srcReal, dstReal)
	}
	if err := fs.copyAcross(src, dst); err != nil {
		return err
	}
	return fs.Rmtree(src)
}

func sameBackend(a, b vfs.Backend) bool {
	return a == b
}

const blockSize = 512

// copyAcross copies src to dst, recursing into directories, re-deriving
// the real path (and backend) on every step since a mount boundary may
// be crossed mid-recursion (spec §4.6's recursive-helpers note).
func (fs *FS) copyAcross(src, dst string) error {
	st, err := fs.Stat(src)
	if err != nil {
		return err
	}
	if st.IsDir() {
		return fs.copytreeDir(src, dst)
	}
	return fs.copyfile(src, dst)
}

func (fs *FS) copyfile(src, dst string) error {
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

func (fs *FS) copytreeDir(src, dst string) error {
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
		if err := fs.copyAcross(childSrc, childDst); err != nil {
			return err
		}
	}
}

func (fs *FS) join(a, b string) (string, error) {
	joined, ok := ppath.Join(a, b, fs.pathMax)
	if !ok {
		return "", newErr(perr.NameTooLong, "resolve", b)
	}
	return joined, nil
}

// Rmtree recursively removes the tree rooted at path, re-resolving the
// real path at every step (spec §4.6).
func (fs *FS) Rmtree(path string) error {
	st, err := fs.Stat(path)
	if err != nil {
		return err
	}
	if !st.IsDir() {
		return fs.Remove(path)
	}

	dh, err := fs.Opendir(path)
	if err != nil {
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
type WalkFunc func(path string, st vfs.Stat) (keepGoing bool, err error)

// Walktree performs a pre-order traversal of the tree rooted at path,
// re-resolving through the mount table at every step (spec §4.6).
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

// Makedirs creates every missing ancestor of path, crossing mount
// boundaries as needed (spec §4.5/§4.6).
func (fs *FS) Makedirs(path string, existOK bool) error {
	resolved, err := fs.resolveAbs(path)
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
		mkErr := fs.Mkdir(built)
		if mkErr == nil {
			continue
		}
		if !perr.Is(mkErr, perr.Exist) {
			return mkErr
		}
		if last && !existOK {
			return mkErr
		}
	}
	return nil
}

