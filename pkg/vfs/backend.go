package vfs

// FileHandle is the backend-owned result of a successful Open. Exclusive
// ownership moves from the backend to the caller until Close; double
// close is undefined, matching the teacher's single-owner handle
// discipline in internal/filesystem.FileHandle.
type FileHandle interface {
	Read(buf []byte) (int, error)
	Write(data []byte) (int, error)
	Seek(offset int64, origin SeekOrigin) (int64, error)
	Tell() (int64, error)
	Flush() error
	Close() error
}

// DirHandle is the backend-owned result of a successful Opendir. It
// remembers an iteration cursor; Readdir returns entries in the
// backend's natural order followed by a final (DirEntry{}, false, nil).
type DirHandle interface {
	Readdir() (DirEntry, bool, error)
	Close() error
}

// Backend is the 17-operation contract spec §4.2 requires of any
// filesystem implementation. A backend may decline any operation it does
// not implement by returning perr.NotSupported; front-ends must not
// assume the full set is present except for the core-wide subset (Open,
// Close, Stat, Read, Opendir, Readdir, Closedir) needed for tree copy and
// walk.
type Backend interface {
	Open(path string, mode OpenMode) (FileHandle, error)
	Close(fh FileHandle) error
	Read(fh FileHandle, buf []byte) (int, error)
	Write(fh FileHandle, data []byte) (int, error)
	Seek(fh FileHandle, offset int64, origin SeekOrigin) (int64, error)
	Tell(fh FileHandle) (int64, error)
	Flush(fh FileHandle) error

	Mkdir(path string) error
	Opendir(path string) (DirHandle, error)
	Readdir(dh DirHandle) (DirEntry, bool, error)
	Closedir(dh DirHandle) error

	Chdir(path string) error
	Getcwd(buf []byte) (string, error)

	Remove(path string) error
	Rename(oldPath, newPath string) error
	Stat(path string) (Stat, error)
	Utime(path string, mtime int64) error
}

// StatProvider is the escape hatch spec §9 calls for: a front-end that
// needs to answer Stat synthetically for a mount point (rather than
// delegating to a backend) implements this instead of calling into a
// Backend.
type StatProvider interface {
	SyntheticStat(path string) (Stat, bool)
}
