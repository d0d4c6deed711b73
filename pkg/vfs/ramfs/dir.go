package ramfs

import (
	"container/list"

	"github.com/picofiber/picofiber/pkg/vfs"
)

// dirHandle implements vfs.DirHandle by walking a directory node's
// children list in insertion order, remembering an iteration cursor.
type dirHandle struct {
	fs     *FS
	dir    *node
	cursor *list.Element
}

// Readdir implements vfs.DirHandle. It returns entries in the
// directory's children-insertion order, then a terminating (DirEntry{},
// false, nil).
func (d *dirHandle) Readdir() (vfs.DirEntry, bool, error) {
	d.fs.mu.Lock()
	defer d.fs.mu.Unlock()

	if d.cursor == nil {
		return vfs.DirEntry{}, false, nil
	}
	n := d.cursor.Value.(*node)
	d.cursor = d.cursor.Next()
	return vfs.DirEntry{Name: n.name}, true, nil
}

// Close implements vfs.DirHandle.
func (d *dirHandle) Close() error {
	d.cursor = nil
	return nil
}
