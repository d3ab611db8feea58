package sync

import (
	"fmt"
	"io"
	"os"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/synclog"
)

// Mocked out for unit testing.
var (
	copyFile   = copyFileImpl
	removeFile = func(path string) error { return fs.Remove(path) }
	removeAll  = func(path string) error { return fs.RemoveAll(path) }
	makeDirAll = func(path string) error { return fs.MkdirAll(path, 0755) }
)

const copyBufferSize = 32 * 1024

// ownerWrite is always set on copied files so that the next pass can
// overwrite them even if the source file is read-only.
const ownerWrite os.FileMode = 0200

// Stats summarizes the mutations performed during a synchronization pass.
type Stats struct {
	FilesCreated  int
	FilesModified int
	FilesDeleted  int
	DirsCreated   int
	DirsDeleted   int
	Errors        int
	BytesCopied   int64
}

// Mutations returns the number of successful mutations.
func (s Stats) Mutations() int {
	return s.FilesCreated + s.FilesModified + s.FilesDeleted +
		s.DirsCreated + s.DirsDeleted
}

// mutator performs single file system mutations on the destination tree.
// Each mutation logs exactly one event: the mutation on success, or an error
// on failure. Failures are counted and logged, never returned.
type mutator struct {
	log   *synclog.Logger
	stats *Stats
}

func (m mutator) createDirectory(path string) bool {
	if err := makeDirAll(path); err != nil {
		m.fail(err, path, "Failed to create directory")
		return false
	}
	m.stats.DirsCreated++
	m.log.DirectoryCreated(path)
	return true
}

func (m mutator) copyCreate(src, dst string) {
	n, err := copyFile(src, dst)
	if err != nil {
		m.fail(err, dst, fmt.Sprintf("Failed to create file from %s", src))
		return
	}
	m.stats.FilesCreated++
	m.stats.BytesCopied += n
	m.log.FileCreated(dst)
}

func (m mutator) copyOverwrite(src, dst string) {
	n, err := copyFile(src, dst)
	if err != nil {
		m.fail(err, dst, fmt.Sprintf("Failed to modify file from %s", src))
		return
	}
	m.stats.FilesModified++
	m.stats.BytesCopied += n
	m.log.FileModified(dst)
}

// removeFile unlinks `path`. Symlinks are removed themselves, never their
// targets.
func (m mutator) removeFile(path string) bool {
	if err := removeFile(path); err != nil {
		m.fail(err, path, "Failed to remove file")
		return false
	}
	m.stats.FilesDeleted++
	m.log.FileDeleted(path)
	return true
}

func (m mutator) removeSubtree(path string) bool {
	if err := removeAll(path); err != nil {
		m.fail(err, path, "Failed to remove directory")
		return false
	}
	m.stats.DirsDeleted++
	m.log.DirectoryDeleted(path)
	return true
}

func (m mutator) fail(err error, path, msg string) {
	m.stats.Errors++
	m.log.Error(err, path, msg)
}

// copyFileImpl replaces the contents of `dst` with the contents of `src`,
// creating `dst` if necessary. Only the contents and the permission bits are
// copied, with the owner write bit forced on. It returns the number of bytes
// copied.
func copyFileImpl(src, dst string) (int64, error) {
	srcFile, err := fs.Open(src)
	if err != nil {
		return 0, errors.WithContext(err, "open source")
	}
	defer srcFile.Close()

	fileInfo, err := srcFile.Stat()
	if err != nil {
		return 0, errors.WithContext(err, "stat")
	}

	mode := fileInfo.Mode().Perm() | ownerWrite
	dstFile, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return 0, errors.WithContext(err, "open destination")
	}

	n, err := io.CopyBuffer(dstFile, srcFile, make([]byte, copyBufferSize))
	if err != nil {
		dstFile.Close()
		return n, errors.WithContext(err, "copy")
	}

	if err := dstFile.Close(); err != nil {
		return n, errors.WithContext(err, "close destination")
	}

	// OpenFile only applies the mode to new files.
	if err := fs.Chmod(dst, mode); err != nil {
		return n, errors.WithContext(err, "set file mode")
	}
	return n, nil
}
