package sync

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/synclog"
)

// Options configures a Reconciler.
type Options struct {
	// Hash is the algorithm used to fingerprint file contents.
	Hash HashAlgorithm

	// Exclude contains doublestar patterns, relative to the synced roots, of
	// entries that are ignored on both sides.
	Exclude []string
}

// Reconciler makes a destination directory tree mirror a source tree.
type Reconciler struct {
	log  *synclog.Logger
	opts Options
}

// NewReconciler creates a Reconciler that reports every mutation to `log`.
func NewReconciler(log *synclog.Logger, opts Options) *Reconciler {
	if opts.Hash == "" {
		opts.Hash = DefaultHashAlgorithm
	}
	return &Reconciler{log: log, opts: opts}
}

// Reconcile runs a single pass that makes `destDir` match `sourceDir`,
// recursively. `destDir` is created if it doesn't exist.
//
// Individual mutation failures are logged and skipped. The returned error is
// non-nil only if `sourceDir` isn't a directory, or if one of the two top
// level directories couldn't be listed. In both cases the destination is
// left untouched. Listing failures in subdirectories are logged, and the
// rest of the pass continues.
func (r *Reconciler) Reconcile(sourceDir, destDir string) (Stats, error) {
	var stats Stats

	// An empty source would otherwise empty the whole destination, so a
	// resource folder that disappeared after startup stops the pass.
	fi, err := fs.Stat(sourceDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return stats, errors.FileNotFound{Path: sourceDir}
	case err != nil:
		return stats, errors.WithContext(err, fmt.Sprintf("stat %s", sourceDir))
	case !fi.IsDir():
		return stats, errors.NotADirectory{Path: sourceDir}
	}

	p := pass{
		snapshotter: snapshotter{
			algo:    r.opts.Hash,
			exclude: excluder(r.opts.Exclude),
			log:     r.log,
		},
		mutator: mutator{log: r.log, stats: &stats},
		log:     r.log,
	}
	err = p.reconcile(sourceDir, destDir, "")
	return stats, err
}

// pass holds the state of a single Reconcile call.
type pass struct {
	snapshotter
	mutator
	log *synclog.Logger
}

// plan is the classification of the entries of a directory pair.
type plan struct {
	// toRemove contains destination entries that don't exist in the source,
	// whose type differs from the source entry of the same name, or that are
	// special files.
	toRemove []string

	// toUpdate contains source entries that are new, changed, or
	// directories that need to be recursed into.
	toUpdate []string
}

// classify partitions the names of `source` and `dest`. Names that are in
// neither list are unchanged.
func classify(source, dest Snapshot) plan {
	var p plan
	for _, name := range source.Names() {
		srcFp := source[name]

		// The destination entry is left as is until the source can be read
		// again.
		if srcFp.IsUnreadable() {
			continue
		}

		// Special source entries aren't mirrored.
		if srcFp.IsSpecial() {
			continue
		}

		// Files with equal contents are skipped. Directories are always
		// recursed into since the sentinel says nothing about their
		// contents.
		if dstFp, ok := dest[name]; ok && !srcFp.IsDir() && srcFp == dstFp {
			continue
		}
		p.toUpdate = append(p.toUpdate, name)
	}

	for _, name := range dest.Names() {
		srcFp, ok := source[name]
		dstFp := dest[name]
		switch {
		case !ok, srcFp.IsSpecial(), dstFp.IsSpecial():
			p.toRemove = append(p.toRemove, name)
		case srcFp.IsUnreadable():
		case srcFp.IsDir() != dstFp.IsDir():
			p.toRemove = append(p.toRemove, name)
		}
	}
	return p
}

func (p pass) reconcile(sourceDir, destDir, relDir string) error {
	destExists, err := afero.DirExists(fs, destDir)
	if err != nil || !destExists {
		// If creation fails, the destination snapshot is empty, and each
		// entry fails and is logged individually.
		p.createDirectory(destDir)
	}

	source, err := p.take(sourceDir, relDir)
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("snapshot %s", sourceDir))
	}

	dest, err := p.take(destDir, relDir)
	if err != nil {
		return errors.WithContext(err, fmt.Sprintf("snapshot %s", destDir))
	}

	diff := classify(source, dest)

	// Remove stale entries before creating anything so that type changes
	// (file to directory and back) have a free name to be recreated at.
	stale := map[string]bool{}
	removed := map[string]bool{}
	for _, name := range diff.toRemove {
		stale[name] = true
		stalePath := filepath.Join(destDir, name)
		if dest[name].IsSpecial() || !isRealDir(stalePath) {
			removed[name] = p.removeFile(stalePath)
		} else {
			removed[name] = p.removeSubtree(stalePath)
		}
	}

	for _, name := range diff.toUpdate {
		srcPath := filepath.Join(sourceDir, name)
		dstPath := filepath.Join(destDir, name)

		// The failed removal was already logged. Writing now could follow a
		// symlink out of the destination tree.
		if stale[name] && !removed[name] {
			continue
		}

		if source[name].IsDir() {
			err := p.reconcile(srcPath, dstPath, path.Join(relDir, name))
			if err != nil {
				p.fail(err, dstPath, "Failed to synchronize directory")
			}
			continue
		}

		if _, ok := dest[name]; ok && !removed[name] {
			p.copyOverwrite(srcPath, dstPath)
		} else {
			p.copyCreate(srcPath, dstPath)
		}
	}
	return nil
}

// isRealDir returns whether `path` is a directory without following a final
// symlink. The live type is checked rather than the snapshot since the entry
// may have changed since the snapshot was taken.
func isRealDir(path string) bool {
	var fi os.FileInfo
	var err error
	if lstater, ok := fs.(afero.Lstater); ok {
		fi, _, err = lstater.LstatIfPossible(path)
	} else {
		fi, err = fs.Stat(path)
	}
	return err == nil && fi.IsDir()
}

// Mirror binds a Reconciler to the pair of roots it keeps in sync.
type Mirror struct {
	Reconciler *Reconciler
	Source     string
	Dest       string
}

// Sync runs a single synchronization pass over the roots.
func (m Mirror) Sync() (Stats, error) {
	return m.Reconciler.Reconcile(m.Source, m.Dest)
}
