package sync

import (
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/synclog"
)

// Snapshot maps the names of the immediate children of a directory to their
// fingerprints. Snapshots are rebuilt from the file system on every pass.
type Snapshot map[string]Fingerprint

// Names returns the entry names in sorted order.
func (snap Snapshot) Names() []string {
	names := make([]string, 0, len(snap))
	for name := range snap {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// snapshotter builds Snapshots of directories.
type snapshotter struct {
	algo    HashAlgorithm
	exclude excluder
	log     *synclog.Logger
}

// take lists the immediate children of `dir` and fingerprints each of them.
// `relDir` is the slash separated path of `dir` relative to the synced root,
// and is used to match exclusions.
// If `dir` doesn't exist or isn't a directory, the snapshot is empty. A
// child that can't be hashed is recorded as unreadable rather than failing
// the whole snapshot. Children that aren't regular files or directories
// are recorded as special.
func (s snapshotter) take(dir, relDir string) (Snapshot, error) {
	snap := Snapshot{}

	isDir, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, errors.WithContext(err, "stat")
	}
	if !isDir {
		return snap, nil
	}

	children, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, errors.WithContext(err, "list")
	}

	for _, fi := range children {
		name := fi.Name()
		childPath := filepath.Join(dir, name)
		if s.exclude.excluded(path.Join(relDir, name)) {
			s.log.Debugf("Ignoring excluded path %s", childPath)
			continue
		}

		switch mode := fi.Mode(); {
		case mode.IsDir():
			snap[name] = DirectorySentinel
		case mode.IsRegular():
			fp, err := fingerprint(s.algo, childPath)
			if err != nil {
				s.log.Error(err, childPath, "Failed to hash file. "+
					"It will be skipped until it can be read.")
				fp = unreadable
			}
			snap[name] = fp
		default:
			// Symlinks, sockets and devices are recorded without being
			// followed. They're never copied from the source, and they're
			// always replaced in the destination.
			s.log.Debugf("Found %s with unsupported type %s",
				childPath, mode&os.ModeType)
			snap[name] = special
		}
	}
	return snap, nil
}
