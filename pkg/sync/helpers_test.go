package sync

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/synclog"
)

// tree describes a directory tree. Keys are slash separated paths relative
// to the tree's root. Keys ending with a slash are directories, and all other
// keys are files with the given contents.
type tree map[string]string

func (tr tree) write(t *testing.T, root string) {
	for relPath, contents := range tr {
		path := filepath.Join(root, filepath.FromSlash(relPath))
		if strings.HasSuffix(relPath, "/") {
			require.NoError(t, fs.MkdirAll(path, 0755))
			continue
		}
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
	}
}

// readTree returns the tree rooted at `root`.
func readTree(t *testing.T, root string) tree {
	tr := tree{}
	err := afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if path == root {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if fi.IsDir() {
			tr[relPath+"/"] = ""
			return nil
		}

		contents, err := afero.ReadFile(fs, path)
		if err != nil {
			return err
		}
		tr[relPath] = string(contents)
		return nil
	})
	require.NoError(t, err)
	return tr
}

// newTestReconciler returns a Reconciler whose events are captured by the
// returned hook.
func newTestReconciler(opts Options) (*Reconciler, *logrusTest.Hook) {
	logger, hook := logrusTest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return NewReconciler(synclog.New(logger), opts), hook
}

// events returns the logged events other than plain info and debug messages,
// formatted as "<event> <path>".
func events(hook *logrusTest.Hook) []string {
	var evs []string
	for _, entry := range hook.AllEntries() {
		event := entry.Data[synclog.EventKey]
		if event == synclog.EventInfo {
			continue
		}
		evs = append(evs, fmt.Sprintf("%s %s", event, entry.Data[synclog.PathKey]))
	}
	return evs
}

// failingFs fails to open the given paths.
type failingFs struct {
	afero.Fs
	failOpen map[string]bool
}

func (f failingFs) Open(name string) (afero.File, error) {
	if f.failOpen[name] {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}
