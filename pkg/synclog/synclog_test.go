package synclog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvents(t *testing.T) {
	logger, logHook := logrusTest.NewNullLogger()
	sink := New(logger)

	sink.Info("Synchronization started")
	sink.FileCreated("/backup/a.txt")
	sink.FileModified("/backup/b.txt")
	sink.FileDeleted("/backup/c.txt")
	sink.DirectoryCreated("/backup/sub")
	sink.DirectoryDeleted("/backup/old")
	sink.Error(assert.AnError, "/backup/d.txt", "Failed to remove file")
	sink.Error(assert.AnError, "", "Synchronization failed")

	exp := []struct {
		level   logrus.Level
		fields  logrus.Fields
		message string
	}{
		{logrus.InfoLevel, logrus.Fields{EventKey: EventInfo}, "Synchronization started"},
		{logrus.InfoLevel, logrus.Fields{EventKey: EventFileCreated, PathKey: "/backup/a.txt"},
			"File /backup/a.txt was created"},
		{logrus.InfoLevel, logrus.Fields{EventKey: EventFileModified, PathKey: "/backup/b.txt"},
			"File /backup/b.txt was modified"},
		{logrus.InfoLevel, logrus.Fields{EventKey: EventFileDeleted, PathKey: "/backup/c.txt"},
			"File /backup/c.txt was deleted"},
		{logrus.InfoLevel, logrus.Fields{EventKey: EventDirectoryCreated, PathKey: "/backup/sub"},
			"Directory /backup/sub was created"},
		{logrus.InfoLevel, logrus.Fields{EventKey: EventDirectoryDeleted, PathKey: "/backup/old"},
			"Directory /backup/old was removed"},
		{logrus.ErrorLevel, logrus.Fields{EventKey: EventError, PathKey: "/backup/d.txt",
			logrus.ErrorKey: assert.AnError}, "Failed to remove file"},
		{logrus.ErrorLevel, logrus.Fields{EventKey: EventError,
			logrus.ErrorKey: assert.AnError}, "Synchronization failed"},
	}

	entries := logHook.AllEntries()
	require.Len(t, entries, len(exp))
	for i, e := range exp {
		assert.Equal(t, e.level, entries[i].Level)
		assert.Equal(t, e.fields, entries[i].Data)
		assert.Equal(t, e.message, entries[i].Message)
	}
}

func TestOpen(t *testing.T) {
	fs = afero.NewMemMapFs()

	var console bytes.Buffer
	logger, closer, err := Open("/var/log/dirmirror/sync.log", &console, false)
	require.NoError(t, err)

	New(logger).FileCreated("/backup/a.txt")
	logger.Debug("hidden")
	require.NoError(t, closer.Close())

	contents, err := afero.ReadFile(fs, "/var/log/dirmirror/sync.log")
	require.NoError(t, err)
	assert.Contains(t, string(contents), `msg="File /backup/a.txt was created"`)
	assert.Contains(t, string(contents), "event=file-created")
	assert.NotContains(t, string(contents), "hidden")
	assert.Contains(t, console.String(), `msg="File /backup/a.txt was created"`)
}

func TestOpenAppends(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/sync.log", []byte("previous run\n"), 0644))

	var console bytes.Buffer
	logger, closer, err := Open("/sync.log", &console, true)
	require.NoError(t, err)
	logger.Debug("visible")
	require.NoError(t, closer.Close())

	contents, err := afero.ReadFile(fs, "/sync.log")
	require.NoError(t, err)
	assert.Contains(t, string(contents), "previous run\n")
	assert.Contains(t, string(contents), "msg=visible")
}

func TestOpenError(t *testing.T) {
	fs = afero.NewReadOnlyFs(afero.NewMemMapFs())

	var console bytes.Buffer
	_, _, err := Open("/logs/sync.log", &console, false)
	assert.True(t, strings.HasPrefix(err.Error(), "make log directory:"))
}
