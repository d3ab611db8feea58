package synclog

import (
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// fileHook duplicates every entry into a file. The file gets its own
// formatter so that the console can use colors while the file stays plain
// text.
type fileHook struct {
	out       io.Writer
	formatter logrus.Formatter
	lock      sync.Mutex
}

func (hook *fileHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (hook *fileHook) Fire(entry *logrus.Entry) error {
	line, err := hook.formatter.Format(entry)
	if err != nil {
		return errors.WithContext(err, "format")
	}

	hook.lock.Lock()
	defer hook.lock.Unlock()
	_, err = hook.out.Write(line)
	return err
}

// Open creates a logger that writes to `console` and appends to the file at
// `path`. The parent directories of `path` are created if they don't exist.
// The returned closer must be closed on exit to flush the log file.
func Open(path string, console io.Writer, verbose bool) (*logrus.Logger, io.Closer, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := fs.MkdirAll(dir, 0755); err != nil {
			return nil, nil, errors.WithContext(err, "make log directory")
		}
	}

	logFile, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, errors.WithContext(err, "open log file")
	}

	logger := logrus.New()
	logger.SetOutput(console)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.AddHook(&fileHook{
		out: logFile,
		formatter: &logrus.TextFormatter{
			FullTimestamp: true,

			// The file is read with regular text tools, so escape codes would
			// only get in the way.
			DisableColors: true,
		},
	})

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger, logFile, nil
}
