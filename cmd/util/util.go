package util

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	log "github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "DIRMIRROR_LOG_VERBOSE"

// Mocked for unit testing.
var (
	stderr io.Writer = os.Stderr
	exit             = os.Exit
)

// Verbose returns whether debug logging was requested.
func Verbose() bool {
	return os.Getenv(verboseLogKey) == "true"
}

// HandleFatalError prints the user facing message for `err` and exits.
func HandleFatalError(err error) {
	log.WithError(err).Debug("Fatal error")
	fmt.Fprintln(stderr, errors.GetPrintableMessage(err))
	exit(1)
}

// HandlePanic logs the stack trace of a panic before exiting. It should be
// deferred at the top of every goroutine.
func HandlePanic() {
	if r := recover(); r != nil {
		log.WithField("stack", string(debug.Stack())).Errorf("Unexpected panic: %v", r)
		fmt.Fprintf(stderr, "Unexpected error: %v\n", r)
		exit(1)
	}
}
