package cmd

import (
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/dirmirror/cmd/mirror"
	"github.com/sidkik/dirmirror/cmd/util"
	"github.com/sidkik/dirmirror/cmd/version"
)

// Execute runs the main CLI process.
func Execute() {
	if util.Verbose() {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := mirror.New()
	rootCmd.SilenceUsage = true

	// The call to rootCmd.Execute prints the error, so we silence errors
	// here to avoid double printing.
	rootCmd.SilenceErrors = true
	rootCmd.AddCommand(version.New())

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
