package config

import (
	"fmt"
	"os"

	"github.com/ghodss/yaml"
	"github.com/spf13/afero"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// malformedConfigTemplate is shown when a config file isn't valid YAML, has
// keys dirmirror doesn't know, or has values of the wrong type. The YAML
// library's error doesn't point at the offending key reliably, so it's
// printed as is after a list of the accepted keys.
const malformedConfigTemplate = "Failed to read the dirmirror config at %q.\n" +
	"The accepted keys are version, logFile, resourceFolder, backupFolder,\n" +
	"syncInterval (whole seconds), exclude (a list of patterns) and hash.\n\n" +
	"YAML error: %s"

// versioned is implemented by config files that carry a `version` key.
type versioned interface {
	getVersion() string
}

type unsupportedVersionError struct {
	path, supported, found string
}

func (err unsupportedVersionError) Error() string {
	return err.FriendlyMessage()
}

func (err unsupportedVersionError) FriendlyMessage() string {
	return fmt.Sprintf("%q is a version %q config, but this dirmirror "+
		"only reads version %q.", err.path, err.found, err.supported)
}

// readConfigFile decodes the YAML file at `path` into `config`. The version
// is checked before unknown keys are rejected, so that a file written for a
// different version reports the version mismatch rather than whichever key
// changed.
func readConfigFile(path string, config versioned, supportedVersion string) error {
	contents, err := afero.ReadFile(fs, path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return errors.FileNotFound{Path: path}
	case err != nil:
		return errors.WithContext(err, "read")
	}

	if err := yaml.Unmarshal(contents, config); err != nil {
		return errors.NewFriendlyError(malformedConfigTemplate, path, err)
	}

	if found := config.getVersion(); found != supportedVersion {
		return unsupportedVersionError{
			path:      path,
			supported: supportedVersion,
			found:     found,
		}
	}

	if err := yaml.UnmarshalStrict(contents, config, yaml.DisallowUnknownFields); err != nil {
		return errors.NewFriendlyError(malformedConfigTemplate, path, err)
	}
	return nil
}
