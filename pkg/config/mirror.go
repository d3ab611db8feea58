package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"

	"github.com/sidkik/dirmirror/pkg/errors"
	"github.com/sidkik/dirmirror/pkg/sync"
)

const (
	// InitialMirrorConfigVersion is the first version of the mirror config.
	// Config files that do not specify a version will default to this
	// version.
	InitialMirrorConfigVersion = "v1alpha1"

	// SupportedMirrorConfigVersion is the version of the mirror config
	// understood by this binary.
	SupportedMirrorConfigVersion = "v1alpha1"
)

// Mirror is the validated configuration the daemon runs with. It can be read
// from a YAML file, and each field can be overridden on the command line.
type Mirror struct {
	Version string `json:"version,omitempty"`

	// LogFile is the path of the file that every event is appended to.
	LogFile string `json:"logFile"`

	// ResourceFolder is the source tree.
	ResourceFolder string `json:"resourceFolder"`

	// BackupFolder is the destination tree that's made to match
	// ResourceFolder.
	BackupFolder string `json:"backupFolder"`

	// SyncInterval is the number of seconds to sleep after each pass.
	SyncInterval int `json:"syncInterval"`

	// Exclude contains doublestar patterns for paths that shouldn't be
	// mirrored.
	Exclude []string `json:"exclude,omitempty"`

	// Hash is the algorithm used to compare file contents.
	Hash string `json:"hash,omitempty"`
}

func (m Mirror) getVersion() string {
	return m.Version
}

// homedirExpand will be overridden in mock tests
var homedirExpand = homedir.Expand

// ParseMirror reads the mirror config stored at `path`. Relative paths in
// the file are evaluated relative to the file's directory.
func ParseMirror(path string) (Mirror, error) {
	path, err := homedirExpand(path)
	if err != nil {
		return Mirror{}, errors.WithContext(err, "expand config path")
	}

	config := Mirror{Version: InitialMirrorConfigVersion}
	if err := readConfigFile(path, &config, SupportedMirrorConfigVersion); err != nil {
		if _, ok := err.(errors.FileNotFound); ok {
			return Mirror{}, errors.NewFriendlyError(
				"The config file doesn't exist at %q.", path)
		}
		return Mirror{}, errors.WithContext(err, "parse")
	}

	relativeTo := filepath.Dir(path)
	for _, field := range []*string{&config.LogFile, &config.ResourceFolder, &config.BackupFolder} {
		if *field == "" {
			continue
		}

		*field, err = homedirExpand(*field)
		if err != nil {
			return Mirror{}, errors.WithContext(err, "expand path")
		}

		if !filepath.IsAbs(*field) {
			*field = filepath.Join(relativeTo, *field)
		}
	}
	return config, nil
}

// Merge returns a copy of `m` with the fields that are set in `override`
// replaced.
func (m Mirror) Merge(override Mirror) Mirror {
	if override.LogFile != "" {
		m.LogFile = override.LogFile
	}
	if override.ResourceFolder != "" {
		m.ResourceFolder = override.ResourceFolder
	}
	if override.BackupFolder != "" {
		m.BackupFolder = override.BackupFolder
	}
	if override.SyncInterval != 0 {
		m.SyncInterval = override.SyncInterval
	}
	if len(override.Exclude) != 0 {
		m.Exclude = override.Exclude
	}
	if override.Hash != "" {
		m.Hash = override.Hash
	}
	return m
}

// ExpandPaths expands `~` in the configured paths and makes them absolute.
func (m *Mirror) ExpandPaths() error {
	for _, field := range []*string{&m.LogFile, &m.ResourceFolder, &m.BackupFolder} {
		if *field == "" {
			continue
		}

		expanded, err := homedirExpand(*field)
		if err != nil {
			return errors.WithContext(err, "expand path")
		}

		*field, err = filepath.Abs(expanded)
		if err != nil {
			return errors.WithContext(err, "make path absolute")
		}
	}
	return nil
}

// Validate checks that the config can be used to start the daemon. The
// folders must already exist.
func (m Mirror) Validate() error {
	required := []struct {
		field string
		isSet bool
	}{
		{"log-file", m.LogFile != ""},
		{"resource-folder", m.ResourceFolder != ""},
		{"backup-folder", m.BackupFolder != ""},
		{"sync-interval", m.SyncInterval != 0},
	}
	for _, r := range required {
		if !r.isSet {
			return errors.MissingFieldError{Field: r.field}
		}
	}

	if m.SyncInterval < 0 {
		return errors.NewFriendlyError(
			"The sync interval must be a positive number of seconds, got %d.",
			m.SyncInterval)
	}

	folders := []struct {
		name, path string
	}{
		{"Resource", m.ResourceFolder},
		{"Backup", m.BackupFolder},
	}
	for _, folder := range folders {
		if err := checkDir(folder.path); err != nil {
			switch err.(type) {
			case errors.FileNotFound:
				return errors.NewFriendlyError("%s folder doesn't exist: %s",
					folder.name, folder.path)
			case errors.NotADirectory:
				return errors.NewFriendlyError("%s folder is not a directory: %s",
					folder.name, folder.path)
			default:
				return errors.WithContext(err, fmt.Sprintf("check %s folder", folder.name))
			}
		}
	}

	// Neither folder may contain the other.
	if isWithin(m.BackupFolder, m.ResourceFolder) || isWithin(m.ResourceFolder, m.BackupFolder) {
		return errors.NewFriendlyError("The resource folder (%s) and the backup "+
			"folder (%s) must not contain each other.", m.ResourceFolder, m.BackupFolder)
	}

	if m.Hash != "" && !sync.HashAlgorithm(m.Hash).Valid() {
		return errors.NewFriendlyError("Unsupported hash algorithm %q. "+
			"Supported algorithms: %s.", m.Hash, joinAlgorithms(sync.HashAlgorithms))
	}

	for _, pattern := range m.Exclude {
		if !sync.ValidExcludePattern(pattern) {
			return errors.NewFriendlyError("Invalid exclude pattern %q.", pattern)
		}
	}
	return nil
}

// Interval returns the time to sleep between passes.
func (m Mirror) Interval() time.Duration {
	return time.Duration(m.SyncInterval) * time.Second
}

// SyncOptions returns the options for the sync.Reconciler.
func (m Mirror) SyncOptions() sync.Options {
	return sync.Options{
		Hash:    sync.HashAlgorithm(m.Hash),
		Exclude: m.Exclude,
	}
}

func checkDir(path string) error {
	fi, err := fs.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return errors.FileNotFound{Path: path}
	case err != nil:
		return errors.WithContext(err, "stat")
	}

	if !fi.IsDir() {
		return errors.NotADirectory{Path: path}
	}
	return nil
}

// isWithin returns whether `path` is `dir` or one of its descendants.
func isWithin(path, dir string) bool {
	rel, err := filepath.Rel(filepath.Clean(dir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

func joinAlgorithms(algos []sync.HashAlgorithm) string {
	var names []string
	for _, algo := range algos {
		names = append(names, string(algo))
	}
	return strings.Join(names, ", ")
}
