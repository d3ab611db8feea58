package sync

import (
	"crypto/md5" // nolint: gosec
	"crypto/sha512"
	"encoding/base64"
	"hash"
	"io"

	"github.com/spf13/afero"
	"golang.org/x/crypto/blake2b"

	"github.com/sidkik/dirmirror/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// hashChunkSize is the size of the reads used when hashing files. It bounds
// the memory used by hashing regardless of the file size.
const hashChunkSize = 4096

// HashAlgorithm names the digest used to fingerprint file contents.
type HashAlgorithm string

// The supported hash algorithms.
const (
	SHA512  HashAlgorithm = "sha512"
	MD5     HashAlgorithm = "md5"
	BLAKE2b HashAlgorithm = "blake2b"
)

// DefaultHashAlgorithm is used when no algorithm is configured.
const DefaultHashAlgorithm = SHA512

// HashAlgorithms lists the supported algorithms.
var HashAlgorithms = []HashAlgorithm{SHA512, MD5, BLAKE2b}

// Valid returns whether the algorithm is supported.
func (algo HashAlgorithm) Valid() bool {
	for _, supported := range HashAlgorithms {
		if algo == supported {
			return true
		}
	}
	return false
}

func (algo HashAlgorithm) newHash() (hash.Hash, error) {
	switch algo {
	case SHA512, "":
		return sha512.New(), nil
	case MD5:
		return md5.New(), nil // nolint: gosec
	case BLAKE2b:
		return blake2b.New512(nil)
	default:
		return nil, errors.New("unsupported hash algorithm %q", algo)
	}
}

type fingerprintKind int

const (
	fileKind fingerprintKind = iota
	directoryKind
	unreadableKind
	specialKind
)

// Fingerprint identifies the contents of a directory entry. Two regular files
// with equal fingerprints have the same contents. Directories all share the
// same fingerprint, DirectorySentinel, since their contents are compared by
// recursing into them. Symlinks and other special files are never read or
// followed.
type Fingerprint struct {
	kind fingerprintKind

	// Digest is the base64 encoded hash of the file contents. It's empty for
	// directories, special files and unreadable files.
	Digest string
}

// DirectorySentinel is the fingerprint of every directory.
var DirectorySentinel = Fingerprint{kind: directoryKind}

// unreadable is the fingerprint of a file that couldn't be hashed.
var unreadable = Fingerprint{kind: unreadableKind}

// special is the fingerprint of anything that's neither a regular file nor a
// directory, such as a symlink, socket or device.
var special = Fingerprint{kind: specialKind}

// FileFingerprint returns the fingerprint of a file with the given digest.
func FileFingerprint(digest string) Fingerprint {
	return Fingerprint{kind: fileKind, Digest: digest}
}

// IsDir returns whether the fingerprint is the directory sentinel.
func (fp Fingerprint) IsDir() bool {
	return fp.kind == directoryKind
}

// IsUnreadable returns whether the entry's contents couldn't be hashed.
func (fp Fingerprint) IsUnreadable() bool {
	return fp.kind == unreadableKind
}

// IsSpecial returns whether the entry is neither a regular file nor a
// directory.
func (fp Fingerprint) IsSpecial() bool {
	return fp.kind == specialKind
}

func (fp Fingerprint) String() string {
	switch fp.kind {
	case specialKind:
		return "<special>"
	case directoryKind:
		return "<directory>"
	case unreadableKind:
		return "<unreadable>"
	default:
		return fp.Digest
	}
}

// HashFile returns the hash of the contents of the file at the given path.
// The file is read in fixed size chunks so that large files don't need to fit
// in memory.
func HashFile(algo HashAlgorithm, path string) (string, error) {
	hasher, err := algo.newHash()
	if err != nil {
		return "", err
	}

	f, err := fs.Open(path)
	if err != nil {
		return "", errors.WithContext(err, "open")
	}
	defer f.Close()

	buf := make([]byte, hashChunkSize)
	if _, err := io.CopyBuffer(hasher, f, buf); err != nil {
		return "", errors.WithContext(err, "read")
	}

	return base64.StdEncoding.EncodeToString(hasher.Sum(nil)), nil
}

// fingerprint returns the fingerprint of the entry at `path`. Directories
// aren't read.
func fingerprint(algo HashAlgorithm, path string) (Fingerprint, error) {
	isDir, err := afero.IsDir(fs, path)
	if err != nil {
		return Fingerprint{}, errors.WithContext(err, "stat")
	}

	if isDir {
		return DirectorySentinel, nil
	}

	digest, err := HashFile(algo, path)
	if err != nil {
		return Fingerprint{}, err
	}
	return FileFingerprint(digest), nil
}
