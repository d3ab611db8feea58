package sync

import (
	"crypto/sha512"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashFile(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/hello", []byte("hello"), 0644))

	tests := []struct {
		algo HashAlgorithm
		exp  string
	}{
		{SHA512, "m3HSJL1i83hdltRq0+o9czGb+8KJDKra4t/3JRlnPKcjI8PZm6XBHXx6zG4UuMXaDEZjR1wuXDre9G9zvN7AQw=="},
		{"", "m3HSJL1i83hdltRq0+o9czGb+8KJDKra4t/3JRlnPKcjI8PZm6XBHXx6zG4UuMXaDEZjR1wuXDre9G9zvN7AQw=="},
		{MD5, "XUFAKrxLKna5cZ2REBfFkg=="},
		{BLAKE2b, "5M+jmj03vjHFlgnoB5cHmcqmihm/qhUTXxZQheAdQaZboeGxRq62vQCStJ6sIUwQPM+jo2WVS7vlL3Sis2IMlA=="},
	}

	for _, test := range tests {
		test := test
		t.Run(string(test.algo), func(t *testing.T) {
			digest, err := HashFile(test.algo, "/hello")
			assert.NoError(t, err)
			assert.Equal(t, test.exp, digest)
		})
	}
}

func TestHashFileLargerThanChunk(t *testing.T) {
	fs = afero.NewMemMapFs()
	contents := []byte(strings.Repeat("0123456789", 3*hashChunkSize))
	require.NoError(t, afero.WriteFile(fs, "/large", contents, 0644))

	exp := sha512.Sum512(contents)
	digest, err := HashFile(SHA512, "/large")
	assert.NoError(t, err)
	assert.Equal(t, base64.StdEncoding.EncodeToString(exp[:]), digest)
}

func TestHashFileErrors(t *testing.T) {
	fs = afero.NewMemMapFs()

	_, err := HashFile(SHA512, "/missing")
	assert.True(t, strings.HasPrefix(err.Error(), "open:"))

	require.NoError(t, afero.WriteFile(fs, "/file", []byte("data"), 0644))
	_, err = HashFile("crc32", "/file")
	assert.EqualError(t, err, `unsupported hash algorithm "crc32"`)
}

func TestFingerprint(t *testing.T) {
	fs = afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/dir", 0755))
	require.NoError(t, afero.WriteFile(fs, "/a", []byte("same"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/b", []byte("same"), 0644))
	require.NoError(t, afero.WriteFile(fs, "/c", []byte("different"), 0644))

	dirFp, err := fingerprint(SHA512, "/dir")
	assert.NoError(t, err)
	assert.Equal(t, DirectorySentinel, dirFp)
	assert.True(t, dirFp.IsDir())

	aFp, err := fingerprint(SHA512, "/a")
	assert.NoError(t, err)
	assert.False(t, aFp.IsDir())
	assert.NotEmpty(t, aFp.Digest)

	bFp, err := fingerprint(SHA512, "/b")
	assert.NoError(t, err)
	assert.Equal(t, aFp, bFp)

	cFp, err := fingerprint(SHA512, "/c")
	assert.NoError(t, err)
	assert.NotEqual(t, aFp, cFp)

	_, err = fingerprint(SHA512, "/missing")
	assert.Error(t, err)
}

func TestHashAlgorithmValid(t *testing.T) {
	for _, algo := range HashAlgorithms {
		assert.True(t, algo.Valid(), string(algo))
	}
	assert.False(t, HashAlgorithm("sha1").Valid())
	assert.False(t, HashAlgorithm("").Valid())
}
