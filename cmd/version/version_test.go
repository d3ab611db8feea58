package version

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sidkik/dirmirror/pkg/version"
)

func TestVersion(t *testing.T) {
	var out bytes.Buffer
	stdout = &out
	defer func() { stdout = os.Stdout }()

	version.Version = "v1.2.3"
	defer func() { version.Version = version.EmptyValue }()

	cmd := New()
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "dirmirror version: v1.2.3\n", out.String())
}
