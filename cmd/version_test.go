package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", GetVersion())

	cmd := newVersionCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "beacon version 1.2.3\n", out.String())
}
