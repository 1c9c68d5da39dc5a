package buildinfo

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintBuildData(t *testing.T) {
	old := Version
	t.Cleanup(func() { Version = old })

	var buf bytes.Buffer
	Version = "v0.3.1"
	PrintBuildData(&buf)

	assert.Contains(t, buf.String(), "Build version: v0.3.1\n")
	assert.Contains(t, buf.String(), "Build date: N/A\n")
	assert.Contains(t, buf.String(), "Build commit: N/A\n")
}
