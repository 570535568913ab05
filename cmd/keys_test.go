package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/stretchr/testify/assert"
)

func TestPrintBindings(t *testing.T) {
	var out bytes.Buffer
	keys := console.DefaultKeyBindings()
	printBindings(&out, keys)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, keys.Len())
	assert.Contains(t, out.String(), "History Prev")
	assert.Regexp(t, `(?m)^History Prev\s+up$`, out.String())
}

func TestPrintVersionInfo(t *testing.T) {
	var out bytes.Buffer
	printVersionInfo(&out)
	assert.Contains(t, out.String(), "consolepane version dev")
	assert.Contains(t, out.String(), "Platform:")
}
