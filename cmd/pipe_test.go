package cmd

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alantheprice/consolepane/pkg/console"
	"github.com/alantheprice/consolepane/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPipe(t *testing.T, input string) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := pipeSession(ctx, strings.NewReader(input), &out, console.Options{}, logging.Discard())
	require.NoError(t, err)
	return out.String()
}

func TestPipeSession(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"echo", "echo hi\n", "hi\n"},
		{"reads go to the running command", "echo hi\nsum 2\n3\n4\nread\nbogus\n", "hi\n7\nread: bogus\n"},
		{"unknown command", "bogus\necho after\n", "bogus: command not found\nafter\n"},
		{"read after input ran out", "read\n", "read: read interrupted: EOF\n"},
		{"blank lines", "\n\necho x\n", "x\n"},
		{"empty input", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, runPipe(t, tt.input))
		})
	}
}

func TestPipeSessionShortSum(t *testing.T) {
	got := runPipe(t, "sum 3\n1\n2\n")
	assert.Equal(t, "sum: read interrupted after 2 of 3: EOF\n", got)
}
