package app

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stacklok/tvmaze-sync/internal/versions"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	t.Cleanup(func() {
		versionCmd.SetOut(nil)
		_ = versionCmd.Flags().Set("format", "")
	})

	require.NoError(t, versionCmd.RunE(versionCmd, nil))
	assert.Equal(t, versions.GetVersionInfo().String(), strings.TrimSpace(out.String()))

	out.Reset()
	require.NoError(t, versionCmd.Flags().Set("format", "json"))
	require.NoError(t, versionCmd.RunE(versionCmd, nil))

	var info versions.VersionInfo
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Equal(t, versions.GetVersionInfo(), info)
}

func TestConfirm(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{input: "yes\n", want: true},
		{input: "y\n", want: true},
		{input: " YES \n", want: true},
		{input: "no\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
		{input: "y", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			var out bytes.Buffer
			assert.Equal(t, tt.want, confirm(strings.NewReader(tt.input), &out, "Continue?"))
			assert.Equal(t, "Continue? (yes/no): ", out.String())
		})
	}
}
