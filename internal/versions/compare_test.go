package versions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version string
		want    string
		wantErr bool
	}{
		{name: "plain semver", version: "3.0.10", want: "3.0.10"},
		{name: "four components", version: "4.0.14.2939", want: "4.0.14"},
		{name: "v prefix", version: "v4.1.0", want: "4.1.0"},
		{name: "major only", version: "4", want: "4.0.0"},
		{name: "prerelease", version: "4.0.0.1-develop", want: "4.0.0-develop"},
		{name: "surrounding space", version: " 3.0.1 ", want: "3.0.1"},
		{name: "empty", version: "", wantErr: true},
		{name: "garbage", version: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := Parse(tt.version)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestAtLeastMajor(t *testing.T) {
	t.Parallel()

	assert.True(t, AtLeastMajor("4.0.14.2939", 4))
	assert.True(t, AtLeastMajor("5.0.0", 4))
	assert.False(t, AtLeastMajor("3.0.10.1567", 4))
	assert.False(t, AtLeastMajor("", 4))
	assert.False(t, AtLeastMajor("unknown", 4))
}
