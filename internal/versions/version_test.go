package versions

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewVersionInfo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		version       string
		commit        string
		buildDate     string
		wantVersion   string
		wantBuildDate string
	}{
		{
			name:          "release build",
			version:       "v1.2.0",
			commit:        "0123456789abcdef",
			buildDate:     "2025-03-01T12:00:00Z",
			wantVersion:   "v1.2.0",
			wantBuildDate: "2025-03-01 12:00:00 UTC",
		},
		{
			name:          "dev build uses short commit",
			version:       "dev",
			commit:        "0123456789abcdef",
			buildDate:     unknownStr,
			wantVersion:   "dev-01234567",
			wantBuildDate: unknownStr,
		},
		{
			name:          "dev build without commit",
			version:       "dev",
			commit:        unknownStr,
			buildDate:     "not a date",
			wantVersion:   "dev",
			wantBuildDate: "not a date",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			info := newVersionInfo(tt.version, tt.commit, tt.buildDate)
			assert.Equal(t, tt.wantVersion, info.Version)
			assert.Equal(t, tt.wantBuildDate, info.BuildDate)
			assert.Equal(t, runtime.Version(), info.GoVersion)
			assert.Contains(t, info.String(), tt.wantVersion)
		})
	}
}
