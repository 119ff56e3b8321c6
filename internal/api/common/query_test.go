package common

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntQueryParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		query      string
		want       int
		wantErrMsg string
	}{
		{name: "missing uses default", query: "", want: 100},
		{name: "blank uses default", query: "?limit=%20", want: 100},
		{name: "valid value", query: "?limit=25", want: 25},
		{name: "zero", query: "?limit=0", want: 0},
		{name: "not a number", query: "?limit=ten", wantErrMsg: "invalid limit parameter: must be an integer"},
		{name: "negative", query: "?limit=-1", wantErrMsg: "invalid limit parameter: must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest("GET", "/shows"+tt.query, nil)

			got, err := IntQueryParam(req, "limit", 100)
			if tt.wantErrMsg != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantErrMsg, err.Error())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteErrorResponse(t *testing.T) {
	t.Parallel()
	rr := httptest.NewRecorder()

	WriteErrorResponse(rr, "boom", 418)

	assert.Equal(t, 418, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"boom"}`, rr.Body.String())
}
