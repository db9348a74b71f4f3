package bootstrap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NethermindEth/portfolio-agent/pkg/bootstrap"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		output  string
		want    bootstrap.Version
		wantErr bool
	}{
		{output: "Python 3.11.4", want: bootstrap.Version{Major: 3, Minor: 11, Patch: 4}},
		{output: "Python 3.8", want: bootstrap.Version{Major: 3, Minor: 8}},
		{output: "Python 3.13.0rc1", want: bootstrap.Version{Major: 3, Minor: 13, Patch: 0}},
		{output: "Python", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			got, err := bootstrap.ParseVersion(tt.output)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersion_AtLeast(t *testing.T) {
	min := bootstrap.MinimumVersion

	assert.True(t, bootstrap.Version{Major: 3, Minor: 8}.AtLeast(min))
	assert.True(t, bootstrap.Version{Major: 3, Minor: 12, Patch: 1}.AtLeast(min))
	assert.True(t, bootstrap.Version{Major: 4}.AtLeast(min))
	assert.False(t, bootstrap.Version{Major: 3, Minor: 7, Patch: 17}.AtLeast(min))
	assert.False(t, bootstrap.Version{Major: 2, Minor: 7, Patch: 18}.AtLeast(min))
}

func TestResolveServiceURLs(t *testing.T) {
	tests := []struct {
		host, port string
		want       string
	}{
		{host: "", port: "", want: "http://localhost:8000"},
		{host: "0.0.0.0", port: "9000", want: "http://localhost:9000"},
		{host: "::", port: "8000", want: "http://localhost:8000"},
		{host: "127.0.0.1", port: " 8080 ", want: "http://127.0.0.1:8080"},
		{host: "::1", port: "8000", want: "http://[::1]:8000"},
	}

	for _, tt := range tests {
		urls := bootstrap.ResolveServiceURLs(tt.host, tt.port)
		assert.Equal(t, tt.want, urls.Base)
		assert.Equal(t, tt.want+"/docs", urls.Docs)
		assert.Equal(t, tt.want+"/health", urls.Health)
	}
}
