package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestString(t *testing.T) {
	oldVersion, oldCommit, oldBuild := Version, GitCommit, BuildTime
	t.Cleanup(func() { Version, GitCommit, BuildTime = oldVersion, oldCommit, oldBuild })

	Version, GitCommit, BuildTime = "0.3.0", "unknown", "unknown"
	assert.Equal(t, "0.3.0", String())
	assert.Equal(t, "Version=0.3.0", StringFull())
	assert.True(t, IsRelease())

	GitCommit, BuildTime = "0123456789abcdef", "2026-01-01T00:00:00Z"
	assert.Equal(t, "0.3.0-01234567", String())
	assert.Equal(t, "Version=0.3.0 Commit=01234567 BuildTime=2026-01-01T00:00:00Z", StringFull())

	Version = "0.0.0-dev"
	assert.False(t, IsRelease())
}

func TestIsVersionGreaterOrEqualThan(t *testing.T) {
	testCases := []struct {
		version, target string
		want            bool
	}{
		{"0.3.0", "0.2.9", true},
		{"0.3.0", "0.3.0", true},
		{"0.3.0", "0.10.0", false},
	}
	for _, tc := range testCases {
		t.Run(tc.version+">="+tc.target, func(t *testing.T) {
			assert.Equal(t, tc.want, IsVersionGreaterOrEqualThan(tc.version, tc.target))
		})
	}
}
