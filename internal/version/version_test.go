package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMinorVersion(t *testing.T) {
	assert.Equal(t, "0.25", MinorVersion("0.25.1"))
	assert.Equal(t, "1.2", MinorVersion("v1.2.3-rc.1"))
	assert.Empty(t, MinorVersion("banana"))
}

func TestAtLeast(t *testing.T) {
	assert.True(t, AtLeast("0.2.0", "0.2.0"))
	assert.True(t, AtLeast("v0.10.0", "0.9.9"))
	assert.False(t, AtLeast("0.1.0-dev", "0.1.0"))
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid(Version))
	assert.False(t, IsValid("1.x"))
}

func TestGetAndString(t *testing.T) {
	oldCommit, oldTime := GitCommit, BuildTime
	t.Cleanup(func() { GitCommit, BuildTime = oldCommit, oldTime })

	GitCommit, BuildTime = "unknown", "unknown"
	assert.Equal(t, Version, String())
	info := Get()
	assert.Empty(t, info.Commit)
	assert.NotEmpty(t, info.GoVersion)

	GitCommit, BuildTime = "0123456789abcdef", "2026-01-02T03:04:05Z"
	assert.Equal(t, Version+"-01234567", String())
	info = Get()
	assert.Equal(t, "01234567", info.Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", info.BuildTime)
}
