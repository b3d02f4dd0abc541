package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortHash(t *testing.T) {
	assert.Equal(t, "1a2b3c4", shortHash("1a2b3c4d5e6f"))
	assert.Equal(t, "abc", shortHash("abc"))
}

func TestGetInfoStartsWithVersion(t *testing.T) {
	assert.Contains(t, GetInfo(), Version)
}
