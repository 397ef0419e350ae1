package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword(t *testing.T) {
	hashed, err := HashPassword("s3cret!")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hashed)
	assert.True(t, CheckPasswordHash("s3cret!", hashed))
	assert.False(t, CheckPasswordHash("wrong", hashed))
}
