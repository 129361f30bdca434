package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashToken(t *testing.T) {
	digest := HashToken("upload-token")

	assert.Len(t, digest, 64)
	assert.Equal(t, digest, HashToken("upload-token"))
	assert.NotEqual(t, digest, HashToken("other-token"))
	assert.NotContains(t, digest, "upload-token")
}
