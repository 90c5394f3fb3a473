package security

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityToken(t *testing.T) {
	secret := base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

	token, err := CreateIdentityToken(&Identity{UserID: "u-1", UserName: "sam", Email: "sam@example.com"}, secret, 3600)
	require.NoError(t, err)

	raw, err := DecodeSecret(secret)
	require.NoError(t, err)

	claims, err := ParseIdentityToken(token, raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "sam", claims.UniqueName)

	_, err = ParseIdentityToken(token, []byte("another secret"))
	assert.Error(t, err)

	expired, err := CreateIdentityToken(&Identity{UserID: "u-1"}, secret, -60)
	require.NoError(t, err)
	_, err = ParseIdentityToken(expired, raw)
	assert.Error(t, err)
}
