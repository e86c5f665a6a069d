package crypto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("CorrectHorse9!")
	require.NoError(t, err)
	require.NotEqual(t, "CorrectHorse9!", hash)

	require.True(t, VerifyPassword(hash, "CorrectHorse9!"))
	require.False(t, VerifyPassword(hash, "wrong-password"))
}

func TestGenerateTokenLengthAndUniqueness(t *testing.T) {
	first, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GenerateToken(32)
	require.NoError(t, err)
	require.NotEqual(t, first, second)
}

func TestTokenEqual(t *testing.T) {
	require.True(t, TokenEqual("abc123", "abc123"))
	require.False(t, TokenEqual("abc123", "abc124"))
	require.False(t, TokenEqual("abc123", ""))
}
