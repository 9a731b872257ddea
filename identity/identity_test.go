package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateUsernames(t *testing.T) {
	names, err := GenerateUsernames(25, 12, 16)
	require.NoError(t, err)
	require.Len(t, names, 25)

	seen := make(map[string]struct{})
	for _, name := range names {
		assert.GreaterOrEqual(t, len(name), 12)
		assert.LessOrEqual(t, len(name), 16)
		for _, r := range name {
			assert.Contains(t, usernameAlphabet, string(r))
		}

		_, dup := seen[name]
		assert.False(t, dup, "duplicate username %q", name)
		seen[name] = struct{}{}
	}
}

func TestGenerateUsernamesFixedLength(t *testing.T) {
	names, err := GenerateUsernames(5, 8, 8)
	require.NoError(t, err)
	require.Len(t, names, 5)
	for _, name := range names {
		assert.Len(t, name, 8)
	}
}

func TestGenerateUsernamesExhaustion(t *testing.T) {
	// 36 single-character usernames exist; asking for 100 must fail instead
	// of looping forever.
	_, err := GenerateUsernames(100, 1, 1)
	require.Error(t, err)
}

func TestGenerateUsernamesInvalidBounds(t *testing.T) {
	_, err := GenerateUsernames(1, 10, 5)
	require.Error(t, err)

	_, err = GenerateUsernames(1, 0, 5)
	require.Error(t, err)

	_, err = GenerateUsernames(0, 5, 10)
	require.Error(t, err)
}

func TestGeneratePassword(t *testing.T) {
	for i := 0; i < 50; i++ {
		pw, err := GeneratePassword(15, 30)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(pw), 15)
		assert.LessOrEqual(t, len(pw), 30)
		for _, r := range pw {
			assert.Contains(t, passwordAlphabet, string(r))
		}
	}
}

func TestGeneratePasswordInvalidBounds(t *testing.T) {
	_, err := GeneratePassword(0, 4)
	require.Error(t, err)

	_, err = GeneratePassword(10, 5)
	require.Error(t, err)
}

func TestRandomDisplayName(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Contains(t, displayNames, RandomDisplayName())
	}
}
