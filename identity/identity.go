// Package identity generates the throwaway usernames, display names, and
// passwords used to provision disposable accounts. All functions are
// stateless.
package identity

import (
	"crypto/rand"
	"fmt"
	"math/big"
	mrand "math/rand"
)

const (
	usernameAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	passwordAlphabet = "abcdefghijklmnopqrstuvwxyz" +
		"ABCDEFGHIJKLMNOPQRSTUVWXYZ" +
		"0123456789" +
		"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// uniquenessAttemptsPerName caps collision retries so an impossible
// alphabet/length combination fails instead of spinning forever.
const uniquenessAttemptsPerName = 1000

// displayNames is the fixed pool registration display names are drawn from.
// Cosmetic registration metadata only.
var displayNames = []string{
	"Amir", "Sophia", "Liam", "Olivia", "Noah",
	"Emma", "Mason", "Ava", "Lucas", "Isabella",
	"Ethan", "Mia", "Logan", "Charlotte", "James",
	"Amelia", "Benjamin", "Harper", "Elijah", "Evelyn",
}

// GenerateUsernames returns count unique usernames, each of a length chosen
// uniformly in [minLen, maxLen] from the lowercase-alphanumeric alphabet.
func GenerateUsernames(count, minLen, maxLen int) ([]string, error) {
	if err := checkBounds(minLen, maxLen); err != nil {
		return nil, err
	}
	if count < 1 {
		return nil, fmt.Errorf("invalid username count %d", count)
	}

	seen := make(map[string]struct{}, count)
	names := make([]string, 0, count)
	budget := count * uniquenessAttemptsPerName
	for len(names) < count {
		if budget == 0 {
			return nil, fmt.Errorf("could not generate %d unique usernames with lengths %d-%d", count, minLen, maxLen)
		}
		budget--

		name := randomString(usernameAlphabet, minLen, maxLen)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}

	return names, nil
}

// GeneratePassword returns a password of a length chosen uniformly in
// [minLen, maxLen] with characters drawn from letters, digits, and
// punctuation. There is no guarantee every character class appears.
func GeneratePassword(minLen, maxLen int) (string, error) {
	if err := checkBounds(minLen, maxLen); err != nil {
		return "", err
	}

	n, err := secureInt(maxLen - minLen + 1)
	if err != nil {
		return "", err
	}

	out := make([]byte, minLen+n)
	for i := range out {
		idx, err := secureInt(len(passwordAlphabet))
		if err != nil {
			return "", err
		}
		out[i] = passwordAlphabet[idx]
	}

	return string(out), nil
}

// RandomDisplayName picks a display name uniformly from the fixed pool.
func RandomDisplayName() string {
	return displayNames[mrand.Intn(len(displayNames))]
}

func checkBounds(minLen, maxLen int) error {
	if minLen < 1 || maxLen < minLen {
		return fmt.Errorf("invalid length bounds [%d, %d]", minLen, maxLen)
	}
	return nil
}

// randomString draws from math/rand: usernames and display names are not
// secrets, they only need to be unpredictable enough to avoid collisions.
func randomString(alphabet string, minLen, maxLen int) string {
	out := make([]byte, minLen+mrand.Intn(maxLen-minLen+1))
	for i := range out {
		out[i] = alphabet[mrand.Intn(len(alphabet))]
	}
	return string(out)
}

// secureInt draws a uniform int in [0, n) from crypto/rand. Passwords are
// credentials and get the stronger source.
func secureInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("could not draw random number: %w", err)
	}
	return int(v.Int64()), nil
}
