// Package credential loads the Home Assistant access token.
package credential

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// EnvToken overrides the token file when set.
const EnvToken = "DECKHAND_TOKEN"

// ErrNoToken is returned when neither the environment nor the file holds a token.
var ErrNoToken = errors.New("no access token")

// LoadToken returns the token from $DECKHAND_TOKEN, or else from path with
// surrounding whitespace trimmed.
func LoadToken(path string) (string, error) {
	if token := strings.TrimSpace(os.Getenv(EnvToken)); token != "" {
		return token, nil
	}
	if path == "" {
		return "", fmt.Errorf("%w: set %s or server.token_file", ErrNoToken, EnvToken)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: %s is empty", ErrNoToken, path)
	}
	return token, nil
}
