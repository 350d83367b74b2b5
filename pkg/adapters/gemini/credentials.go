package gemini

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"

	"github.com/aretw0/intheflow/pkg/ports"
)

// APIKeyEnv is the environment variable holding the API key.
const APIKeyEnv = "GEMINI_API_KEY"

// ErrNoCredential is returned by RequestCredential when no key can be found.
var ErrNoCredential = errors.New("gemini: no API key configured")

// EnvCredentials reads the API key from the environment. RequestCredential
// re-reads the configured .env files, so a key written to disk while the
// process runs is picked up by the next request.
type EnvCredentials struct {
	mu    sync.RWMutex
	key   string
	files []string
}

var (
	_ ports.Credentials = (*EnvCredentials)(nil)
	_ KeySource         = (*EnvCredentials)(nil)
)

// NewEnvCredentials captures the current GEMINI_API_KEY. files are the .env
// files consulted on RequestCredential; ".env" is used when none are given.
func NewEnvCredentials(files ...string) *EnvCredentials {
	if len(files) == 0 {
		files = []string{".env"}
	}
	return &EnvCredentials{key: strings.TrimSpace(os.Getenv(APIKeyEnv)), files: files}
}

// APIKey returns the current key.
func (e *EnvCredentials) APIKey() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.key
}

// HasCredential reports whether a key is configured.
func (e *EnvCredentials) HasCredential(context.Context) bool {
	return e.APIKey() != ""
}

// RequestCredential reloads the key from the process environment and the .env
// files, the latter taking precedence.
func (e *EnvCredentials) RequestCredential(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.TrimSpace(os.Getenv(APIKeyEnv))
	for _, f := range e.files {
		values, err := godotenv.Read(f)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(values[APIKeyEnv]); v != "" {
			key = v
		}
	}

	e.mu.Lock()
	e.key = key
	e.mu.Unlock()

	if key == "" {
		return ErrNoCredential
	}
	return nil
}
