package cli

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/placebolab/coach/internal/api"
	"github.com/placebolab/coach/internal/keyring"
	"github.com/placebolab/coach/internal/logger"
)

// Context carries the global flags into every subcommand.
type Context struct {
	Debug     bool
	APIURL    string
	ConfigDir string
}

func (c *Context) EnsureDirs() error {
	return os.MkdirAll(c.ConfigDir, 0755)
}

func (c *Context) MirrorPath() string {
	return filepath.Join(c.ConfigDir, "mirror.db")
}

func (c *Context) TimerPath() string {
	return filepath.Join(c.ConfigDir, "timer.json")
}

// NewClient builds the API client with any stored session installed. Token
// changes flow back into the keyring so the session survives restarts.
func (c *Context) NewClient() *api.Client {
	client := api.New(c.APIURL, persistTokens)
	tokens, err := keyring.GetTokens()
	switch {
	case err == nil:
		client.SetTokens(&api.Tokens{Access: tokens.Access, Refresh: tokens.Refresh})
	case errors.Is(err, keyring.ErrNotFound):
	default:
		logger.Warn("could not read tokens from keyring", "err", err)
	}
	return client
}

func persistTokens(t *api.Tokens) {
	if t == nil {
		if err := keyring.DeleteTokens(); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			logger.Warn("could not clear tokens from keyring", "err", err)
		}
		return
	}
	if err := keyring.SetTokens(keyring.Tokens{Access: t.Access, Refresh: t.Refresh}); err != nil {
		logger.Warn("could not store tokens in keyring", "err", err)
	}
}
