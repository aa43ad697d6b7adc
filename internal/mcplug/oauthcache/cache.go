// Package oauthcache reads (never writes) the OAuth token cache files an
// external collaborator maintains at ~/.mcplug/<server>/tokens.json. The
// on-disk shape is golang.org/x/oauth2.Token's own JSON tags, so a future
// OAuth collaborator built on that package can read and write the same
// file this package already knows how to parse (§6 expansion).
package oauthcache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"

	"github.com/hydai/mcplug/pkg/logger"
)

// Lookup returns the cached access token for server, if a non-expired one
// exists. A missing file, a malformed file, or an expired token are all
// reported as "absent" (ok=false) rather than an error: cache staleness is
// not the transport's problem to raise, only its own 401/OAuth-challenge is.
func Lookup(server string) (string, bool) {
	path, err := cachePath(server)
	if err != nil {
		return "", false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		logger.Debug("oauthcache: malformed token cache at %s: %v", path, err)
		return "", false
	}

	if tok.AccessToken == "" {
		return "", false
	}
	if !tok.Expiry.IsZero() && tok.Expiry.Before(time.Now()) {
		return "", false
	}
	return tok.AccessToken, true
}

func cachePath(server string) (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".mcplug", server, "tokens.json"), nil
}
