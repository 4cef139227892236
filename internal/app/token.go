package app

import (
	"fmt"

	"github.com/lumosnap/synccore/internal/trust"
)

// tokenProvider satisfies remoteapi.TokenSource by reading the signed-in
// session's token fresh on every call, rather than caching it in memory, so
// a sign-out or re-login from another process is picked up on the very next
// request.
type tokenProvider struct {
	dataDir string
}

func (t *tokenProvider) Token() (string, error) {
	env, err := trust.Load(t.dataDir)
	if err != nil {
		return "", fmt.Errorf("app: no signed-in session: %w", err)
	}

	return env.Token, nil
}
