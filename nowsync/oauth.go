package nowsync

import (
	"context"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"github.com/mmdatafocus/nowmirror_backend/config"
	"github.com/mmdatafocus/nowmirror_backend/utils"
)

// PasswordGrant exchanges the caller's remote-system username/password for a
// token pair. The remote system is the only authority on passwords; nothing
// is stored locally besides the issued tokens.
func PasswordGrant(ctx context.Context, username, password string) (*oauth2.Token, error) {
	cfg := config.ServiceNowOAuthConfig()
	return cfg.PasswordCredentialsToken(ctx, username, password)
}

// RefreshGrant exchanges a refresh token for a new token pair.
func RefreshGrant(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	cfg := config.ServiceNowOAuthConfig()
	src := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return src.Token()
}

// SessionTokenRefresher rotates tokens through the session store so that
// subsequent requests on the same session pick up the new credential.
type SessionTokenRefresher struct {
	Sessions utils.SessionStore
	Logger   *logrus.Logger
}

func (r *SessionTokenRefresher) Refresh(ctx context.Context, cred Credential) (Credential, error) {
	if cred.RefreshToken == "" {
		return Credential{}, ErrAuthExpired
	}

	tok, err := RefreshGrant(ctx, cred.RefreshToken)
	if err != nil {
		return Credential{}, ErrAuthExpired
	}

	next := Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		SessionID:    cred.SessionID,
	}
	if next.RefreshToken == "" {
		next.RefreshToken = cred.RefreshToken
	}

	// Cookie-session callers get the rotated tokens persisted; signed-token
	// callers carry their own and re-login when the refresh token dies.
	if cred.SessionID != "" && r.Sessions != nil {
		sess, err := r.Sessions.Get(ctx, cred.SessionID)
		if err == nil {
			sess.AccessToken = next.AccessToken
			sess.RefreshToken = next.RefreshToken
			if err := r.Sessions.Update(ctx, sess); err != nil && r.Logger != nil {
				config.LogError(r.Logger, "nowsync", "Refresh", "sessions.Update", cred.SessionID, err)
			}
		}
	}
	return next, nil
}

func (r *SessionTokenRefresher) Invalidate(ctx context.Context, cred Credential) error {
	if cred.SessionID == "" || r.Sessions == nil {
		return nil
	}
	return r.Sessions.Delete(ctx, cred.SessionID)
}
