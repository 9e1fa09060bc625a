package nowsync

import (
	"context"
	"net/url"

	"github.com/sirupsen/logrus"
)

// RefreshingClient decorates a RemoteClient with the one sanctioned retry:
// on a 401, refresh the credential exactly once and replay the call. A
// second 401 is terminal and invalidates the session.
type RefreshingClient struct {
	Next   RemoteClient
	Tokens TokenRefresher
	Logger *logrus.Logger
}

func (c *RefreshingClient) Create(ctx context.Context, table string, payload Document, cred Credential) (Document, error) {
	var out Document
	err := c.withRefresh(ctx, cred, func(cred Credential) error {
		var err error
		out, err = c.Next.Create(ctx, table, payload, cred)
		return err
	})
	return out, err
}

func (c *RefreshingClient) Get(ctx context.Context, table string, sysID string, cred Credential) (Document, error) {
	var out Document
	err := c.withRefresh(ctx, cred, func(cred Credential) error {
		var err error
		out, err = c.Next.Get(ctx, table, sysID, cred)
		return err
	})
	return out, err
}

func (c *RefreshingClient) Update(ctx context.Context, table string, sysID string, payload Document, cred Credential) (Document, error) {
	var out Document
	err := c.withRefresh(ctx, cred, func(cred Credential) error {
		var err error
		out, err = c.Next.Update(ctx, table, sysID, payload, cred)
		return err
	})
	return out, err
}

func (c *RefreshingClient) Delete(ctx context.Context, table string, sysID string, cred Credential) error {
	return c.withRefresh(ctx, cred, func(cred Credential) error {
		return c.Next.Delete(ctx, table, sysID, cred)
	})
}

func (c *RefreshingClient) List(ctx context.Context, table string, query url.Values, cred Credential) ([]Document, error) {
	var out []Document
	err := c.withRefresh(ctx, cred, func(cred Credential) error {
		var err error
		out, err = c.Next.List(ctx, table, query, cred)
		return err
	})
	return out, err
}

func (c *RefreshingClient) withRefresh(ctx context.Context, cred Credential, call func(Credential) error) error {
	err := call(cred)
	if err == nil || !IsRemoteUnauthorized(err) {
		return err
	}
	if c.Tokens == nil {
		return ErrAuthExpired
	}

	next, refreshErr := c.Tokens.Refresh(ctx, cred)
	if refreshErr != nil {
		if invErr := c.Tokens.Invalidate(ctx, cred); invErr != nil && c.Logger != nil {
			c.Logger.WithField("module", "nowsync").Warn("failed to invalidate session: " + invErr.Error())
		}
		return ErrAuthExpired
	}

	err = call(next)
	if err != nil && IsRemoteUnauthorized(err) {
		if invErr := c.Tokens.Invalidate(ctx, next); invErr != nil && c.Logger != nil {
			c.Logger.WithField("module", "nowsync").Warn("failed to invalidate session: " + invErr.Error())
		}
		return ErrAuthExpired
	}
	return err
}
