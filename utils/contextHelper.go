package utils

import (
	"context"

	"github.com/mmdatafocus/nowmirror_backend/appctx"
)

var (
	ContextKeyAccessToken   = appctx.ContextKeyAccessToken
	ContextKeyRefreshToken  = appctx.ContextKeyRefreshToken
	ContextKeySessionId     = appctx.ContextKeySessionId
	ContextKeyUsername      = appctx.ContextKeyUsername
	ContextKeyCorrelationId = appctx.ContextKeyCorrelationId
)

func GetAccessTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyAccessToken)
}

func GetRefreshTokenFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyRefreshToken)
}

func GetSessionIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeySessionId)
}

func GetUsernameFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyUsername)
}

func GetCorrelationIdFromContext(ctx context.Context) (string, bool) {
	return appctx.GetString(ctx, ContextKeyCorrelationId)
}

func SetAccessTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyAccessToken, token)
}

func SetRefreshTokenInContext(ctx context.Context, token string) context.Context {
	return appctx.Set(ctx, ContextKeyRefreshToken, token)
}

func SetSessionIdInContext(ctx context.Context, sessionId string) context.Context {
	return appctx.Set(ctx, ContextKeySessionId, sessionId)
}

func SetUsernameInContext(ctx context.Context, username string) context.Context {
	return appctx.Set(ctx, ContextKeyUsername, username)
}

func SetCorrelationIdInContext(ctx context.Context, correlationId string) context.Context {
	return appctx.Set(ctx, ContextKeyCorrelationId, correlationId)
}
