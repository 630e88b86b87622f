package requestctx

import "context"

type ctxKey string

const (
	requestIDKey  ctxKey = "request_id"
	tokenStoreKey ctxKey = "token_store"
)

// TokenStore is the per-browser holder of the bearer token.
type TokenStore interface {
	Token() string
	ClearToken()
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) string {
	if value, ok := ctx.Value(requestIDKey).(string); ok {
		return value
	}
	return ""
}

func WithTokenStore(ctx context.Context, store TokenStore) context.Context {
	return context.WithValue(ctx, tokenStoreKey, store)
}

func GetTokenStore(ctx context.Context) (TokenStore, bool) {
	store, ok := ctx.Value(tokenStoreKey).(TokenStore)
	return store, ok && store != nil
}
