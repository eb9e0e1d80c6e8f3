package api

import "context"

type silentContextKey struct{}

// Silent marks ctx so calls made with it do not log diagnostics. Background session
// checks use it because an expired token is an expected outcome there.
func Silent(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, silentContextKey{}, true)
}

// IsSilent reports whether ctx was marked by [Silent].
func IsSilent(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(silentContextKey{}).(bool)
	return v
}
