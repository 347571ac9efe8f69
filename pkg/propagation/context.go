package propagation

import "context"

type pathKeyContextKey struct{}

// ContextWithPathKey returns a copy of ctx carrying the given path key as the
// current key for this request. Contexts are immutable values, so concurrent
// children under the same parent each compose their own successor from the
// shared parent key without observing each other.
func ContextWithPathKey(ctx context.Context, pathKey string) context.Context {
	return context.WithValue(ctx, pathKeyContextKey{}, pathKey)
}

// FromContext returns the current path key carried by ctx, if any.
func FromContext(ctx context.Context) (string, bool) {
	pathKey, ok := ctx.Value(pathKeyContextKey{}).(string)
	if !ok || pathKey == "" {
		return "", false
	}

	return pathKey, true
}
