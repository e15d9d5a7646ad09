package middleware

import (
	"context"

	"github.com/angelmondragon/pricelist-backend/internal/eligibility"
)

type ctxKey int

const (
	userIDKey ctxKey = iota
	storeIDKey
	customerKey
)

func withValue[T any](ctx context.Context, key ctxKey, v T) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func value[T any](ctx context.Context, key ctxKey) (T, bool) {
	var zero T
	if ctx == nil {
		return zero, false
	}
	v, ok := ctx.Value(key).(T)
	return v, ok
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, userIDKey, userID)
}

// UserIDFromContext is empty for anonymous requests.
func UserIDFromContext(ctx context.Context) string {
	id, _ := value[string](ctx, userIDKey)
	return id
}

func WithStoreID(ctx context.Context, storeID string) context.Context {
	return withValue(ctx, storeIDKey, storeID)
}

// StoreIDFromContext is the active store from the token, empty when none was selected.
func StoreIDFromContext(ctx context.Context) string {
	id, _ := value[string](ctx, storeIDKey)
	return id
}

func WithCustomer(ctx context.Context, customer eligibility.Customer) context.Context {
	return withValue(ctx, customerKey, customer)
}

// CustomerFromContext returns the acting customer, or the anonymous customer when the
// request carried no credentials.
func CustomerFromContext(ctx context.Context) eligibility.Customer {
	if customer, ok := value[eligibility.Customer](ctx, customerKey); ok {
		return customer
	}
	return eligibility.Anonymous()
}
