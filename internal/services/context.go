package services

import (
	"context"
	"strconv"

	"brokerdesk/pkg/logger"
)

type userIDKey struct{}

// WithUserContext attaches the authenticated actor to the request context.
func WithUserContext(ctx context.Context, userID uint) context.Context {
	ctx = context.WithValue(ctx, userIDKey{}, userID)
	return context.WithValue(ctx, logger.UserIdKey, strconv.FormatUint(uint64(userID), 10))
}

func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey{}).(uint)
	return id, ok
}
