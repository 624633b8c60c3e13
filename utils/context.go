package utils

import (
	"context"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

type rqIDKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

func CtxWithRqID(ctx context.Context, rqID string) context.Context {
	return context.WithValue(ctx, rqIDKey{}, rqID)
}

// NewCtxWithRqID is used by background jobs that have no incoming request.
func NewCtxWithRqID(ctx context.Context) context.Context {
	return CtxWithRqID(ctx, uuid.NewString())
}

func CreateCtxWithRqID(c tele.Context) context.Context {
	rqId, ok := c.Get("rqID").(string)
	if !ok {
		return CtxWithRqID(context.Background(), uuid.NewString())
	}
	return CtxWithRqID(context.Background(), rqId)
}
