package middleware

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"
)

func Logger() tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			now := time.Now()

			rqID := uuid.NewString()
			c.Set("rqID", rqID)

			slog.Info(
				"start request",
				slog.String("rqID", rqID),
				slog.String("text", c.Text()),
			)

			defer func() {
				slog.Info(
					"request finished",
					slog.String("rqID", rqID),
					slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
				)
			}()

			return next(c)
		}
	}
}

// Whitelist drops updates from chats that are not listed. An empty list drops
// every update.
func Whitelist(chatIDs []int64) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			if c.Chat() == nil {
				return nil
			}
			if !slices.Contains(chatIDs, c.Chat().ID) {
				slog.Warn("update from unknown chat dropped", slog.Int64("chatID", c.Chat().ID))
				return nil
			}
			return next(c)
		}
	}
}
