package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/asset_tracker/utils"
	chiMW "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// Logger carries the request id set by chi's RequestID into the context the
// services read it from, and logs every request with its status and duration.
// Without RequestID in front of it a fresh uuid is used.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		rqID := chiMW.GetReqID(r.Context())
		if rqID == "" {
			rqID = uuid.NewString()
		}
		w.Header().Set(chiMW.RequestIDHeader, rqID)
		r = r.WithContext(utils.CtxWithRqID(r.Context(), rqID))

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		ww := chiMW.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", ww.Status()),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
