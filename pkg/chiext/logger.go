package chiext

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// Logger logs requests with slog. Successful requests are logged at debug
// level since the viewer polls the screen many times a second.
func Logger() func(next http.Handler) http.Handler {
	return middleware.RequestLogger(&LogFormatter{})
}

type LogFormatter struct{}

func (l *LogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	attrs := []any{}

	reqID := middleware.GetReqID(r.Context())
	if reqID != "" {
		attrs = append(attrs, slog.String("request", reqID))
	}
	attrs = append(attrs, slog.String("from", r.RemoteAddr))

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	msg := fmt.Sprintf("%s %s://%s%s %s", r.Method, scheme, r.Host, r.RequestURI, r.Proto)

	return &logEntry{
		attrs: attrs,
		msg:   msg,
	}
}

type logEntry struct {
	attrs []any
	msg   string
}

func (l *logEntry) Write(status, bytes int, header http.Header, elapsed time.Duration, extra interface{}) {
	attrs := append(l.attrs,
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.String("elapsed", elapsed.String()),
	)

	slog.Log(context.Background(), level(status), l.msg, attrs...)
}

func (l *logEntry) Panic(v interface{}, stack []byte) {
	slog.Error("Request panicked", "panic", v, "stack", string(stack))
}

func level(status int) slog.Level {
	switch {
	case status < 400:
		return slog.LevelDebug
	case status < 500:
		return slog.LevelInfo
	default:
		return slog.LevelError
	}
}
