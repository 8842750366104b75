package middleware

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// StreamingTimeout bounds uploads and downloads without buffering the
// response the way http.TimeoutHandler does. maxDuration caps the whole
// transfer; idleTimeout caps the gap between body reads or response writes.
// Flush and Unwrap are preserved so http.ServeContent can serve ranges.
func StreamingTimeout(maxDuration, idleTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), maxDuration)
			defer cancel()

			rc := http.NewResponseController(w)
			deadline := time.Now().Add(maxDuration)
			_ = rc.SetWriteDeadline(deadline)
			_ = rc.SetReadDeadline(deadline)

			watchdog := &idleWatchdog{rc: rc, idleTimeout: idleTimeout, cancel: cancel}
			watchdog.reset()
			defer watchdog.stop()

			if r.Body != nil && r.Body != http.NoBody {
				r.Body = &idleBody{ReadCloser: r.Body, watchdog: watchdog}
			}

			next.ServeHTTP(&streamingWriter{ResponseWriter: w, watchdog: watchdog}, r.WithContext(ctx))
		})
	}
}

// idleWatchdog cancels the request once no I/O happened for idleTimeout and
// pulls the connection deadlines in so blocked I/O fails fast.
type idleWatchdog struct {
	rc          *http.ResponseController
	idleTimeout time.Duration
	cancel      context.CancelFunc
	mu          sync.Mutex
	timer       *time.Timer
}

func (d *idleWatchdog) reset() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.idleTimeout, func() {
		now := time.Now()
		_ = d.rc.SetWriteDeadline(now)
		_ = d.rc.SetReadDeadline(now)
		d.cancel()
	})
}

func (d *idleWatchdog) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
}

type idleBody struct {
	io.ReadCloser
	watchdog *idleWatchdog
}

func (b *idleBody) Read(p []byte) (int, error) {
	n, err := b.ReadCloser.Read(p)
	if n > 0 {
		b.watchdog.reset()
	}
	return n, err
}

type streamingWriter struct {
	http.ResponseWriter
	watchdog *idleWatchdog
}

func (sw *streamingWriter) Write(b []byte) (int, error) {
	sw.watchdog.reset()
	return sw.ResponseWriter.Write(b)
}

func (sw *streamingWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

func (sw *streamingWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
