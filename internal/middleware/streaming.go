package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
)

// StreamingResponseWriter preserves the Flusher interface for SSE
// streaming while capturing the status code for request logging.
type StreamingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	bytes      int64
}

func NewStreamingResponseWriter(w http.ResponseWriter) *StreamingResponseWriter {
	return &StreamingResponseWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

func (w *StreamingResponseWriter) WriteHeader(code int) {
	if !w.written {
		w.statusCode = code
		w.written = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *StreamingResponseWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += int64(n)
	return n, err
}

// Flush implements http.Flusher, the critical method for SSE.
func (w *StreamingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *StreamingResponseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := w.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errors.New("hijack not supported")
}

func (w *StreamingResponseWriter) StatusCode() int {
	return w.statusCode
}

func (w *StreamingResponseWriter) BytesWritten() int64 {
	return w.bytes
}

func (w *StreamingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
