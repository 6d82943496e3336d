package request

import "net/http"

// ClientWriter wraps an http.ResponseWriter and remembers the status code
// written to it, for request metrics.
type ClientWriter struct {
	http.ResponseWriter

	// statusCode is the status code written to the response.
	statusCode int
}

// NewClientWriter creates a new ClientWriter.
func NewClientWriter(w http.ResponseWriter) *ClientWriter {
	return &ClientWriter{
		ResponseWriter: w,
		statusCode:     http.StatusOK,
	}
}

// WriteHeader records the status code and forwards it.
func (w *ClientWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

// StatusCode returns the status code written to the response. Responses that
// never wrote a header report 200.
func (w *ClientWriter) StatusCode() int {
	return w.statusCode
}
