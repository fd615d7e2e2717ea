package middleware

import "net/http"

// statusWriter wraps http.ResponseWriter to capture the status code.
// It delegates Flush and Unwrap so HTTP/2 streaming works correctly.
// An optional onCommit hook runs once, right before the header is sent.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	onCommit    func(http.Header)
}

func newStatusWriter(w http.ResponseWriter) *statusWriter {
	return &statusWriter{ResponseWriter: w, status: http.StatusOK}
}

func (sw *statusWriter) commit(code int) {
	if sw.wroteHeader {
		return
	}
	sw.status = code
	sw.wroteHeader = true
	if sw.onCommit != nil {
		sw.onCommit(sw.ResponseWriter.Header())
	}
}

func (sw *statusWriter) WriteHeader(code int) {
	first := !sw.wroteHeader
	sw.commit(code)
	if first {
		sw.ResponseWriter.WriteHeader(code)
	}
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	sw.commit(http.StatusOK)
	return sw.ResponseWriter.Write(b)
}

// Flush implements http.Flusher. Flushing commits the header.
func (sw *statusWriter) Flush() {
	sw.commit(http.StatusOK)
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying ResponseWriter so http.ResponseController
// can discover optional interfaces on the original writer.
func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}
