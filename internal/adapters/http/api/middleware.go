package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/competence/pkg/metrics"
)

// Error severities reported with error metrics.
const (
	severityLow    = "low"
	severityMedium = "medium"
	severityHigh   = "high"
)

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
// Error responses are labelled with the error code the handler wrote, so a
// 503 before the first snapshot counts as no_data rather than a server fault.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		metrics.RecordHTTPRequest(endpoint, r.Method, strconv.Itoa(wrapped.statusCode), durationMs)

		if wrapped.statusCode >= http.StatusBadRequest {
			errType, severity := classifyError(wrapped.errorCode, wrapped.statusCode)
			metrics.RecordHTTPError(endpoint, r.Method, errType, severity)
		}
	}
}

// classifyError maps an error response to its metric type and severity.
// code is empty when the response did not go through writeError.
func classifyError(code string, status int) (errType, severity string) {
	switch code {
	case codeNoData, codeBackpressure:
		// the service is up, just not ready or busy
		return code, severityMedium
	case codeBadRequest, codeNotFound, codeMethodNotAllowed:
		return code, severityLow
	case codeInternal:
		return code, severityHigh
	}

	switch {
	case status >= http.StatusInternalServerError:
		return codeInternal, severityHigh
	case status == http.StatusNotFound:
		return codeNotFound, severityLow
	default:
		return "client_error", severityLow
	}
}

// responseWriter captures the status code and API error code of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	errorCode  string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// markError records the API error code when w is wrapped by MetricsMiddleware.
func markError(w http.ResponseWriter, code string) {
	if rw, ok := w.(*responseWriter); ok {
		rw.errorCode = code
	}
}
