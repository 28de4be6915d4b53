package middleware

import (
	"net/http"
	"time"
)

// responseRecorder はhttp.ResponseWriterをラップし、ステータスコードと送信バイト数を記録する。
// ログとメトリクスの両ミドルウェアで共有し、二重にラップしない。
type responseRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func recordResponse(w http.ResponseWriter) *responseRecorder {
	if rr, ok := w.(*responseRecorder); ok {
		return rr
	}
	return &responseRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rr *responseRecorder) WriteHeader(code int) {
	if !rr.wroteHeader {
		rr.status = code
		rr.wroteHeader = true
	}
	rr.ResponseWriter.WriteHeader(code)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	rr.wroteHeader = true
	n, err := rr.ResponseWriter.Write(b)
	rr.bytes += n
	return n, err
}

// Unwrap はhttp.ResponseControllerが元のWriterに到達できるようにする。
func (rr *responseRecorder) Unwrap() http.ResponseWriter {
	return rr.ResponseWriter
}

// HTTPRecorder はHTTPリクエストのメトリクスを記録するインターフェース。
// metrics.Collectorが実装する。
type HTTPRecorder interface {
	RecordHTTPRequest(method string, statusCode int, duration time.Duration)
}

// NewMetricsMiddleware はリクエスト数と処理時間を記録するミドルウェアを返す。
func NewMetricsMiddleware(recorder HTTPRecorder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rr := recordResponse(w)
			next.ServeHTTP(rr, r)
			recorder.RecordHTTPRequest(r.Method, rr.status, time.Since(start))
		})
	}
}
