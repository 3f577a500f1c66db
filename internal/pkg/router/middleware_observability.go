package router

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/shandysiswandi/seedotp/internal/pkg/config"
	"github.com/shandysiswandi/seedotp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// maxLoggedBodyBytes caps how much of a body is kept for the access log.
const maxLoggedBodyBytes = 8 * 1024

// statusRecorder captures the status, size and a bounded copy of the body,
// plus the handler error reported through SetError.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
	body   bytes.Buffer
	capped bool
	err    error
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	w.capped = capture(&w.body, p) || w.capped

	n, err := w.ResponseWriter.Write(p)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) SetError(err error) {
	w.err = err
}

func (w *statusRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// capture appends p to buf up to maxLoggedBodyBytes and reports truncation.
func capture(buf *bytes.Buffer, p []byte) bool {
	room := maxLoggedBodyBytes - buf.Len()
	if room <= 0 {
		return len(p) > 0
	}
	if len(p) > room {
		buf.Write(p[:room])
		return true
	}
	buf.Write(p)
	return false
}

// peekBody reads up to maxLoggedBodyBytes of the request body and puts it back.
func peekBody(r *http.Request) []byte {
	if r.Body == nil {
		return nil
	}

	//nolint:errcheck // best effort for logging only
	head, _ := io.ReadAll(io.LimitReader(r.Body, maxLoggedBodyBytes))
	r.Body = io.NopCloser(io.MultiReader(bytes.NewReader(head), r.Body))
	return head
}

// loggableBody masks JSON bodies and falls back to text for anything else.
// Masking of non-JSON text is not attempted, so such bodies are only logged
// when they are valid UTF-8.
func loggableBody(body []byte, keys instrument.MaskKeys) any {
	if len(body) == 0 {
		return nil
	}

	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return keys.Mask(v)
	}
	if len(keys) > 0 || !utf8.Valid(body) {
		return "<non-json body omitted>"
	}
	return string(body)
}

func maskHeaders(headers http.Header, keys instrument.MaskKeys) http.Header {
	if len(keys) == 0 {
		return headers
	}

	out := headers.Clone()
	for key := range out {
		if keys.Has(key) {
			out.Set(key, instrument.Masked)
		}
	}
	return out
}

type httpMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

func newHTTPMetrics(meter metric.Meter) httpMetrics {
	var m httpMetrics
	var err error

	m.requests, err = meter.Int64Counter("http.server.requests", metric.WithDescription("Number of HTTP requests received"))
	if err != nil {
		slog.Error("failed to create http request counter", "error", err)
	}

	m.duration, err = meter.Float64Histogram("http.server.duration",
		metric.WithDescription("HTTP request duration"), metric.WithUnit("ms"))
	if err != nil {
		slog.Error("failed to create http duration histogram", "error", err)
	}

	return m
}

func middlewareObservability(cfg config.Config, ins instrument.Instrumentation) Middleware {
	var keys instrument.MaskKeys
	if cfg != nil {
		keys = instrument.NewMaskKeys(cfg.GetArray("instrument.log_mask_fields"))
	}
	tracer := ins.Tracer("http.server")
	metrics := newHTTPMetrics(ins.Meter("http.server"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			route := routePattern(r)

			ctx, span := tracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(r.Method),
					semconv.HTTPRouteKey.String(route),
					semconv.ServerAddressKey.String(r.Host),
					semconv.UserAgentOriginal(r.UserAgent()),
				),
			)
			defer span.End()

			slog.InfoContext(ctx, "request received",
				"method", r.Method,
				"path", route,
				"headers", maskHeaders(r.Header, keys),
				"body", loggableBody(peekBody(r), keys),
			)

			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.statusCode()
			elapsed := time.Since(start)
			attrs := []attribute.KeyValue{
				semconv.HTTPRequestMethodKey.String(r.Method),
				semconv.HTTPRouteKey.String(route),
				semconv.HTTPResponseStatusCodeKey.Int(status),
			}

			if rec.err != nil {
				span.RecordError(rec.err)
			}
			switch {
			case status < http.StatusInternalServerError:
				span.SetStatus(codes.Ok, "")
			case rec.err != nil:
				span.SetStatus(codes.Error, rec.err.Error())
			default:
				span.SetStatus(codes.Error, http.StatusText(status))
			}
			span.SetAttributes(append(attrs, attribute.Int("http.response_content_length", rec.bytes))...)

			if metrics.requests != nil {
				metrics.requests.Add(ctx, 1, metric.WithAttributes(attrs...))
			}
			if metrics.duration != nil {
				metrics.duration.Record(ctx, float64(elapsed.Microseconds())/1000, metric.WithAttributes(attrs...))
			}

			body := loggableBody(rec.body.Bytes(), keys)
			if rec.capped {
				body = map[string]any{"body": body, "truncated": true}
			}
			slog.InfoContext(ctx, "response sent",
				"method", r.Method,
				"path", route,
				"status", status,
				"bytes", rec.bytes,
				"latency_ms", elapsed.Milliseconds(),
				"body", body,
			)
		})
	}
}
