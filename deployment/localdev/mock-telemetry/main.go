// Command mock-telemetry serves synthetic metric series and log events in the
// telemetry gateway wire format for local development.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/miradorstack/mirador-aiops/internal/utils"
)

type seriesPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type logEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

type windowRequest struct {
	Namespace  string `json:"namespace"`
	MetricName string `json:"metric_name"`
	LogGroup   string `json:"log_group"`
	Start      string `json:"start"`
	End        string `json:"end"`
}

const samplePeriod = 5 * time.Minute

func main() {
	logger := utils.NewLogger(os.Getenv("LOG_LEVEL"), false).With(slog.String("component", "mock-telemetry"))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/api/v1/aiops/metrics", func(w http.ResponseWriter, r *http.Request) {
		req, start, end, ok := decodeWindow(w, r)
		if !ok {
			return
		}
		writeJSON(logger, w, map[string]any{"series": syntheticSeries(req.MetricName, start, end)})
	})

	mux.HandleFunc("/api/v1/aiops/logs", func(w http.ResponseWriter, r *http.Request) {
		req, start, end, ok := decodeWindow(w, r)
		if !ok {
			return
		}
		writeJSON(logger, w, map[string]any{"events": syntheticEvents(req.LogGroup, start, end)})
	})

	addr := ":8080"
	if v := os.Getenv("MOCK_TELEMETRY_ADDR"); v != "" {
		addr = v
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           logRequests(logger, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("listening", slog.String("address", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
}

func decodeWindow(w http.ResponseWriter, r *http.Request) (windowRequest, time.Time, time.Time, bool) {
	var req windowRequest
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return req, time.Time{}, time.Time{}, false
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("decode request: %v", err), http.StatusBadRequest)
		return req, time.Time{}, time.Time{}, false
	}

	end, err := utils.ParseRFC3339(req.End)
	if err != nil {
		end = time.Now().UTC()
	}
	start, err := utils.ParseRFC3339(req.Start)
	if err != nil || !start.Before(end) {
		start = end.Add(-24 * time.Hour)
	}
	return req, start, end, true
}

// syntheticSeries emits a daily sine wave with a spike in the last sample.
func syntheticSeries(metric string, start, end time.Time) []seriesPoint {
	base := 100.0
	if metric == "Errors" {
		base = 2
	}

	var points []seriesPoint
	for ts := start.Truncate(samplePeriod); ts.Before(end); ts = ts.Add(samplePeriod) {
		phase := float64(ts.Unix()%86400) / 86400 * 2 * math.Pi
		points = append(points, seriesPoint{Timestamp: ts, Value: base + base*0.1*math.Sin(phase)})
	}
	if n := len(points); n > 0 {
		points[n-1].Value = base * 3
	}
	return points
}

// syntheticEvents emits one line per minute; groups named "*noisy*" get a
// higher share of error lines.
func syntheticEvents(group string, start, end time.Time) []logEvent {
	every := 10
	if strings.Contains(strings.ToLower(group), "noisy") {
		every = 3
	}

	messages := []string{
		"ERROR connection timeout talking to payments",
		"Exception in thread main java.lang.NullPointerException",
		"request failed with status 503",
		"Fatal: out of memory",
	}

	var events []logEvent
	i := 0
	for ts := start; ts.Before(end); ts = ts.Add(time.Minute) {
		msg := fmt.Sprintf("INFO request %d served in %dms", i, 20+i%40)
		if i%every == 0 {
			msg = fmt.Sprintf("%s from 10.0.0.%d", messages[(i/every)%len(messages)], i%12)
		}
		events = append(events, logEvent{Timestamp: ts, Message: msg})
		i++
	}
	return events
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("encode error", slog.Any("error", err))
	}
}

func logRequests(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rw.status),
			slog.Duration("elapsed", time.Since(start)))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
