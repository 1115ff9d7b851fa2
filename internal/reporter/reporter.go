package reporter

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/janiskrasemann/forecast/internal/decoder"
)

// Status is the terminal state of one source within a run.
type Status int

const (
	StatusReported Status = iota
	StatusNoData
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusReported:
		return "reported"
	case StatusNoData:
		return "no_data"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entry is the outcome of one source, ready to be formatted.
type Entry struct {
	Source   string
	Status   Status
	Forecast decoder.Forecast
	// Message carries the failure text for StatusFailed.
	Message string
}

// Reporter writes one line per entry to a shared sink.
type Reporter struct {
	mu sync.Mutex
	w  io.Writer
}

func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Report formats e and writes it with a single Write call. It never panics;
// a formatting failure falls back to the plain status line.
func (r *Reporter) Report(e Entry) {
	line := safeFormat(e) + "\n"

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := io.WriteString(r.w, line); err != nil {
		log.Printf("Failed to write report for %s: %v", e.Source, err)
	}
}

func safeFormat(e Entry) (line string) {
	defer func() {
		if rec := recover(); rec != nil {
			line = fallback(e)
		}
	}()
	return Format(e)
}

func fallback(e Entry) string {
	if e.Status == StatusFailed {
		return fmt.Sprintf("failed to obtain data from %s: %s", e.Source, e.Message)
	}
	return "no data available for " + e.Source
}

// Format renders e as a single human-readable line without a trailing newline.
func Format(e Entry) string {
	switch e.Status {
	case StatusReported:
		return formatForecast(e.Source, e.Forecast)
	default:
		return fallback(e)
	}
}

func formatForecast(source string, f decoder.Forecast) string {
	var b strings.Builder
	b.WriteString(source)
	b.WriteString(" forecast")
	if f.Location != "" {
		b.WriteString(" for ")
		b.WriteString(f.Location)
	}
	b.WriteString(": ")
	if f.Description != "" {
		b.WriteString(f.Description)
	} else {
		b.WriteString("n/a")
	}
	if f.TempC != nil {
		b.WriteString(", temp: ")
		b.WriteString(formatNumber(*f.TempC))
		b.WriteString("°C")
	}
	if f.HumidityPct != nil {
		b.WriteString(", humidity: ")
		b.WriteString(formatNumber(*f.HumidityPct))
		b.WriteString("%")
	}
	return b.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
