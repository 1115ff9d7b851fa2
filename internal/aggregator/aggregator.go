package aggregator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/janiskrasemann/forecast/internal/decoder"
	"github.com/janiskrasemann/forecast/internal/fetcher"
	"github.com/janiskrasemann/forecast/internal/reporter"
)

// ErrInvalidConfiguration is returned by RunAll before any fetch starts.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// Source is one configured provider.
type Source struct {
	Name     string
	Endpoint string
	Decoder  decoder.Decoder
	// Timeout overrides the aggregator default when non-zero.
	Timeout time.Duration
}

// Fetcher performs the network request for a source.
type Fetcher interface {
	Fetch(ctx context.Context, endpoint *url.URL) fetcher.Outcome
}

// Observer is notified around every per-source task.
type Observer interface {
	TaskStarted(source string)
	TaskFinished(source string, status reporter.Status, kind fetcher.Kind, dur time.Duration)
}

// Run is the set of entries produced by one RunAll call, indexed like the
// sources it was given.
type Run struct {
	Started  time.Time
	Duration time.Duration
	Entries  []reporter.Entry
}

// Count returns how many entries ended in status s.
func (r *Run) Count(s reporter.Status) int {
	n := 0
	for _, e := range r.Entries {
		if e.Status == s {
			n++
		}
	}
	return n
}

type Option func(*Aggregator)

// WithTimeout bounds each fetch that has no timeout of its own.
func WithTimeout(d time.Duration) Option { return func(a *Aggregator) { a.timeout = d } }

// WithMaxConcurrency limits how many fetches run at once. Zero means one
// goroutine per source.
func WithMaxConcurrency(n int) Option { return func(a *Aggregator) { a.maxConcurrency = n } }

func WithObserver(o Observer) Option { return func(a *Aggregator) { a.observer = o } }

type Aggregator struct {
	fetcher        Fetcher
	reporter       *reporter.Reporter
	observer       Observer
	timeout        time.Duration
	maxConcurrency int
}

func New(f Fetcher, r *reporter.Reporter, opts ...Option) *Aggregator {
	a := &Aggregator{fetcher: f, reporter: r}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type task struct {
	source   Source
	endpoint *url.URL
}

// RunAll fetches every source concurrently, reports each outcome as soon as
// it is decoded, and returns once all sources have been reported. Only an
// invalid configuration is returned as an error; per-source failures end up
// in the Run.
func (a *Aggregator) RunAll(ctx context.Context, sources []Source) (*Run, error) {
	tasks, err := prepare(sources)
	if err != nil {
		return nil, err
	}

	run := &Run{Started: time.Now(), Entries: make([]reporter.Entry, len(tasks))}
	if len(tasks) == 0 {
		return run, nil
	}

	var g errgroup.Group
	if a.maxConcurrency > 0 {
		g.SetLimit(a.maxConcurrency)
	}
	for i, t := range tasks {
		g.Go(func() error {
			run.Entries[i] = a.runTask(ctx, t)
			return nil
		})
	}
	// Tasks never return an error.
	_ = g.Wait()

	run.Duration = time.Since(run.Started)
	log.Printf("Run complete: %d reported, %d without data, %d failed in %s",
		run.Count(reporter.StatusReported), run.Count(reporter.StatusNoData),
		run.Count(reporter.StatusFailed), run.Duration.Round(time.Millisecond))
	return run, nil
}

func prepare(sources []Source) ([]task, error) {
	tasks := make([]task, 0, len(sources))
	var errs []error
	for i, src := range sources {
		if src.Name == "" {
			errs = append(errs, fmt.Errorf("source #%d: missing name", i+1))
			continue
		}
		if src.Decoder == nil {
			errs = append(errs, fmt.Errorf("source %q: missing decoder", src.Name))
			continue
		}
		endpoint, err := fetcher.ParseEndpoint(src.Endpoint)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %q: %w", src.Name, err))
			continue
		}
		tasks = append(tasks, task{source: src, endpoint: endpoint})
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfiguration, errors.Join(errs...))
	}
	return tasks, nil
}

// runTask fetches one source and then, on the same goroutine, decodes and
// reports it. Panics are contained here.
func (a *Aggregator) runTask(ctx context.Context, t task) (entry reporter.Entry) {
	name := t.source.Name
	start := time.Now()
	kind := fetcher.KindNone
	fetched := false

	a.notify(name, func(o Observer) { o.TaskStarted(name) })
	defer func() {
		a.notify(name, func(o Observer) { o.TaskFinished(name, entry.Status, kind, time.Since(start)) })
	}()

	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered panic in %s: %v", name, rec)
			if !fetched {
				kind = fetcher.KindNetwork
			}
			entry = reporter.Entry{Source: name, Status: reporter.StatusFailed, Message: fmt.Sprintf("panic: %v", rec)}
			a.reporter.Report(entry)
		}
	}()

	log.Printf("Fetching %s...", name)
	outcome := a.fetch(ctx, t)
	fetched = true
	if !outcome.OK() {
		kind = outcome.Err.Kind
		log.Printf("Error fetching %s: %s", name, outcome.Err.Message)
		entry = reporter.Entry{Source: name, Status: reporter.StatusFailed, Message: outcome.Err.Message}
		a.reporter.Report(entry)
		return entry
	}

	forecast, err := t.source.Decoder.Decode(outcome.Payload)
	if err != nil {
		log.Printf("Error decoding %s: %v", name, err)
		entry = reporter.Entry{Source: name, Status: reporter.StatusNoData}
		a.reporter.Report(entry)
		return entry
	}

	log.Printf("Fetched %s successfully", name)
	entry = reporter.Entry{Source: name, Status: reporter.StatusReported, Forecast: forecast}
	a.reporter.Report(entry)
	return entry
}

// notify calls the observer, if any. A panicking observer is logged and
// otherwise ignored.
func (a *Aggregator) notify(source string, fn func(Observer)) {
	if a.observer == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("Recovered panic in observer for %s: %v", source, rec)
		}
	}()
	fn(a.observer)
}

func (a *Aggregator) fetch(ctx context.Context, t task) fetcher.Outcome {
	timeout := t.source.Timeout
	if timeout == 0 {
		timeout = a.timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return a.fetcher.Fetch(ctx, t.endpoint)
}
