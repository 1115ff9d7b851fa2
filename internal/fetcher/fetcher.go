package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
)

// ErrInvalidURL is returned by ParseEndpoint for anything that is not an
// absolute http or https URL.
var ErrInvalidURL = errors.New("invalid url")

// Kind classifies a failed fetch.
type Kind int

const (
	KindNone Kind = iota
	KindNetwork
	KindTimeout
	KindInvalidURL
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindTimeout:
		return "timeout"
	case KindInvalidURL:
		return "invalid_url"
	default:
		return "unknown"
	}
}

// Error is the failure half of an Outcome.
type Error struct {
	Kind    Kind
	Message string
	err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.err }

// Outcome holds the result of a single fetch. Err is nil on success.
type Outcome struct {
	Payload string
	Err     *Error
}

// OK reports whether the fetch completed and the body was read.
func (o Outcome) OK() bool { return o.Err == nil }

// Success wraps a response body.
func Success(payload string) Outcome { return Outcome{Payload: payload} }

// Failure builds a failed outcome from err.
func Failure(kind Kind, err error) Outcome {
	return Outcome{Err: &Error{Kind: kind, Message: err.Error(), err: err}}
}

// ParseEndpoint validates raw as an absolute http(s) URL.
func ParseEndpoint(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, fmt.Errorf("%w: %q is not an absolute http(s) url", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return u, nil
}

const userAgent = "forecast/1.0"

// HTTP fetches endpoints with a single GET request and no retries.
type HTTP struct {
	client *http.Client
}

func New(client *http.Client) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{client: client}
}

// Fetch reads the full response body of endpoint. Cancelling ctx, or its
// deadline expiring, aborts the request.
func (h *HTTP) Fetch(ctx context.Context, endpoint *url.URL) Outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return failureWithoutURL(KindInvalidURL, "creating request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	log.Printf("Performing API call: %s", endpoint.Host)
	resp, err := h.client.Do(req)
	if err != nil {
		return failureWithoutURL(classify(ctx, err), "requesting "+endpoint.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureWithoutURL(classify(ctx, err), "reading response from "+endpoint.Host, err)
	}
	log.Printf("Received response from %s (%d bytes)", endpoint.Host, len(body))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Failure(KindNetwork, fmt.Errorf("%s returned status %d", endpoint.Host, resp.StatusCode))
	}
	return Success(string(body))
}

// failureWithoutURL keeps err wrapped but leaves the request URL, which may
// carry API keys in its query, out of the message.
func failureWithoutURL(kind Kind, prefix string, err error) Outcome {
	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}
	return Outcome{Err: &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %v", prefix, cause),
		err:     err,
	}}
}

func classify(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	return KindNetwork
}
