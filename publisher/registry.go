package publisher

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultDialTimeout bounds the startup connectivity check of a sink
const DefaultDialTimeout = 5 * time.Second

// Options tunes sink creation
type Options struct {
	DialTimeout time.Duration // Startup connectivity check timeout
}

// SinkConfig is handed to a SinkFactory
type SinkConfig struct {
	URL         *url.URL
	RawURL      string
	DialTimeout time.Duration
}

// SinkFactory creates and connects a Publisher. The context carries the dial timeout.
type SinkFactory func(ctx context.Context, config SinkConfig) (Publisher, error)

// TransformerFactory is a function that creates a Transformer
type TransformerFactory func() Transformer

var (
	sinkFactories        = make(map[string]SinkFactory)
	transformerFactories = make(map[string]TransformerFactory)
	factoryMu            sync.RWMutex
)

// RegisterSink registers a sink factory for a URL scheme
func RegisterSink(scheme string, factory SinkFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	sinkFactories[strings.ToLower(scheme)] = factory
}

// RegisterTransformer registers a transformer factory for a format
func RegisterTransformer(format string, factory TransformerFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()
	transformerFactories[format] = factory
}

// Schemes lists the registered sink schemes
func Schemes() []string {
	factoryMu.RLock()
	defer factoryMu.RUnlock()

	out := make([]string, 0, len(sinkFactories))
	for scheme := range sinkFactories {
		out = append(out, scheme)
	}
	sort.Strings(out)
	return out
}

// Open creates the sink selected by the URL scheme and verifies it can reach
// the bus. Every failure is a *ConnectionError.
func Open(busURL string, opts Options) (Publisher, error) {
	u, err := url.Parse(busURL)
	if err != nil {
		return nil, &ConnectionError{URL: "<unparseable>", Err: fmt.Errorf("invalid bus url: %w", err)}
	}

	redacted := u.Redacted()

	factoryMu.RLock()
	factory, exists := sinkFactories[strings.ToLower(u.Scheme)]
	factoryMu.RUnlock()

	if !exists {
		return nil, &ConnectionError{URL: redacted, Err: fmt.Errorf("unknown sink scheme: %q", u.Scheme)}
	}

	if opts.DialTimeout <= 0 {
		opts.DialTimeout = DefaultDialTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), opts.DialTimeout)
	defer cancel()

	pub, err := factory(ctx, SinkConfig{URL: u, RawURL: busURL, DialTimeout: opts.DialTimeout})
	if err != nil {
		return nil, &ConnectionError{URL: redacted, Err: err}
	}

	log.Info().
		Str("bus", redacted).
		Str("scheme", u.Scheme).
		Msg("Connected to bus")

	return pub, nil
}

// NewTransformer creates a transformer based on the format
func NewTransformer(format string) (Transformer, error) {
	factoryMu.RLock()
	factory, exists := transformerFactories[format]
	factoryMu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	return factory(), nil
}
