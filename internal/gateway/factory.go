package gateway

import (
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrNoBackend is returned when neither a gateway URL nor simulation is configured
var ErrNoBackend = errors.New("no verification backend configured")

// Options selects the transport behind a Client
type Options struct {
	URL      string
	Timeout  time.Duration
	Simulate bool
}

// New builds a Client over the simulated registry or the HTTP gateway at opts.URL
func New(opts Options, logger *zap.Logger) (*Client, error) {
	var transport Transport
	switch {
	case opts.Simulate:
		transport = NewSimulatedTransport()
	case opts.URL != "":
		transport = NewHTTPTransport(opts.URL, logger)
	default:
		return nil, ErrNoBackend
	}

	logger.Info("Verification gateway configured",
		zap.Bool("simulated", opts.Simulate),
		zap.String("url", opts.URL),
		zap.Duration("timeout", opts.Timeout))

	return NewClient(transport, opts.Timeout, logger), nil
}
