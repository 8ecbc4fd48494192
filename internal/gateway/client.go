// Package gateway verifies counterparty GSTINs against the registry.
// Callers always get a verdict back; transport failures surface as GATEWAY_UNAVAILABLE.
package gateway

import (
	"context"
	"strings"
	"time"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"go.uber.org/zap"
)

// GSTINLength is the fixed length of a structurally valid GSTIN
const GSTINLength = 15

// DefaultTimeout bounds a single registry lookup
const DefaultTimeout = 10 * time.Second

// LookupResponse is the registry's raw answer
type LookupResponse struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Transport performs one registry lookup. Implementations report network problems
// as errors; the Client turns them into verdicts.
type Transport interface {
	Lookup(ctx context.Context, gstin string) (*LookupResponse, error)
}

// Verifier resolves one identifier to a verdict
type Verifier interface {
	Verify(ctx context.Context, identifier string) models.Verdict
}

// VerifierFunc adapts a function to Verifier
type VerifierFunc func(ctx context.Context, identifier string) models.Verdict

// Verify calls f
func (f VerifierFunc) Verify(ctx context.Context, identifier string) models.Verdict {
	return f(ctx, identifier)
}

// Client fronts a Transport with the structural check and a per-call timeout.
// It never retries.
type Client struct {
	transport Transport
	timeout   time.Duration
	logger    *zap.Logger
}

// NewClient creates a Client; a non-positive timeout selects DefaultTimeout
func NewClient(transport Transport, timeout time.Duration, logger *zap.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		transport: transport,
		timeout:   timeout,
		logger:    logger,
	}
}

type lookupOutcome struct {
	resp *LookupResponse
	err  error
}

// Verify checks the identifier's shape locally, then asks the registry
func (c *Client) Verify(ctx context.Context, identifier string) models.Verdict {
	if len(identifier) != GSTINLength {
		return models.Verdict{Valid: false, Reason: models.ReasonInvalidFormat}
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	// Buffered so the lookup goroutine can always finish after a timeout.
	done := make(chan lookupOutcome, 1)
	go func() {
		resp, err := c.transport.Lookup(callCtx, identifier)
		done <- lookupOutcome{resp: resp, err: err}
	}()

	select {
	case <-callCtx.Done():
		c.logger.Warn("GSTIN lookup timed out",
			zap.String("gstin", identifier),
			zap.Duration("timeout", c.timeout),
			zap.Error(callCtx.Err()))
		return unavailable()
	case out := <-done:
		if out.err != nil {
			c.logger.Warn("GSTIN lookup failed",
				zap.String("gstin", identifier),
				zap.Error(out.err))
			return unavailable()
		}
		if out.resp == nil {
			return unavailable()
		}
		return toVerdict(out.resp)
	}
}

func unavailable() models.Verdict {
	return models.Verdict{Valid: false, Reason: models.ReasonGatewayUnavailable}
}

// toVerdict trusts the valid flag; unknown failure reasons (e.g. BACKEND_OFFLINE)
// mean the registry could not answer.
func toVerdict(resp *LookupResponse) models.Verdict {
	if resp.Valid {
		return models.Verdict{Valid: true, Reason: models.ReasonActive}
	}
	reason := models.ReasonCode(strings.ToUpper(strings.TrimSpace(resp.Reason)))
	switch reason {
	case models.ReasonCancelled, models.ReasonInactive, models.ReasonSuspended,
		models.ReasonNotFound, models.ReasonInvalidFormat:
		return models.Verdict{Valid: false, Reason: reason}
	default:
		return unavailable()
	}
}
