package gateway

import (
	"context"
	"sync"

	"github.com/garyjia/gstr1-reconciler/internal/models"
	"golang.org/x/sync/singleflight"
)

// CachingVerifier memoizes verdicts for the lifetime of one batch run.
// Concurrent lookups of the same GSTIN share a single registry call. Unavailable
// verdicts are not cached so a later invoice gets a fresh attempt.
type CachingVerifier struct {
	next     Verifier
	group    singleflight.Group
	mu       sync.RWMutex
	verdicts map[string]models.Verdict
}

// NewCachingVerifier wraps next with a run-scoped cache
func NewCachingVerifier(next Verifier) *CachingVerifier {
	return &CachingVerifier{
		next:     next,
		verdicts: make(map[string]models.Verdict),
	}
}

// Verify implements Verifier
func (c *CachingVerifier) Verify(ctx context.Context, identifier string) models.Verdict {
	c.mu.RLock()
	v, ok := c.verdicts[identifier]
	c.mu.RUnlock()
	if ok {
		return v
	}

	res, _, _ := c.group.Do(identifier, func() (interface{}, error) {
		verdict := c.next.Verify(ctx, identifier)
		if verdict.Reason != models.ReasonGatewayUnavailable {
			c.mu.Lock()
			c.verdicts[identifier] = verdict
			c.mu.Unlock()
		}
		return verdict, nil
	})
	return res.(models.Verdict)
}

// Len returns the number of cached verdicts
func (c *CachingVerifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.verdicts)
}
