package gateway

import "context"

var simulatedFailures = []string{"CANCELLED", "NOT_FOUND", "INACTIVE", "SUSPENDED"}

// SimulatedTransport is a deterministic stand-in registry for demos and offline runs.
// Roughly one identifier in eight is reported as failing.
type SimulatedTransport struct{}

// NewSimulatedTransport creates a SimulatedTransport
func NewSimulatedTransport() *SimulatedTransport {
	return &SimulatedTransport{}
}

// Lookup implements Transport
func (SimulatedTransport) Lookup(ctx context.Context, gstin string) (*LookupResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	seed := 0
	for i := 0; i < len(gstin); i++ {
		seed += int(gstin[i])
	}
	if seed%8 == 0 {
		return &LookupResponse{Valid: false, Reason: simulatedFailures[seed%4]}, nil
	}
	return &LookupResponse{Valid: true, Reason: "ACTIVE"}, nil
}
