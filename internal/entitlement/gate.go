// Package entitlement gates batch admission on an externally supplied
// subscription tier.
package entitlement

const (
	// EntitledLimit is the batch size for entitled profiles.
	EntitledLimit = 50
	// FreeLimit restricts unentitled profiles to single-item processing.
	FreeLimit = 1
)

// Gate is a thin, stateless predicate over an external profile flag.
// The queue consults it before every admission decision.
type Gate struct {
	profile func() bool
}

// NewGate wraps the profile lookup. A nil profile means not entitled.
func NewGate(profile func() bool) *Gate {
	return &Gate{profile: profile}
}

// Entitled reports the current value of the external profile flag.
func (g *Gate) Entitled() bool {
	return g.profile != nil && g.profile()
}

// Limit is the number of tracked images the current profile may hold.
func (g *Gate) Limit() int {
	if g.Entitled() {
		return EntitledLimit
	}
	return FreeLimit
}
