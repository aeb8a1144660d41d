package treasury

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Side-effect-free read surface. Every accessor copies engine-owned values.

// Initialized reports whether the policy state has been created.
func (e *Engine) Initialized() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Initialized
}

// Operator returns the current operator identity.
func (e *Engine) Operator() common.Address {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Operator
}

// Epoch returns the current epoch counter.
func (e *Engine) Epoch() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Epoch
}

// StartTime returns the cadence start time.
func (e *Engine) StartTime() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.StartTime
}

// PreviousEpochPrice returns the price snapshotted by the last allocation.
func (e *Engine) PreviousEpochPrice() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.state.PreviousEpochPrice)
}

// SeigniorageSaved returns the retained bond-redemption reserve.
func (e *Engine) SeigniorageSaved() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.state.SeigniorageSaved)
}

// EpochSupplyContractionLeft returns the remaining contraction quota.
func (e *Engine) EpochSupplyContractionLeft() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.state.EpochSupplyContractionLeft)
}

// Params returns a copy of the governance-tunable surface.
func (e *Engine) Params() Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := Params{Price: e.params.Price.clone(), Caps: e.params.Caps, Funds: e.params.Funds}
	return out
}

// TierLadder returns a copy of the supply tier table.
func (e *Engine) TierLadder() []Tier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tiers.Tiers()
}

// SpotPrice consults the oracle for the current stable price.
func (e *Engine) SpotPrice() (*big.Int, error) {
	return e.oracle.Spot()
}

// TWAPPrice consults the oracle for the time-weighted average stable price.
func (e *Engine) TWAPPrice() (*big.Int, error) {
	return e.oracle.TWAP()
}

// BondDiscountRate computes the live stable-to-bond rate; zero when the price
// regime makes purchases ineligible.
func (e *Engine) BondDiscountRate() (*big.Int, error) {
	price, err := e.oracle.Spot()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Price.DiscountRate(price)
}

// BondPremiumRate computes the live bond-to-stable rate; zero when the price
// regime makes redemptions ineligible.
func (e *Engine) BondPremiumRate() (*big.Int, error) {
	price, err := e.oracle.Spot()
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params.Price.PremiumRate(price)
}
