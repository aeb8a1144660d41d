package treasury

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Every setter below is operator-gated and enforces its literal bound before
// mutating; a rejected update leaves the prior configuration untouched.

func (e *Engine) requireOperatorLocked(caller common.Address) error {
	if !e.state.Initialized {
		return ErrNotInitialized
	}
	if caller != e.state.Operator {
		return ErrNotOperator
	}
	return nil
}

// TransferOperator hands the operator identity to a new address.
func (e *Engine) TransferOperator(caller, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return ErrZeroAddress
	}
	e.state.Operator = next
	e.persistLocked()
	return nil
}

// SetPriceCeiling bounds the ceiling to [peg, 1.2*peg].
func (e *Engine) SetPriceCeiling(caller common.Address, ceiling *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if ceiling == nil {
		return fmt.Errorf("treasury: ceiling required")
	}
	upper := new(big.Int).Mul(e.params.Price.Peg, big.NewInt(120))
	upper.Div(upper, big.NewInt(100))
	if ceiling.Cmp(e.params.Price.Peg) < 0 || ceiling.Cmp(upper) > 0 {
		return fmt.Errorf("treasury: ceiling out of [peg, 1.2*peg]")
	}
	e.params.Price.Ceiling = new(big.Int).Set(ceiling)
	e.persistLocked()
	return nil
}

// SetMaxSupplyExpansionBps bounds the expansion cap to [10, 1000] bps.
func (e *Engine) SetMaxSupplyExpansionBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps < 10 || bps > 1000 {
		return fmt.Errorf("treasury: expansion out of [10, 1000] bps")
	}
	e.params.Caps.MaxSupplyExpansionBps = bps
	e.persistLocked()
	return nil
}

// SetTierThreshold replaces one supply tier threshold; the value must stay
// strictly between the neighboring tiers.
func (e *Engine) SetTierThreshold(caller common.Address, index int, value *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if err := e.tiers.SetThreshold(index, value); err != nil {
		return err
	}
	e.persistLocked()
	return nil
}

// SetTierMaxExpansion replaces one supply tier expansion ceiling.
func (e *Engine) SetTierMaxExpansion(caller common.Address, index int, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if err := e.tiers.SetMaxExpansion(index, bps); err != nil {
		return err
	}
	e.persistLocked()
	return nil
}

// SetBondDepletionFloorBps bounds the reserve floor to [500, 10000] bps.
func (e *Engine) SetBondDepletionFloorBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps < 500 || bps > 10_000 {
		return fmt.Errorf("treasury: depletion floor out of [500, 10000] bps")
	}
	e.params.Caps.BondDepletionFloorBps = bps
	e.persistLocked()
	return nil
}

// SetSeigniorageExpansionFloorBps adjusts the boardroom share used while the
// reserve sits below the depletion floor.
func (e *Engine) SetSeigniorageExpansionFloorBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps > 10_000 {
		return fmt.Errorf("treasury: expansion floor exceeds 10000 bps")
	}
	e.params.Caps.SeigniorageExpansionFloorBps = bps
	e.persistLocked()
	return nil
}

// SetMaxSupplyContractionBps bounds the per-epoch contraction quota to
// [100, 1500] bps.
func (e *Engine) SetMaxSupplyContractionBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps < 100 || bps > 1500 {
		return fmt.Errorf("treasury: contraction out of [100, 1500] bps")
	}
	e.params.Caps.MaxSupplyContractionBps = bps
	e.persistLocked()
	return nil
}

// SetMaxDebtRatioBps bounds the bond debt ratio to [1000, 10000] bps.
func (e *Engine) SetMaxDebtRatioBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps < 1000 || bps > 10_000 {
		return fmt.Errorf("treasury: debt ratio out of [1000, 10000] bps")
	}
	e.params.Caps.MaxDebtRatioBps = bps
	e.persistLocked()
	return nil
}

// SetBootstrap bounds the bootstrap window to 120 epochs and the bootstrap
// expansion to [100, 1000] bps.
func (e *Engine) SetBootstrap(caller common.Address, epochs, expansionBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if epochs > 120 {
		return fmt.Errorf("treasury: bootstrap epochs exceed 120")
	}
	if expansionBps < 100 || expansionBps > 1000 {
		return fmt.Errorf("treasury: bootstrap expansion out of [100, 1000] bps")
	}
	e.state.BootstrapEpochs = epochs
	e.state.BootstrapExpansionBps = expansionBps
	e.persistLocked()
	return nil
}

// SetExtraFunds configures the dao and dev fund routing. Dao share is capped
// at 4000 bps, dev share at 1000 bps; a non-zero share requires a fund address.
func (e *Engine) SetExtraFunds(caller, daoFund common.Address, daoBps uint64, devFund common.Address, devBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if daoBps > 4000 {
		return fmt.Errorf("treasury: dao share exceeds 4000 bps")
	}
	if daoBps > 0 && daoFund == (common.Address{}) {
		return ErrZeroAddress
	}
	if devBps > 1000 {
		return fmt.Errorf("treasury: dev share exceeds 1000 bps")
	}
	if devBps > 0 && devFund == (common.Address{}) {
		return ErrZeroAddress
	}
	e.params.Funds = FundConfig{DaoFund: daoFund, DaoBps: daoBps, DevFund: devFund, DevBps: devBps}
	e.persistLocked()
	return nil
}

// SetDiscountBps caps the bond discount percent at 20000 bps.
func (e *Engine) SetDiscountBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps > 20_000 {
		return fmt.Errorf("treasury: discount exceeds 20000 bps")
	}
	e.params.Price.DiscountBps = bps
	e.persistLocked()
	return nil
}

// SetPremiumBps caps the bond premium percent at 20000 bps.
func (e *Engine) SetPremiumBps(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps > 20_000 {
		return fmt.Errorf("treasury: premium exceeds 20000 bps")
	}
	e.params.Price.PremiumBps = bps
	e.persistLocked()
	return nil
}

// SetPremiumThreshold requires the threshold to be at least the price ceiling
// and at most 150. The lower bound compares a percent against an 18-decimal
// price, matching the deployed behavior; see DESIGN.md before changing it.
func (e *Engine) SetPremiumThreshold(caller common.Address, threshold uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if new(big.Int).SetUint64(threshold).Cmp(e.params.Price.Ceiling) < 0 {
		return fmt.Errorf("treasury: premium threshold below price ceiling")
	}
	if threshold > 150 {
		return fmt.Errorf("treasury: premium threshold exceeds 150")
	}
	e.params.Price.PremiumThreshold = threshold
	e.persistLocked()
	return nil
}

// SetMaxDiscountRate caps the discount curve output. Zero disables the clamp.
func (e *Engine) SetMaxDiscountRate(caller common.Address, rate *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if rate == nil || rate.Sign() < 0 {
		return fmt.Errorf("treasury: max discount rate must be non-negative")
	}
	e.params.Price.MaxDiscountRate = new(big.Int).Set(rate)
	e.persistLocked()
	return nil
}

// SetMaxPremiumRate caps the premium curve output. Zero disables the clamp.
func (e *Engine) SetMaxPremiumRate(caller common.Address, rate *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if rate == nil || rate.Sign() < 0 {
		return fmt.Errorf("treasury: max premium rate must be non-negative")
	}
	e.params.Price.MaxPremiumRate = new(big.Int).Set(rate)
	e.persistLocked()
	return nil
}

// SetMintingFactorForPayingDebt bounds the debt-paying mint factor to
// [10000, 20000] bps.
func (e *Engine) SetMintingFactorForPayingDebt(caller common.Address, bps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if bps < 10_000 || bps > 20_000 {
		return fmt.Errorf("treasury: minting factor out of [10000, 20000] bps")
	}
	e.params.Caps.MintingFactorForPayingDebtBps = bps
	e.persistLocked()
	return nil
}
