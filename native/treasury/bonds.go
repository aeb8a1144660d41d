package treasury

import (
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"pegd/core/events"
)

// BuyBonds exchanges the caller's stable supply for bonds at the discount rate
// during a contraction phase. The caller pins the observed price; any movement
// since observation aborts the purchase.
func (e *Engine) BuyBonds(caller common.Address, amount, expectedPrice *big.Int, now time.Time) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	// Collaborator calls below may re-enter; reject nested entry before taking
	// the state lock so a malicious token cannot deadlock or double-spend.
	if !e.inFlight.CompareAndSwap(false, true) {
		return ErrReentrancy
	}
	defer e.inFlight.Store(false)

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkStartedLocked(now); err != nil {
		return err
	}
	if err := e.checkCollaboratorOperators(); err != nil {
		return err
	}
	if err := e.ticks.reserve(caller); err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			e.ticks.release(caller)
		}
	}()

	price, err := e.oracle.Spot()
	if err != nil {
		return err
	}
	if expectedPrice == nil || price.Cmp(expectedPrice) != 0 {
		return ErrPriceMoved
	}
	if price.Cmp(e.params.Price.Peg) >= 0 {
		return ErrNotContractionPhase
	}
	if amount.Cmp(e.state.EpochSupplyContractionLeft) > 0 {
		return ErrContractionExhausted
	}
	rate, err := e.params.Price.DiscountRate(price)
	if err != nil {
		return err
	}
	if rate.Sign() == 0 {
		return ErrIneligibleRate
	}
	bondAmount := new(big.Int).Mul(amount, rate)
	bondAmount.Div(bondAmount, priceOne)

	bondSupply, err := e.bond.TotalSupply()
	if err != nil {
		return fmt.Errorf("treasury: bond supply: %w", err)
	}
	circulating, err := e.CirculatingSupply()
	if err != nil {
		return err
	}
	newBondSupply := new(big.Int).Add(bondSupply, bondAmount)
	if newBondSupply.Cmp(mulBps(circulating, e.params.Caps.MaxDebtRatioBps)) > 0 {
		return ErrDebtCeiling
	}

	if err := e.stable.BurnFrom(caller, amount); err != nil {
		return fmt.Errorf("treasury: stable burn: %w", err)
	}
	ok, err := e.bond.Mint(caller, bondAmount)
	if err != nil {
		return fmt.Errorf("treasury: bond mint: %w", err)
	}
	if !ok {
		return fmt.Errorf("treasury: bond mint rejected")
	}
	e.state.EpochSupplyContractionLeft = new(big.Int).Sub(e.state.EpochSupplyContractionLeft, amount)
	committed = true
	e.oracle.RefreshBestEffort()

	e.emitter.Emit(events.BoughtBonds{Buyer: caller, StableAmount: amount, BondAmount: bondAmount})
	e.telemetry.IncBondsBought()
	e.telemetry.SetContractionLeft(e.state.EpochSupplyContractionLeft)
	e.persistLocked()
	if e.log != nil {
		e.log.Info("bonds bought",
			slog.String("buyer", caller.Hex()),
			slog.String("stableAmount", amount.String()),
			slog.String("bondAmount", bondAmount.String()))
	}
	return nil
}

// RedeemBonds exchanges the caller's bonds for stable supply at the premium
// rate during an expansion phase. The payout is capped by the treasury's own
// stable balance and draws down the saved seigniorage reserve, clamped at zero.
func (e *Engine) RedeemBonds(caller common.Address, bondAmount, expectedPrice *big.Int, now time.Time) error {
	if bondAmount == nil || bondAmount.Sign() <= 0 {
		return ErrZeroAmount
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkStartedLocked(now); err != nil {
		return err
	}
	if err := e.checkCollaboratorOperators(); err != nil {
		return err
	}
	if err := e.ticks.reserve(caller); err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			e.ticks.release(caller)
		}
	}()

	price, err := e.oracle.Spot()
	if err != nil {
		return err
	}
	if expectedPrice == nil || price.Cmp(expectedPrice) != 0 {
		return ErrPriceMoved
	}
	if price.Cmp(e.params.Price.Ceiling) <= 0 {
		return ErrNotExpansionPhase
	}
	rate, err := e.params.Price.PremiumRate(price)
	if err != nil {
		return err
	}
	if rate.Sign() == 0 {
		return ErrIneligibleRate
	}
	stableAmount := new(big.Int).Mul(bondAmount, rate)
	stableAmount.Div(stableAmount, priceOne)

	budget, err := e.stable.BalanceOf(e.self)
	if err != nil {
		return fmt.Errorf("treasury: treasury balance: %w", err)
	}
	if budget.Cmp(stableAmount) < 0 {
		return ErrNoBudget
	}

	drawdown := new(big.Int).Set(stableAmount)
	if drawdown.Cmp(e.state.SeigniorageSaved) > 0 {
		drawdown = new(big.Int).Set(e.state.SeigniorageSaved)
	}

	if err := e.bond.BurnFrom(caller, bondAmount); err != nil {
		return fmt.Errorf("treasury: bond burn: %w", err)
	}
	if err := e.stable.Transfer(caller, stableAmount); err != nil {
		return fmt.Errorf("treasury: stable transfer: %w", err)
	}
	e.state.SeigniorageSaved = new(big.Int).Sub(e.state.SeigniorageSaved, drawdown)
	committed = true
	e.oracle.RefreshBestEffort()

	e.emitter.Emit(events.RedeemedBonds{Redeemer: caller, BondAmount: bondAmount, StableAmount: stableAmount})
	e.telemetry.IncBondsRedeemed()
	e.telemetry.SetBondReserve(e.state.SeigniorageSaved)
	e.persistLocked()
	if e.log != nil {
		e.log.Info("bonds redeemed",
			slog.String("redeemer", caller.Hex()),
			slog.String("bondAmount", bondAmount.String()),
			slog.String("stableAmount", stableAmount.String()))
	}
	return nil
}

// BurnableStableLeft reports the stable amount still convertible to bonds this
// epoch, bounded by both the contraction quota and the debt ratio headroom.
func (e *Engine) BurnableStableLeft() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	price, err := e.oracle.Spot()
	if err != nil {
		return nil, err
	}
	if price.Cmp(e.params.Price.Peg) >= 0 {
		return big.NewInt(0), nil
	}
	circulating, err := e.CirculatingSupply()
	if err != nil {
		return nil, err
	}
	bondSupply, err := e.bond.TotalSupply()
	if err != nil {
		return nil, fmt.Errorf("treasury: bond supply: %w", err)
	}
	maxDebt := mulBps(circulating, e.params.Caps.MaxDebtRatioBps)
	headroom := new(big.Int).Sub(maxDebt, bondSupply)
	if headroom.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	rate, err := e.params.Price.DiscountRate(price)
	if err != nil {
		return nil, err
	}
	if rate.Sign() == 0 {
		return big.NewInt(0), nil
	}
	// Stable supply whose bond conversion fills the remaining headroom.
	burnable := new(big.Int).Mul(headroom, priceOne)
	burnable.Div(burnable, rate)
	if burnable.Cmp(e.state.EpochSupplyContractionLeft) > 0 {
		burnable = new(big.Int).Set(e.state.EpochSupplyContractionLeft)
	}
	return burnable, nil
}

// RedeemableBonds reports the bond amount the current treasury budget can
// redeem at the prevailing premium rate.
func (e *Engine) RedeemableBonds() (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	price, err := e.oracle.Spot()
	if err != nil {
		return nil, err
	}
	rate, err := e.params.Price.PremiumRate(price)
	if err != nil {
		return nil, err
	}
	if rate.Sign() == 0 {
		return big.NewInt(0), nil
	}
	budget, err := e.stable.BalanceOf(e.self)
	if err != nil {
		return nil, fmt.Errorf("treasury: treasury balance: %w", err)
	}
	out := new(big.Int).Mul(budget, priceOne)
	return out.Div(out, rate), nil
}
