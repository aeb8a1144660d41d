package treasury

import (
	"fmt"
	"math/big"
	"time"

	"pegd/core/events"
)

// distributeSeigniorage mints amount into the treasury's own holdings and
// splits it across the dao fund, dev fund and boardroom. The boardroom always
// receives the exact remainder so the three shares sum to amount with no
// rounding loss. An empty boardroom is detected before the mint so a refused
// allocation leaves no supply behind.
func (e *Engine) distributeSeigniorage(amount *big.Int, now time.Time) error {
	daoShare := big.NewInt(0)
	if e.params.Funds.DaoBps > 0 {
		daoShare = mulBps(amount, e.params.Funds.DaoBps)
	}
	devShare := big.NewInt(0)
	if e.params.Funds.DevBps > 0 {
		devShare = mulBps(amount, e.params.Funds.DevBps)
	}
	boardroomAmount := new(big.Int).Sub(amount, daoShare)
	boardroomAmount.Sub(boardroomAmount, devShare)

	if boardroomAmount.Sign() > 0 {
		staked, err := e.boardroom.TotalStaked()
		if err != nil {
			return fmt.Errorf("treasury: boardroom stake query: %w", err)
		}
		if staked.Sign() == 0 {
			return ErrBoardroomEmpty
		}
	}

	ok, err := e.stable.Mint(e.self, amount)
	if err != nil {
		return fmt.Errorf("treasury: seigniorage mint: %w", err)
	}
	if !ok {
		return fmt.Errorf("treasury: seigniorage mint rejected")
	}

	if daoShare.Sign() > 0 {
		if err := e.stable.Transfer(e.params.Funds.DaoFund, daoShare); err != nil {
			return fmt.Errorf("treasury: dao fund transfer: %w", err)
		}
		e.emitter.Emit(events.DaoFundFunded{Timestamp: now.Unix(), Amount: daoShare})
		e.telemetry.ObserveSeigniorage("dao", daoShare)
	}
	if devShare.Sign() > 0 {
		if err := e.stable.Transfer(e.params.Funds.DevFund, devShare); err != nil {
			return fmt.Errorf("treasury: dev fund transfer: %w", err)
		}
		e.emitter.Emit(events.DevFundFunded{Timestamp: now.Unix(), Amount: devShare})
		e.telemetry.ObserveSeigniorage("dev", devShare)
	}

	if boardroomAmount.Sign() > 0 {
		// Reset any stale allowance before granting the exact grant for this round.
		if err := e.stable.Approve(e.boardroomAddr, big.NewInt(0)); err != nil {
			return fmt.Errorf("treasury: allowance reset: %w", err)
		}
		if err := e.stable.Approve(e.boardroomAddr, boardroomAmount); err != nil {
			return fmt.Errorf("treasury: allowance grant: %w", err)
		}
		if err := e.boardroom.AllocateSeigniorage(boardroomAmount); err != nil {
			return fmt.Errorf("treasury: boardroom allocation: %w", err)
		}
		e.emitter.Emit(events.BoardroomFunded{Timestamp: now.Unix(), Amount: boardroomAmount})
		e.telemetry.ObserveSeigniorage("boardroom", boardroomAmount)
	}
	return nil
}
