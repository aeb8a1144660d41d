package treasury

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Delegated boardroom administration. Each call is operator-gated locally and
// passed through to the boardroom collaborator unchanged.

// BoardroomSetOperator rotates the boardroom's delegated operator.
func (e *Engine) BoardroomSetOperator(caller, next common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if next == (common.Address{}) {
		return ErrZeroAddress
	}
	return e.boardroom.SetOperator(next)
}

// BoardroomSetLockUp configures the boardroom's withdraw and reward lock-ups.
func (e *Engine) BoardroomSetLockUp(caller common.Address, withdrawLockupEpochs, rewardLockupEpochs uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	return e.boardroom.SetLockUp(withdrawLockupEpochs, rewardLockupEpochs)
}

// BoardroomAllocateSeigniorage pushes a manual allocation into the boardroom.
func (e *Engine) BoardroomAllocateSeigniorage(caller common.Address, amount *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	return e.boardroom.AllocateSeigniorage(amount)
}

// BoardroomRecoverUnsupported sweeps a stray token out of the boardroom.
func (e *Engine) BoardroomRecoverUnsupported(caller, token common.Address, amount *big.Int, to common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	return e.boardroom.RecoverUnsupported(token, amount, to)
}

// RecoverUnsupported transfers a stray token held by the treasury itself. The
// three core tokens are protected and can never be drained through this path.
func (e *Engine) RecoverUnsupported(caller, tokenAddr common.Address, token Token, amount *big.Int, to common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.requireOperatorLocked(caller); err != nil {
		return err
	}
	if tokenAddr == e.stableAddr || tokenAddr == e.bondAddr || tokenAddr == e.shareAddr {
		return ErrProtectedToken
	}
	if token == nil {
		return fmt.Errorf("treasury: token collaborator required")
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	return token.Transfer(to, amount)
}
