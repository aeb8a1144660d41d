package treasury

import "errors"

var (
	// ErrAlreadyInitialized indicates Initialize was called on a live policy state.
	ErrAlreadyInitialized = errors.New("treasury: already initialized")
	// ErrNotInitialized indicates an operation ran before Initialize.
	ErrNotInitialized = errors.New("treasury: not initialized")
	// ErrNotOperator indicates the caller does not hold the operator identity.
	ErrNotOperator = errors.New("treasury: caller is not the operator")
	// ErrNotStarted indicates the cadence start time has not been reached.
	ErrNotStarted = errors.New("treasury: cadence not started")
	// ErrEpochNotDue indicates the current epoch window has not elapsed.
	ErrEpochNotDue = errors.New("treasury: epoch not due")
	// ErrCollaboratorOperator indicates a token or boardroom collaborator does
	// not report this engine as its delegated operator.
	ErrCollaboratorOperator = errors.New("treasury: engine is not collaborator operator")
	// ErrZeroAmount indicates a bond operation was invoked with a zero amount.
	ErrZeroAmount = errors.New("treasury: amount must be positive")
	// ErrPriceMoved indicates the live price no longer matches the caller's
	// expected price, a defense against stale-price submission.
	ErrPriceMoved = errors.New("treasury: price moved")
	// ErrNotContractionPhase indicates the price is not below the peg.
	ErrNotContractionPhase = errors.New("treasury: price not below peg")
	// ErrNotExpansionPhase indicates the price is not above the ceiling.
	ErrNotExpansionPhase = errors.New("treasury: price not above ceiling")
	// ErrIneligibleRate indicates the pricing engine produced a zero rate.
	ErrIneligibleRate = errors.New("treasury: exchange rate unavailable")
	// ErrContractionExhausted indicates the per-epoch contraction quota cannot
	// cover the requested amount.
	ErrContractionExhausted = errors.New("treasury: epoch contraction quota exhausted")
	// ErrDebtCeiling indicates the purchase would push bond supply over the
	// configured debt ratio.
	ErrDebtCeiling = errors.New("treasury: debt ratio ceiling exceeded")
	// ErrNoBudget indicates the treasury's stable balance cannot cover a redemption.
	ErrNoBudget = errors.New("treasury: insufficient redemption budget")
	// ErrPriceConsultFailed wraps any oracle consultation failure.
	ErrPriceConsultFailed = errors.New("treasury: price consultation failed")
	// ErrTickUsed indicates the caller already ran a guarded operation within
	// the current logical tick.
	ErrTickUsed = errors.New("treasury: one operation per tick")
	// ErrReentrancy indicates a guarded entrypoint was re-entered while an
	// external collaborator call was outstanding.
	ErrReentrancy = errors.New("treasury: reentrant call")
	// ErrBoardroomEmpty indicates the boardroom holds no staked shares and so
	// cannot accept a seigniorage allocation.
	ErrBoardroomEmpty = errors.New("treasury: boardroom has no staked shares")
	// ErrReserveExceedsSupply indicates the saved seigniorage exceeds the
	// circulating supply, which should be impossible for a solvent treasury.
	ErrReserveExceedsSupply = errors.New("treasury: reserve exceeds circulating supply")
	// ErrArithmetic indicates a pricing computation overflowed 256 bits.
	ErrArithmetic = errors.New("treasury: arithmetic overflow")
	// ErrProtectedToken indicates an attempt to recover one of the core tokens.
	ErrProtectedToken = errors.New("treasury: core token cannot be recovered")
	// ErrZeroAddress indicates a required address parameter was unset.
	ErrZeroAddress = errors.New("treasury: zero address")
)
