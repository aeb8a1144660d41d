package treasury

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"pegd/core/events"
	"pegd/observability/metrics"
)

// Config wires an Engine to its collaborators. Self is the identity the token
// and boardroom collaborators must report as their delegated operator before
// any mutating call is permitted.
type Config struct {
	Self          common.Address
	Period        time.Duration
	Stable        Token
	Bond          Token
	Share         Token
	Boardroom     Boardroom
	Oracle        Oracle
	StableAddr    common.Address
	BondAddr      common.Address
	ShareAddr     common.Address
	BoardroomAddr common.Address
	// Excluded lists reserve addresses removed from circulating supply. The
	// stable token's own address is never a valid entry.
	Excluded []common.Address
	Emitter  events.Emitter
	Logger   *slog.Logger
	Store    *StateStore
}

func (c Config) validate() error {
	if c.Period <= 0 {
		return fmt.Errorf("treasury: period must be positive")
	}
	if c.Stable == nil || c.Bond == nil || c.Share == nil {
		return fmt.Errorf("treasury: token collaborators required")
	}
	if c.Boardroom == nil {
		return fmt.Errorf("treasury: boardroom collaborator required")
	}
	if c.Oracle == nil {
		return fmt.Errorf("treasury: oracle collaborator required")
	}
	if c.Self == (common.Address{}) {
		return fmt.Errorf("treasury: engine identity required")
	}
	for _, addr := range c.Excluded {
		if addr == c.StableAddr {
			return fmt.Errorf("treasury: stable token cannot be excluded from its own supply")
		}
	}
	return nil
}

// Engine is the epoch-gated monetary policy controller. Every public
// entrypoint is atomic: it either applies all state changes and collaborator
// effects or aborts with none.
type Engine struct {
	mu     sync.Mutex
	self   common.Address
	period time.Duration

	state  *PolicyState
	params Params
	tiers  *TierTable

	stable    Token
	bond      Token
	share     Token
	boardroom Boardroom
	oracle    *oracleAdapter

	stableAddr    common.Address
	bondAddr      common.Address
	shareAddr     common.Address
	boardroomAddr common.Address
	excluded      []common.Address

	emitter   events.Emitter
	log       *slog.Logger
	ticks     *tickGuard
	inFlight  atomic.Bool
	store     *StateStore
	telemetry *metrics.TreasuryMetrics
}

// NewEngine constructs an engine. When a state store is configured and holds a
// snapshot, the persisted policy state and parameters are restored.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	emitter := cfg.Emitter
	if emitter == nil {
		emitter = events.NoopEmitter{}
	}
	e := &Engine{
		self:          cfg.Self,
		period:        cfg.Period,
		state:         newPolicyState(),
		tiers:         DefaultTierTable(),
		stable:        cfg.Stable,
		bond:          cfg.Bond,
		share:         cfg.Share,
		boardroom:     cfg.Boardroom,
		oracle:        newOracleAdapter(cfg.Oracle, cfg.StableAddr, cfg.Logger),
		stableAddr:    cfg.StableAddr,
		bondAddr:      cfg.BondAddr,
		shareAddr:     cfg.ShareAddr,
		boardroomAddr: cfg.BoardroomAddr,
		excluded:      append([]common.Address(nil), cfg.Excluded...),
		emitter:       emitter,
		log:           cfg.Logger,
		ticks:         newTickGuard(),
		store:         cfg.Store,
		telemetry:     metrics.Treasury(),
	}
	if e.store != nil {
		state, params, tiers, ok, err := e.store.Load()
		if err != nil {
			return nil, fmt.Errorf("treasury: restore snapshot: %w", err)
		}
		if ok {
			e.state = state
			e.params = *params
			e.tiers = tiers
		}
	}
	return e, nil
}

// Initialize creates the policy state exactly once. The price ceiling is
// derived from the peg; every other parameter starts at its launch default.
func (e *Engine) Initialize(operator common.Address, startTime time.Time, peg *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state.Initialized {
		return ErrAlreadyInitialized
	}
	if operator == (common.Address{}) {
		return ErrZeroAddress
	}
	if peg == nil || peg.Sign() <= 0 {
		return fmt.Errorf("treasury: peg must be positive")
	}
	e.params = defaultParams(peg)
	e.state = newPolicyState()
	e.state.Operator = operator
	e.state.Initialized = true
	e.state.StartTime = startTime
	e.state.BootstrapEpochs = 28
	e.state.BootstrapExpansionBps = 450
	e.emitter.Emit(events.TreasuryInitialized{Operator: operator, StartTime: startTime.Unix()})
	e.persistLocked()
	return nil
}

// AdvanceTick opens a new logical execution window for the per-tick guard and
// returns its identifier. The host calls this once per indivisible trigger.
func (e *Engine) AdvanceTick() uint64 { return e.ticks.Advance() }

// nextEpochPoint is startTime + epoch*period.
func (e *Engine) nextEpochPointLocked() time.Time {
	return e.state.StartTime.Add(time.Duration(e.state.Epoch) * e.period)
}

// NextEpochPoint reports when the next epoch allocation becomes due.
func (e *Engine) NextEpochPoint() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nextEpochPointLocked()
}

func (e *Engine) checkStartedLocked(now time.Time) error {
	if !e.state.Initialized {
		return ErrNotInitialized
	}
	if now.Before(e.state.StartTime) {
		return ErrNotStarted
	}
	return nil
}

func (e *Engine) checkEpochLocked(now time.Time) error {
	if now.Before(e.nextEpochPointLocked()) {
		return ErrEpochNotDue
	}
	return nil
}

// checkCollaboratorOperators verifies each token and the boardroom report this
// engine as their current delegated operator.
func (e *Engine) checkCollaboratorOperators() error {
	for _, tok := range []Token{e.stable, e.bond, e.share} {
		op, err := tok.Operator()
		if err != nil {
			return fmt.Errorf("treasury: operator query: %w", err)
		}
		if op != e.self {
			return ErrCollaboratorOperator
		}
	}
	op, err := e.boardroom.Operator()
	if err != nil {
		return fmt.Errorf("treasury: operator query: %w", err)
	}
	if op != e.self {
		return ErrCollaboratorOperator
	}
	return nil
}

// CirculatingSupply is the stable total supply minus the excluded reserves.
func (e *Engine) CirculatingSupply() (*big.Int, error) {
	total, err := e.stable.TotalSupply()
	if err != nil {
		return nil, fmt.Errorf("treasury: total supply: %w", err)
	}
	out := new(big.Int).Set(total)
	for _, addr := range e.excluded {
		balance, err := e.stable.BalanceOf(addr)
		if err != nil {
			return nil, fmt.Errorf("treasury: excluded balance: %w", err)
		}
		out.Sub(out, balance)
	}
	return out, nil
}

// AllocateSeigniorage runs the per-epoch policy decision: snapshot the price,
// classify the regime and mint or hold accordingly. The epoch advances and the
// contraction quota is recomputed on every successful run, including no-op
// neutral epochs. A failed run leaves the policy state untouched and returns
// the caller's tick slot so the allocation can be retried within the window.
func (e *Engine) AllocateSeigniorage(caller common.Address, now time.Time) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkStartedLocked(now); err != nil {
		return err
	}
	if err := e.checkEpochLocked(now); err != nil {
		return err
	}
	if err := e.checkCollaboratorOperators(); err != nil {
		return err
	}
	if err := e.ticks.reserve(caller); err != nil {
		return err
	}
	if err := e.allocateLocked(now); err != nil {
		e.ticks.release(caller)
		return err
	}
	e.persistLocked()
	if e.log != nil {
		e.log.Info("seigniorage epoch allocated",
			slog.Uint64("epoch", e.state.Epoch),
			slog.String("price", e.state.PreviousEpochPrice.String()),
			slog.String("reserve", e.state.SeigniorageSaved.String()))
	}
	return nil
}

// allocateLocked stages the allocation: all fallible reads and collaborator
// effects run against locals, and the policy state is committed only once
// nothing below can fail.
func (e *Engine) allocateLocked(now time.Time) error {
	e.oracle.RefreshBestEffort()
	price, err := e.oracle.Spot()
	if err != nil {
		return err
	}

	circulating, err := e.CirculatingSupply()
	if err != nil {
		return err
	}
	adjusted := new(big.Int).Sub(circulating, e.state.SeigniorageSaved)
	if adjusted.Sign() < 0 {
		return ErrReserveExceedsSupply
	}

	minted := big.NewInt(0)
	reserveAdded := big.NewInt(0)
	expansionCap := e.params.Caps.MaxSupplyExpansionBps

	switch {
	case e.state.Epoch < e.state.BootstrapEpochs:
		expansion := mulBps(adjusted, e.state.BootstrapExpansionBps)
		if expansion.Sign() > 0 {
			if err := e.distributeSeigniorage(expansion, now); err != nil {
				return err
			}
			minted = expansion
		}
	case price.Cmp(e.params.Price.Ceiling) > 0:
		outcome, err := e.expandSupply(adjusted, price, now)
		if err != nil {
			return err
		}
		minted = outcome.minted
		reserveAdded = outcome.reserveAdded
		expansionCap = outcome.expansionCap
	}

	e.state.PreviousEpochPrice = new(big.Int).Set(price)
	if reserveAdded.Sign() > 0 {
		e.state.SeigniorageSaved = new(big.Int).Add(e.state.SeigniorageSaved, reserveAdded)
		e.emitter.Emit(events.TreasuryFunded{Timestamp: now.Unix(), Amount: reserveAdded})
		e.telemetry.ObserveSeigniorage("reserve", reserveAdded)
		e.telemetry.SetBondReserve(e.state.SeigniorageSaved)
	}
	// The tier lookup result persists as the governance-visible expansion cap
	// until the next allocation runs.
	e.params.Caps.MaxSupplyExpansionBps = expansionCap
	e.state.Epoch++
	if price.Cmp(e.params.Price.Ceiling) > 0 {
		e.state.EpochSupplyContractionLeft = big.NewInt(0)
	} else {
		// Post-allocation supply without a second collaborator round trip: the
		// mints above are the only supply movement under this lock.
		post := new(big.Int).Add(circulating, minted)
		e.state.EpochSupplyContractionLeft = mulBps(post, e.params.Caps.MaxSupplyContractionBps)
	}
	e.telemetry.SetEpoch(e.state.Epoch)
	e.telemetry.SetContractionLeft(e.state.EpochSupplyContractionLeft)
	return nil
}

// expansionOutcome carries the state deltas of a normal-phase expansion back
// to the caller, which commits them after the collaborator effects succeed.
type expansionOutcome struct {
	minted       *big.Int
	reserveAdded *big.Int
	expansionCap uint64
}

// expandSupply runs the normal-phase expansion: tier-capped price delta,
// reserve floor split and the boardroom/reserve routing. It performs the
// collaborator mints but mutates no engine state.
func (e *Engine) expandSupply(adjusted, price *big.Int, now time.Time) (expansionOutcome, error) {
	tier := e.tiers.Lookup(adjusted)
	out := expansionOutcome{
		minted:       big.NewInt(0),
		reserveAdded: big.NewInt(0),
		expansionCap: tier.MaxExpansionBps,
	}

	delta := new(big.Int).Sub(price, e.params.Price.Peg)
	cap := new(big.Int).Mul(new(big.Int).SetUint64(tier.MaxExpansionBps), big.NewInt(100_000_000_000_000))
	if delta.Cmp(cap) > 0 {
		delta = cap
	}
	raw := new(big.Int).Mul(adjusted, delta)
	raw.Div(raw, priceOne)
	if raw.Sign() == 0 {
		return out, nil
	}

	bondSupply, err := e.bond.TotalSupply()
	if err != nil {
		return out, fmt.Errorf("treasury: bond supply: %w", err)
	}
	depletionFloor := mulBps(bondSupply, e.params.Caps.BondDepletionFloorBps)

	boardroomShare := raw
	reserveShare := big.NewInt(0)
	if e.state.SeigniorageSaved.Cmp(depletionFloor) < 0 {
		boardroomShare = mulBps(raw, e.params.Caps.SeigniorageExpansionFloorBps)
		reserveShare = new(big.Int).Sub(raw, boardroomShare)
		if factor := e.params.Caps.MintingFactorForPayingDebtBps; factor > 0 {
			reserveShare = mulBps(reserveShare, factor)
		}
	}

	if boardroomShare.Sign() > 0 {
		if err := e.distributeSeigniorage(boardroomShare, now); err != nil {
			return out, err
		}
	}
	if reserveShare.Sign() > 0 {
		ok, err := e.stable.Mint(e.self, reserveShare)
		if err != nil {
			return out, fmt.Errorf("treasury: reserve mint: %w", err)
		}
		if !ok {
			return out, fmt.Errorf("treasury: reserve mint rejected")
		}
	}
	out.minted = new(big.Int).Add(boardroomShare, reserveShare)
	out.reserveAdded = reserveShare
	return out, nil
}

func (e *Engine) persistLocked() {
	if e.store == nil {
		return
	}
	if err := e.store.Save(e.state, e.params, e.tiers); err != nil && e.log != nil {
		e.log.Warn("policy snapshot persist failed", slog.Any("error", err))
	}
}

// mulBps returns x*bps/10000 with truncating division.
func mulBps(x *big.Int, bps uint64) *big.Int {
	out := new(big.Int).Mul(x, new(big.Int).SetUint64(bps))
	return out.Div(out, big.NewInt(bpsDenominator))
}
