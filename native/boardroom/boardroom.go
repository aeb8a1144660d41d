// Package boardroom implements the staking room receiving allocated
// seigniorage. Members stake the share asset and earn the stable reward
// snapshots pulled from the treasury allowance; withdraw and reward claims are
// gated by lockup epochs.
package boardroom

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pegd/native/token"
	"pegd/storage"
)

var (
	// ErrNoStake indicates a reward or withdraw request from a non-member.
	ErrNoStake = errors.New("boardroom: no stake")
	// ErrLockedUp indicates the member's lockup epochs have not elapsed.
	ErrLockedUp = errors.New("boardroom: lockup not elapsed")
	// ErrNoMembers indicates an allocation arriving with zero total stake.
	ErrNoMembers = errors.New("boardroom: no staked members")
	// ErrProtectedToken indicates recovery of a core asset was requested.
	ErrProtectedToken = errors.New("boardroom: cannot recover core asset")
)

const rewardScale = 1e18

var rewardUnit = big.NewInt(rewardScale)

// Room tracks staked shares and distributes stable rewards per allocation.
// Reward accounting uses a cumulative rewards-per-share accumulator so a
// member's earned amount is stake x (accumulator - entry snapshot).
type Room struct {
	mu sync.Mutex
	db storage.Database

	self     common.Address
	treasury common.Address
	operator common.Address

	stable *token.Ledger
	share  *token.Ledger

	totalStaked    *big.Int
	rewardPerShare *big.Int
	members        map[common.Address]*member

	withdrawLockupEpochs uint64
	rewardLockupEpochs   uint64
	epoch                uint64
}

type member struct {
	Staked     *big.Int
	Snapshot   *big.Int
	EpochStart uint64
}

type roomSnapshot struct {
	Operator             string                    `json:"operator"`
	TotalStaked          string                    `json:"totalStaked"`
	RewardPerShare       string                    `json:"rewardPerShare"`
	WithdrawLockupEpochs uint64                    `json:"withdrawLockupEpochs"`
	RewardLockupEpochs   uint64                    `json:"rewardLockupEpochs"`
	Epoch                uint64                    `json:"epoch"`
	Members              map[string]memberSnapshot `json:"members"`
}

type memberSnapshot struct {
	Staked     string `json:"staked"`
	Snapshot   string `json:"snapshot"`
	EpochStart uint64 `json:"epochStart"`
}

// Config assembles a Room.
type Config struct {
	Self     common.Address
	Treasury common.Address
	Stable   *token.Ledger
	Share    *token.Ledger
	DB       storage.Database

	WithdrawLockupEpochs uint64
	RewardLockupEpochs   uint64
}

// Open restores a Room from storage or creates a fresh one.
func Open(cfg Config) (*Room, error) {
	if cfg.Stable == nil || cfg.Share == nil || cfg.DB == nil {
		return nil, fmt.Errorf("boardroom: stable, share and db are required")
	}
	r := &Room{
		db:                   cfg.DB,
		self:                 cfg.Self,
		treasury:             cfg.Treasury,
		operator:             cfg.Treasury,
		stable:               cfg.Stable,
		share:                cfg.Share,
		totalStaked:          big.NewInt(0),
		rewardPerShare:       big.NewInt(0),
		members:              make(map[common.Address]*member),
		withdrawLockupEpochs: cfg.WithdrawLockupEpochs,
		rewardLockupEpochs:   cfg.RewardLockupEpochs,
	}
	raw, err := cfg.DB.Get(roomKey)
	if errors.Is(err, storage.ErrNotFound) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	var snap roomSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("boardroom: decode snapshot: %w", err)
	}
	r.operator = common.HexToAddress(snap.Operator)
	if r.totalStaked, err = parseAmount(snap.TotalStaked); err != nil {
		return nil, err
	}
	if r.rewardPerShare, err = parseAmount(snap.RewardPerShare); err != nil {
		return nil, err
	}
	r.withdrawLockupEpochs = snap.WithdrawLockupEpochs
	r.rewardLockupEpochs = snap.RewardLockupEpochs
	r.epoch = snap.Epoch
	for addr, m := range snap.Members {
		staked, err := parseAmount(m.Staked)
		if err != nil {
			return nil, err
		}
		entry, err := parseAmount(m.Snapshot)
		if err != nil {
			return nil, err
		}
		r.members[common.HexToAddress(addr)] = &member{Staked: staked, Snapshot: entry, EpochStart: m.EpochStart}
	}
	return r, nil
}

var roomKey = []byte("boardroom/state")

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	out, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("boardroom: invalid stored amount %q", s)
	}
	return out, nil
}

func (r *Room) persistLocked() error {
	snap := roomSnapshot{
		Operator:             r.operator.Hex(),
		TotalStaked:          r.totalStaked.String(),
		RewardPerShare:       r.rewardPerShare.String(),
		WithdrawLockupEpochs: r.withdrawLockupEpochs,
		RewardLockupEpochs:   r.rewardLockupEpochs,
		Epoch:                r.epoch,
		Members:              make(map[string]memberSnapshot, len(r.members)),
	}
	for addr, m := range r.members {
		snap.Members[addr.Hex()] = memberSnapshot{
			Staked:     m.Staked.String(),
			Snapshot:   m.Snapshot.String(),
			EpochStart: m.EpochStart,
		}
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return r.db.Put(roomKey, raw)
}

// AdvanceEpoch mirrors the treasury epoch so lockups measure elapsed epochs.
func (r *Room) AdvanceEpoch() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.epoch++
}

// Stake locks the caller's share balance into the room. Pending rewards are
// settled to the caller's credit before the stake changes.
func (r *Room) Stake(caller common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("boardroom: stake amount must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.share.TransferBetween(caller, r.self, amount); err != nil {
		return err
	}
	m := r.memberLocked(caller)
	if err := r.settleLocked(caller, m); err != nil {
		return err
	}
	m.Staked = new(big.Int).Add(m.Staked, amount)
	m.EpochStart = r.epoch
	r.totalStaked = new(big.Int).Add(r.totalStaked, amount)
	return r.persistLocked()
}

// Withdraw releases staked shares after the withdraw lockup has elapsed.
func (r *Room) Withdraw(caller common.Address, amount *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[caller]
	if !ok || m.Staked.Sign() == 0 {
		return ErrNoStake
	}
	if r.epoch < m.EpochStart+r.withdrawLockupEpochs {
		return ErrLockedUp
	}
	if m.Staked.Cmp(amount) < 0 {
		return token.ErrInsufficientBalance
	}
	if err := r.settleLocked(caller, m); err != nil {
		return err
	}
	m.Staked = new(big.Int).Sub(m.Staked, amount)
	r.totalStaked = new(big.Int).Sub(r.totalStaked, amount)
	if err := r.share.TransferBetween(r.self, caller, amount); err != nil {
		return err
	}
	return r.persistLocked()
}

// ClaimReward pays out the caller's settled stable rewards after the reward
// lockup has elapsed.
func (r *Room) ClaimReward(caller common.Address) (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[caller]
	if !ok {
		return nil, ErrNoStake
	}
	if r.epoch < m.EpochStart+r.rewardLockupEpochs {
		return nil, ErrLockedUp
	}
	earned := r.earnedLocked(m)
	if earned.Sign() == 0 {
		return big.NewInt(0), nil
	}
	m.Snapshot = new(big.Int).Set(r.rewardPerShare)
	if err := r.stable.TransferBetween(r.self, caller, earned); err != nil {
		return nil, err
	}
	return earned, r.persistLocked()
}

// Earned reports the caller's accrued stable reward.
func (r *Room) Earned(caller common.Address) *big.Int {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.members[caller]
	if !ok {
		return big.NewInt(0)
	}
	return r.earnedLocked(m)
}

// TotalStaked reports the room's total staked shares. The error return exists
// for the treasury collaborator contract; the in-process room cannot fail.
func (r *Room) TotalStaked() (*big.Int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return new(big.Int).Set(r.totalStaked), nil
}

func (r *Room) memberLocked(addr common.Address) *member {
	m, ok := r.members[addr]
	if !ok {
		m = &member{Staked: big.NewInt(0), Snapshot: new(big.Int).Set(r.rewardPerShare), EpochStart: r.epoch}
		r.members[addr] = m
	}
	return m
}

func (r *Room) earnedLocked(m *member) *big.Int {
	delta := new(big.Int).Sub(r.rewardPerShare, m.Snapshot)
	earned := new(big.Int).Mul(m.Staked, delta)
	return earned.Quo(earned, rewardUnit)
}

// settleLocked folds accrued rewards into the member's snapshot by paying them
// out immediately; stake mutations must not silently reset pending rewards.
func (r *Room) settleLocked(addr common.Address, m *member) error {
	earned := r.earnedLocked(m)
	m.Snapshot = new(big.Int).Set(r.rewardPerShare)
	if earned.Sign() == 0 {
		return nil
	}
	return r.stable.TransferBetween(r.self, addr, earned)
}

// AllocateSeigniorage pulls the treasury's approved stable amount into the
// room and folds it into the rewards-per-share accumulator.
func (r *Room) AllocateSeigniorage(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return fmt.Errorf("boardroom: allocation must be positive")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.totalStaked.Sign() == 0 {
		return ErrNoMembers
	}
	if err := r.stable.TransferFrom(r.self, r.treasury, r.self, amount); err != nil {
		return err
	}
	increment := new(big.Int).Mul(amount, rewardUnit)
	increment.Quo(increment, r.totalStaked)
	r.rewardPerShare = new(big.Int).Add(r.rewardPerShare, increment)
	return r.persistLocked()
}

// SetOperator records the delegated operator identity.
func (r *Room) SetOperator(addr common.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operator = addr
	return r.persistLocked()
}

// Operator reports the delegated operator identity.
func (r *Room) Operator() (common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operator, nil
}

// SetLockUp updates the withdraw and reward lockup epochs.
func (r *Room) SetLockUp(withdrawLockupEpochs, rewardLockupEpochs uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.withdrawLockupEpochs = withdrawLockupEpochs
	r.rewardLockupEpochs = rewardLockupEpochs
	return r.persistLocked()
}

// RecoverUnsupported returns stray tokens sent to the room. The in-process
// room only holds the core stable and share ledgers, both of which are
// protected, so every recovery request is rejected.
func (r *Room) RecoverUnsupported(tokenAddr common.Address, amount *big.Int, to common.Address) error {
	return ErrProtectedToken
}
