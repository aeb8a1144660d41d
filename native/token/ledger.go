package token

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"pegd/storage"
)

var (
	// ErrInsufficientBalance indicates a debit exceeding the holder's balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance indicates a pull exceeding the granted allowance.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
)

// Ledger is an in-process fungible token ledger persisted in a key-value
// store. It backs the daemon's three core assets; the treasury engine holds a
// Bound view over it.
type Ledger struct {
	mu         sync.Mutex
	db         storage.Database
	symbol     string
	operator   common.Address
	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

type ledgerSnapshot struct {
	Operator   string                       `json:"operator"`
	Supply     string                       `json:"supply"`
	Balances   map[string]string            `json:"balances"`
	Allowances map[string]map[string]string `json:"allowances"`
}

// Open loads or creates the ledger stored under the symbol.
func Open(db storage.Database, symbol string) (*Ledger, error) {
	l := &Ledger{
		db:         db,
		symbol:     symbol,
		supply:     big.NewInt(0),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
	raw, err := db.Get(l.key())
	if errors.Is(err, storage.ErrNotFound) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	var snap ledgerSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("token: decode %s ledger: %w", symbol, err)
	}
	l.operator = common.HexToAddress(snap.Operator)
	if l.supply, err = parseAmount(snap.Supply); err != nil {
		return nil, err
	}
	for addr, amount := range snap.Balances {
		value, err := parseAmount(amount)
		if err != nil {
			return nil, err
		}
		l.balances[common.HexToAddress(addr)] = value
	}
	for owner, grants := range snap.Allowances {
		ownerAddr := common.HexToAddress(owner)
		l.allowances[ownerAddr] = make(map[common.Address]*big.Int, len(grants))
		for spender, amount := range grants {
			value, err := parseAmount(amount)
			if err != nil {
				return nil, err
			}
			l.allowances[ownerAddr][common.HexToAddress(spender)] = value
		}
	}
	return l, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	out, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("token: invalid stored amount %q", s)
	}
	return out, nil
}

func (l *Ledger) key() []byte {
	return []byte("token/" + l.symbol)
}

func (l *Ledger) persistLocked() error {
	snap := ledgerSnapshot{
		Operator:   l.operator.Hex(),
		Supply:     l.supply.String(),
		Balances:   make(map[string]string, len(l.balances)),
		Allowances: make(map[string]map[string]string, len(l.allowances)),
	}
	for addr, amount := range l.balances {
		snap.Balances[addr.Hex()] = amount.String()
	}
	for owner, grants := range l.allowances {
		entry := make(map[string]string, len(grants))
		for spender, amount := range grants {
			entry[spender.Hex()] = amount.String()
		}
		snap.Allowances[owner.Hex()] = entry
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return l.db.Put(l.key(), raw)
}

func (l *Ledger) balanceLocked(addr common.Address) *big.Int {
	if b, ok := l.balances[addr]; ok {
		return b
	}
	b := big.NewInt(0)
	l.balances[addr] = b
	return b
}

// Symbol returns the ledger's token symbol.
func (l *Ledger) Symbol() string { return l.symbol }

// SetOperator records the delegated operator identity.
func (l *Ledger) SetOperator(addr common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.operator = addr
	return l.persistLocked()
}

// Operator reports the delegated operator identity.
func (l *Ledger) Operator() (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.operator, nil
}

// Mint credits newly created supply to the recipient.
func (l *Ledger) Mint(to common.Address, amount *big.Int) (bool, error) {
	if amount == nil || amount.Sign() < 0 {
		return false, fmt.Errorf("token: mint amount must be non-negative")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = new(big.Int).Add(l.balanceLocked(to), amount)
	l.supply = new(big.Int).Add(l.supply, amount)
	return true, l.persistLocked()
}

// BurnFrom destroys supply held by the holder.
func (l *Ledger) BurnFrom(holder common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	balance := l.balanceLocked(holder)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[holder] = new(big.Int).Sub(balance, amount)
	l.supply = new(big.Int).Sub(l.supply, amount)
	return l.persistLocked()
}

// TransferBetween moves balance between two accounts.
func (l *Ledger) TransferBetween(from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.transferLocked(from, to, amount)
}

func (l *Ledger) transferLocked(from, to common.Address, amount *big.Int) error {
	balance := l.balanceLocked(from)
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	l.balances[from] = new(big.Int).Sub(balance, amount)
	l.balances[to] = new(big.Int).Add(l.balanceLocked(to), amount)
	return l.persistLocked()
}

// ApproveFor grants spender an allowance over owner's balance.
func (l *Ledger) ApproveFor(owner, spender common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	grants, ok := l.allowances[owner]
	if !ok {
		grants = make(map[common.Address]*big.Int)
		l.allowances[owner] = grants
	}
	grants[spender] = new(big.Int).Set(amount)
	return l.persistLocked()
}

// TransferFrom pulls owner's balance within spender's allowance.
func (l *Ledger) TransferFrom(spender, owner, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	grants, ok := l.allowances[owner]
	if !ok {
		grants = make(map[common.Address]*big.Int)
		l.allowances[owner] = grants
	}
	allowance := big.NewInt(0)
	if grants[spender] != nil {
		allowance = grants[spender]
	}
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.transferLocked(owner, to, amount); err != nil {
		return err
	}
	grants[spender] = new(big.Int).Sub(allowance, amount)
	return l.persistLocked()
}

// BalanceOf reports the holder's balance.
func (l *Ledger) BalanceOf(addr common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceLocked(addr)), nil
}

// TotalSupply reports the ledger's total supply.
func (l *Ledger) TotalSupply() (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.supply), nil
}

// Bound is the ledger view held by a single account: transfers debit the
// bound holder and approvals are granted on its behalf. It satisfies the
// treasury engine's Token interface.
type Bound struct {
	ledger *Ledger
	holder common.Address
}

// Bind returns the ledger view for the holder.
func (l *Ledger) Bind(holder common.Address) *Bound {
	return &Bound{ledger: l, holder: holder}
}

// Ledger exposes the underlying shared ledger.
func (b *Bound) Ledger() *Ledger { return b.ledger }

// Mint credits newly created supply.
func (b *Bound) Mint(to common.Address, amount *big.Int) (bool, error) {
	return b.ledger.Mint(to, amount)
}

// BurnFrom destroys supply held by the holder.
func (b *Bound) BurnFrom(holder common.Address, amount *big.Int) error {
	return b.ledger.BurnFrom(holder, amount)
}

// Transfer moves balance out of the bound holder's account.
func (b *Bound) Transfer(to common.Address, amount *big.Int) error {
	return b.ledger.TransferBetween(b.holder, to, amount)
}

// Approve grants spender an allowance over the bound holder's balance.
func (b *Bound) Approve(spender common.Address, amount *big.Int) error {
	return b.ledger.ApproveFor(b.holder, spender, amount)
}

// BalanceOf reports a holder's balance.
func (b *Bound) BalanceOf(addr common.Address) (*big.Int, error) {
	return b.ledger.BalanceOf(addr)
}

// TotalSupply reports the ledger's total supply.
func (b *Bound) TotalSupply() (*big.Int, error) {
	return b.ledger.TotalSupply()
}

// Operator reports the ledger's delegated operator.
func (b *Bound) Operator() (common.Address, error) {
	return b.ledger.Operator()
}
