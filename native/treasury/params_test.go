package treasury

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestSettersRejectNonOperator(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	if err := f.engine.SetMaxDebtRatioBps(holderAddr, 2000); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("err = %v, want ErrNotOperator", err)
	}
	if err := f.engine.SetPriceCeiling(holderAddr, scaled(11, 17)); !errors.Is(err, ErrNotOperator) {
		t.Fatalf("err = %v, want ErrNotOperator", err)
	}
}

func TestSetPriceCeilingBand(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	below := new(big.Int).Sub(priceOne, big.NewInt(1))
	if err := f.engine.SetPriceCeiling(operatorAddr, below); err == nil {
		t.Fatal("expected rejection below peg")
	}
	above := scaled(121, 16)
	if err := f.engine.SetPriceCeiling(operatorAddr, above); err == nil {
		t.Fatal("expected rejection above 1.2x peg")
	}
	prior := f.engine.Params().Price.Ceiling
	if got := f.engine.Params().Price.Ceiling; got.Cmp(prior) != 0 {
		t.Fatal("rejected update must retain prior value")
	}
	if err := f.engine.SetPriceCeiling(operatorAddr, scaled(110, 16)); err != nil {
		t.Fatalf("SetPriceCeiling: %v", err)
	}
	if got := f.engine.Params().Price.Ceiling; got.Cmp(scaled(110, 16)) != 0 {
		t.Fatalf("ceiling = %s", got)
	}
}

func TestBpsSetterBounds(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	cases := []struct {
		name      string
		set       func(uint64) error
		low, high uint64 // accepted boundary values
		reject    []uint64
	}{
		{
			name:   "maxSupplyExpansion",
			set:    func(v uint64) error { return f.engine.SetMaxSupplyExpansionBps(operatorAddr, v) },
			low:    10,
			high:   1000,
			reject: []uint64{9, 1001},
		},
		{
			name:   "bondDepletionFloor",
			set:    func(v uint64) error { return f.engine.SetBondDepletionFloorBps(operatorAddr, v) },
			low:    500,
			high:   10_000,
			reject: []uint64{499, 10_001},
		},
		{
			name:   "maxSupplyContraction",
			set:    func(v uint64) error { return f.engine.SetMaxSupplyContractionBps(operatorAddr, v) },
			low:    100,
			high:   1500,
			reject: []uint64{99, 1501},
		},
		{
			name:   "maxDebtRatio",
			set:    func(v uint64) error { return f.engine.SetMaxDebtRatioBps(operatorAddr, v) },
			low:    1000,
			high:   10_000,
			reject: []uint64{999, 10_001},
		},
		{
			name:   "discount",
			set:    func(v uint64) error { return f.engine.SetDiscountBps(operatorAddr, v) },
			low:    0,
			high:   20_000,
			reject: []uint64{20_001},
		},
		{
			name:   "premium",
			set:    func(v uint64) error { return f.engine.SetPremiumBps(operatorAddr, v) },
			low:    0,
			high:   20_000,
			reject: []uint64{20_001},
		},
		{
			name:   "mintingFactor",
			set:    func(v uint64) error { return f.engine.SetMintingFactorForPayingDebt(operatorAddr, v) },
			low:    10_000,
			high:   20_000,
			reject: []uint64{9_999, 20_001},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.set(tc.low); err != nil {
				t.Fatalf("lower bound rejected: %v", err)
			}
			if err := tc.set(tc.high); err != nil {
				t.Fatalf("upper bound rejected: %v", err)
			}
			for _, v := range tc.reject {
				if err := tc.set(v); err == nil {
					t.Fatalf("value %d accepted, want rejection", v)
				}
			}
		})
	}
}

func TestSetBootstrapBounds(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	if err := f.engine.SetBootstrap(operatorAddr, 121, 450); err == nil {
		t.Fatal("expected rejection above 120 epochs")
	}
	if err := f.engine.SetBootstrap(operatorAddr, 120, 99); err == nil {
		t.Fatal("expected rejection below 100 bps")
	}
	if err := f.engine.SetBootstrap(operatorAddr, 120, 1001); err == nil {
		t.Fatal("expected rejection above 1000 bps")
	}
	if err := f.engine.SetBootstrap(operatorAddr, 120, 1000); err != nil {
		t.Fatalf("SetBootstrap: %v", err)
	}
}

func TestSetExtraFundsBounds(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	if err := f.engine.SetExtraFunds(operatorAddr, daoAddr, 4001, devAddr, 0); err == nil {
		t.Fatal("expected rejection above 4000 bps dao share")
	}
	if err := f.engine.SetExtraFunds(operatorAddr, daoAddr, 100, devAddr, 1001); err == nil {
		t.Fatal("expected rejection above 1000 bps dev share")
	}
	if err := f.engine.SetExtraFunds(operatorAddr, common.Address{}, 100, devAddr, 100); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero dao fund = %v, want ErrZeroAddress", err)
	}
	if err := f.engine.SetExtraFunds(operatorAddr, daoAddr, 4000, devAddr, 1000); err != nil {
		t.Fatalf("SetExtraFunds: %v", err)
	}
}

func TestSetPremiumThresholdBounds(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	// The lower bound compares the plain percent against the 18-decimal
	// ceiling, so every candidate below the ceiling is rejected.
	if err := f.engine.SetPremiumThreshold(operatorAddr, 120); err == nil {
		t.Fatal("expected rejection below price ceiling")
	}
	if got := f.engine.Params().Price.PremiumThreshold; got != 110 {
		t.Fatalf("threshold = %d, want prior 110", got)
	}
}

func TestTransferOperator(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	next := common.HexToAddress("0x0000000000000000000000000000000000000a02")
	if err := f.engine.TransferOperator(operatorAddr, common.Address{}); !errors.Is(err, ErrZeroAddress) {
		t.Fatalf("zero operator = %v", err)
	}
	if err := f.engine.TransferOperator(operatorAddr, next); err != nil {
		t.Fatalf("TransferOperator: %v", err)
	}
	if err := f.engine.SetMaxDebtRatioBps(operatorAddr, 2000); !errors.Is(err, ErrNotOperator) {
		t.Fatal("old operator must lose access")
	}
	if err := f.engine.SetMaxDebtRatioBps(next, 2000); err != nil {
		t.Fatalf("new operator rejected: %v", err)
	}
}

func TestRecoverUnsupportedProtectsCoreTokens(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	stray := newFakeToken(engineAddr)
	stray.seed(engineAddr, units(5))
	strayAddr := common.HexToAddress("0x0000000000000000000000000000000000000105")

	for _, protected := range []common.Address{stableAddr, bondAddr, shareAddr} {
		if err := f.engine.RecoverUnsupported(operatorAddr, protected, stray, units(1), holderAddr); !errors.Is(err, ErrProtectedToken) {
			t.Fatalf("core token %s = %v, want ErrProtectedToken", protected.Hex(), err)
		}
	}
	if err := f.engine.RecoverUnsupported(operatorAddr, strayAddr, stray, units(5), holderAddr); err != nil {
		t.Fatalf("RecoverUnsupported: %v", err)
	}
	got, _ := stray.BalanceOf(holderAddr)
	if got.Cmp(units(5)) != 0 {
		t.Fatalf("recovered = %s, want 5 units", got)
	}
}

func TestBoardroomDelegation(t *testing.T) {
	f := newFixture(t)
	f.initialize(t)
	next := common.HexToAddress("0x0000000000000000000000000000000000000a03")
	if err := f.engine.BoardroomSetOperator(operatorAddr, next); err != nil {
		t.Fatalf("BoardroomSetOperator: %v", err)
	}
	if f.board.operator != next {
		t.Fatal("boardroom operator not rotated")
	}
	if err := f.engine.BoardroomSetLockUp(operatorAddr, 6, 3); err != nil {
		t.Fatalf("BoardroomSetLockUp: %v", err)
	}
	f.stable.seed(engineAddr, units(10))
	if err := f.engine.BoardroomAllocateSeigniorage(operatorAddr, units(10)); err != nil {
		t.Fatalf("BoardroomAllocateSeigniorage: %v", err)
	}
	if f.board.allocated.Cmp(units(10)) != 0 {
		t.Fatalf("allocated = %s, want 10 units", f.board.allocated)
	}
}
