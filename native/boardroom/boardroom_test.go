package boardroom

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"pegd/native/token"
	"pegd/storage"
)

var (
	roomAddr     = common.HexToAddress("0x0000000000000000000000000000000000000b0a")
	treasuryAddr = common.HexToAddress("0x00000000000000000000000000000000000000e7")
	memberA      = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	memberB      = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

func newRoom(t *testing.T) (*Room, *token.Ledger, *token.Ledger, storage.Database) {
	t.Helper()
	db := storage.NewMemDB()
	stable, err := token.Open(db, "PEG")
	if err != nil {
		t.Fatalf("open stable: %v", err)
	}
	share, err := token.Open(db, "PSHARE")
	if err != nil {
		t.Fatalf("open share: %v", err)
	}
	room, err := Open(Config{
		Self:     roomAddr,
		Treasury: treasuryAddr,
		Stable:   stable,
		Share:    share,
		DB:       db,
	})
	if err != nil {
		t.Fatalf("open room: %v", err)
	}
	return room, stable, share, db
}

func allocate(t *testing.T, room *Room, stable *token.Ledger, amount int64) {
	t.Helper()
	value := big.NewInt(amount)
	if _, err := stable.Mint(treasuryAddr, value); err != nil {
		t.Fatalf("mint allocation: %v", err)
	}
	if err := stable.ApproveFor(treasuryAddr, roomAddr, value); err != nil {
		t.Fatalf("approve allocation: %v", err)
	}
	if err := room.AllocateSeigniorage(value); err != nil {
		t.Fatalf("allocate: %v", err)
	}
}

func TestAllocationSplitsByStake(t *testing.T) {
	room, stable, share, _ := newRoom(t)
	for addr, amount := range map[common.Address]int64{memberA: 300, memberB: 100} {
		if _, err := share.Mint(addr, big.NewInt(amount)); err != nil {
			t.Fatalf("mint share: %v", err)
		}
		if err := room.Stake(addr, big.NewInt(amount)); err != nil {
			t.Fatalf("stake: %v", err)
		}
	}
	allocate(t, room, stable, 1000)

	if got := room.Earned(memberA); got.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("memberA earned = %s, want 750", got)
	}
	if got := room.Earned(memberB); got.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("memberB earned = %s, want 250", got)
	}

	paid, err := room.ClaimReward(memberA)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if paid.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("claimed = %s, want 750", paid)
	}
	balance, _ := stable.BalanceOf(memberA)
	if balance.Cmp(big.NewInt(750)) != 0 {
		t.Fatalf("memberA stable balance = %s, want 750", balance)
	}
	if got := room.Earned(memberA); got.Sign() != 0 {
		t.Fatalf("earned after claim = %s, want 0", got)
	}
}

func TestAllocationRequiresStakeAndAllowance(t *testing.T) {
	room, stable, share, _ := newRoom(t)
	if err := room.AllocateSeigniorage(big.NewInt(10)); !errors.Is(err, ErrNoMembers) {
		t.Fatalf("empty room err = %v, want ErrNoMembers", err)
	}

	if _, err := share.Mint(memberA, big.NewInt(50)); err != nil {
		t.Fatalf("mint share: %v", err)
	}
	if err := room.Stake(memberA, big.NewInt(50)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := stable.Mint(treasuryAddr, big.NewInt(10)); err != nil {
		t.Fatalf("mint stable: %v", err)
	}
	if err := room.AllocateSeigniorage(big.NewInt(10)); !errors.Is(err, token.ErrInsufficientAllowance) {
		t.Fatalf("no-allowance err = %v, want ErrInsufficientAllowance", err)
	}
}

func TestLockupsGateWithdrawAndReward(t *testing.T) {
	room, stable, share, _ := newRoom(t)
	if err := room.SetLockUp(4, 2); err != nil {
		t.Fatalf("set lockup: %v", err)
	}
	if _, err := share.Mint(memberA, big.NewInt(100)); err != nil {
		t.Fatalf("mint share: %v", err)
	}
	if err := room.Stake(memberA, big.NewInt(100)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	allocate(t, room, stable, 40)

	if err := room.Withdraw(memberA, big.NewInt(100)); !errors.Is(err, ErrLockedUp) {
		t.Fatalf("early withdraw err = %v, want ErrLockedUp", err)
	}
	if _, err := room.ClaimReward(memberA); !errors.Is(err, ErrLockedUp) {
		t.Fatalf("early claim err = %v, want ErrLockedUp", err)
	}

	room.AdvanceEpoch()
	room.AdvanceEpoch()
	if _, err := room.ClaimReward(memberA); err != nil {
		t.Fatalf("claim after reward lockup: %v", err)
	}
	if err := room.Withdraw(memberA, big.NewInt(100)); !errors.Is(err, ErrLockedUp) {
		t.Fatalf("withdraw before lockup err = %v, want ErrLockedUp", err)
	}

	room.AdvanceEpoch()
	room.AdvanceEpoch()
	if err := room.Withdraw(memberA, big.NewInt(100)); err != nil {
		t.Fatalf("withdraw after lockup: %v", err)
	}
	balance, _ := share.BalanceOf(memberA)
	if balance.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("share balance = %s, want 100", balance)
	}
}

func TestRoomPersistsAcrossOpen(t *testing.T) {
	room, stable, share, db := newRoom(t)
	if _, err := share.Mint(memberA, big.NewInt(60)); err != nil {
		t.Fatalf("mint share: %v", err)
	}
	if err := room.Stake(memberA, big.NewInt(60)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	allocate(t, room, stable, 30)

	reopened, err := Open(Config{
		Self:     roomAddr,
		Treasury: treasuryAddr,
		Stable:   stable,
		Share:    share,
		DB:       db,
	})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got, err := reopened.TotalStaked(); err != nil || got.Cmp(big.NewInt(60)) != 0 {
		t.Fatalf("total staked = %s (%v), want 60", got, err)
	}
	if got := reopened.Earned(memberA); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("earned = %s, want 30", got)
	}
	if err := reopened.RecoverUnsupported(memberB, big.NewInt(1), memberA); !errors.Is(err, ErrProtectedToken) {
		t.Fatalf("recover err = %v, want ErrProtectedToken", err)
	}
}
