package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// TypeTreasuryInitialized is emitted once when the policy state is created.
	TypeTreasuryInitialized = "treasury.initialized"
	// TypeBoughtBonds is emitted when a holder exchanges stable supply for bonds.
	TypeBoughtBonds = "treasury.bonds.bought"
	// TypeRedeemedBonds is emitted when a holder redeems bonds for stable supply.
	TypeRedeemedBonds = "treasury.bonds.redeemed"
	// TypeTreasuryFunded is emitted when seigniorage is retained as bond reserve.
	TypeTreasuryFunded = "treasury.funded"
	// TypeBoardroomFunded is emitted when seigniorage is allocated to the boardroom.
	TypeBoardroomFunded = "treasury.boardroom.funded"
	// TypeDaoFundFunded is emitted when the dao fund receives its share.
	TypeDaoFundFunded = "treasury.daofund.funded"
	// TypeDevFundFunded is emitted when the dev fund receives its share.
	TypeDevFundFunded = "treasury.devfund.funded"
)

func amountAttr(attrs map[string]string, key string, amount *big.Int) {
	value := big.NewInt(0)
	if amount != nil {
		value = amount
	}
	attrs[key] = value.String()
}

// TreasuryInitialized records the epoch start parameters chosen at creation.
type TreasuryInitialized struct {
	Operator  common.Address
	StartTime int64
}

func (TreasuryInitialized) EventType() string { return TypeTreasuryInitialized }

// Attributes renders the event payload.
func (e TreasuryInitialized) Attributes() map[string]string {
	return map[string]string{
		"operator":  e.Operator.Hex(),
		"startTime": strconv.FormatInt(e.StartTime, 10),
	}
}

// BoughtBonds captures a contraction-phase bond purchase.
type BoughtBonds struct {
	Buyer        common.Address
	StableAmount *big.Int
	BondAmount   *big.Int
}

func (BoughtBonds) EventType() string { return TypeBoughtBonds }

// Attributes renders the event payload.
func (e BoughtBonds) Attributes() map[string]string {
	attrs := map[string]string{"buyer": e.Buyer.Hex()}
	amountAttr(attrs, "stableAmount", e.StableAmount)
	amountAttr(attrs, "bondAmount", e.BondAmount)
	return attrs
}

// RedeemedBonds captures an expansion-phase bond redemption.
type RedeemedBonds struct {
	Redeemer     common.Address
	BondAmount   *big.Int
	StableAmount *big.Int
}

func (RedeemedBonds) EventType() string { return TypeRedeemedBonds }

// Attributes renders the event payload.
func (e RedeemedBonds) Attributes() map[string]string {
	attrs := map[string]string{"redeemer": e.Redeemer.Hex()}
	amountAttr(attrs, "bondAmount", e.BondAmount)
	amountAttr(attrs, "stableAmount", e.StableAmount)
	return attrs
}

// TreasuryFunded records seigniorage minted into the treasury's own reserve.
type TreasuryFunded struct {
	Timestamp int64
	Amount    *big.Int
}

func (TreasuryFunded) EventType() string { return TypeTreasuryFunded }

// Attributes renders the event payload.
func (e TreasuryFunded) Attributes() map[string]string {
	attrs := map[string]string{"timestamp": strconv.FormatInt(e.Timestamp, 10)}
	amountAttr(attrs, "amount", e.Amount)
	return attrs
}

// BoardroomFunded records seigniorage routed to the boardroom for stakers.
type BoardroomFunded struct {
	Timestamp int64
	Amount    *big.Int
}

func (BoardroomFunded) EventType() string { return TypeBoardroomFunded }

// Attributes renders the event payload.
func (e BoardroomFunded) Attributes() map[string]string {
	attrs := map[string]string{"timestamp": strconv.FormatInt(e.Timestamp, 10)}
	amountAttr(attrs, "amount", e.Amount)
	return attrs
}

// DaoFundFunded records the dao fund share of a seigniorage distribution.
type DaoFundFunded struct {
	Timestamp int64
	Amount    *big.Int
}

func (DaoFundFunded) EventType() string { return TypeDaoFundFunded }

// Attributes renders the event payload.
func (e DaoFundFunded) Attributes() map[string]string {
	attrs := map[string]string{"timestamp": strconv.FormatInt(e.Timestamp, 10)}
	amountAttr(attrs, "amount", e.Amount)
	return attrs
}

// DevFundFunded records the dev fund share of a seigniorage distribution.
type DevFundFunded struct {
	Timestamp int64
	Amount    *big.Int
}

func (DevFundFunded) EventType() string { return TypeDevFundFunded }

// Attributes renders the event payload.
func (e DevFundFunded) Attributes() map[string]string {
	attrs := map[string]string{"timestamp": strconv.FormatInt(e.Timestamp, 10)}
	amountAttr(attrs, "amount", e.Amount)
	return attrs
}
