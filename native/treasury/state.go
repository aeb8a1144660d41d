package treasury

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PolicyState is the engine-owned mutable policy record. It is created exactly
// once by Initialize and mutated only through the guarded operations; the
// epoch counter never decreases and the saved seigniorage never goes negative.
type PolicyState struct {
	Operator                   common.Address
	Initialized                bool
	StartTime                  time.Time
	Epoch                      uint64
	EpochSupplyContractionLeft *big.Int
	SeigniorageSaved           *big.Int
	PreviousEpochPrice         *big.Int
	BootstrapEpochs            uint64
	BootstrapExpansionBps      uint64
}

func newPolicyState() *PolicyState {
	return &PolicyState{
		EpochSupplyContractionLeft: big.NewInt(0),
		SeigniorageSaved:           big.NewInt(0),
		PreviousEpochPrice:         big.NewInt(0),
	}
}

// FundConfig routes seigniorage shares to the dao and dev funds. Percents are
// basis points of each distribution; the boardroom receives the remainder.
type FundConfig struct {
	DaoFund common.Address
	DaoBps  uint64
	DevFund common.Address
	DevBps  uint64
}

// CapConfig gathers the solvency and quota bounds enforced by the allocator
// and the bond market. All values are basis points.
type CapConfig struct {
	MaxSupplyExpansionBps         uint64
	BondDepletionFloorBps         uint64
	SeigniorageExpansionFloorBps  uint64
	MaxSupplyContractionBps       uint64
	MaxDebtRatioBps               uint64
	MintingFactorForPayingDebtBps uint64
}

// Params is the full governance-tunable surface.
type Params struct {
	Price PriceConfig
	Caps  CapConfig
	Funds FundConfig
}

func defaultParams(peg *big.Int) Params {
	pegCopy := new(big.Int).Set(peg)
	ceiling := new(big.Int).Mul(pegCopy, big.NewInt(101))
	ceiling.Div(ceiling, big.NewInt(100))
	return Params{
		Price: PriceConfig{
			Peg:              pegCopy,
			Ceiling:          ceiling,
			PremiumThreshold: 110,
			DiscountBps:      0,
			PremiumBps:       7000,
		},
		Caps: CapConfig{
			MaxSupplyExpansionBps:         400,
			BondDepletionFloorBps:         10_000,
			SeigniorageExpansionFloorBps:  3_500,
			MaxSupplyContractionBps:       300,
			MaxDebtRatioBps:               3_500,
			MintingFactorForPayingDebtBps: 10_000,
		},
	}
}
