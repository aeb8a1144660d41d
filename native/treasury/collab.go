package treasury

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Token is the narrow view the engine holds over the stable, bond and share
// assets. Mint reports an explicit success flag alongside the transport error
// so a collaborator refusing the mint aborts the surrounding operation.
type Token interface {
	Mint(to common.Address, amount *big.Int) (bool, error)
	BurnFrom(holder common.Address, amount *big.Int) error
	Transfer(to common.Address, amount *big.Int) error
	Approve(spender common.Address, amount *big.Int) error
	BalanceOf(addr common.Address) (*big.Int, error)
	TotalSupply() (*big.Int, error)
	Operator() (common.Address, error)
}

// Oracle resolves the stable asset's price. Consult returns the spot price and
// ConsultTWAP the time-weighted average, both scaled to 18 decimals for the
// supplied unit amount. Update refreshes the oracle's accumulator; the engine
// treats its failure as advisory.
type Oracle interface {
	Consult(asset common.Address, unit *big.Int) (*big.Int, error)
	ConsultTWAP(asset common.Address, unit *big.Int) (*big.Int, error)
	Update() error
}

// Boardroom is the staking collaborator receiving allocated seigniorage. The
// engine consults TotalStaked before minting an allocation; the administrative
// methods are pass-throughs exposed via the parameter store.
type Boardroom interface {
	AllocateSeigniorage(amount *big.Int) error
	TotalStaked() (*big.Int, error)
	SetOperator(addr common.Address) error
	SetLockUp(withdrawLockupEpochs, rewardLockupEpochs uint64) error
	RecoverUnsupported(token common.Address, amount *big.Int, to common.Address) error
	Operator() (common.Address, error)
}
