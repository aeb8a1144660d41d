package treasury

import (
	"math/big"

	"github.com/holiman/uint256"
)

// priceOne is one stable unit in 18-decimal fixed point.
var priceOne = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

const bpsDenominator = 10_000

// PriceConfig holds the peg band and the bond exchange curve parameters. Peg
// and Ceiling are 18-decimal fixed-point prices; the percent fields are basis
// points except PremiumThreshold which is a plain percent (110 = 1.10 peg).
type PriceConfig struct {
	Peg              *big.Int
	Ceiling          *big.Int
	PremiumThreshold uint64
	DiscountBps      uint64
	PremiumBps       uint64
	MaxDiscountRate  *big.Int
	MaxPremiumRate   *big.Int
}

func toU256(v *big.Int) (*uint256.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, ErrArithmetic
	}
	u, overflow := uint256.FromBig(v)
	if overflow {
		return nil, ErrArithmetic
	}
	return u, nil
}

func mulU64(a *uint256.Int, b uint64) (*uint256.Int, error) {
	out, overflow := new(uint256.Int).MulOverflow(a, uint256.NewInt(b))
	if overflow {
		return nil, ErrArithmetic
	}
	return out, nil
}

// DiscountRate computes the stable-to-bond exchange rate for a contraction
// phase purchase. The rate is zero whenever the price is at or above the peg;
// a zero rate marks the purchase ineligible. Division truncates toward zero.
func (c PriceConfig) DiscountRate(price *big.Int) (*big.Int, error) {
	if price == nil || c.Peg == nil || price.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	if price.Cmp(c.Peg) >= 0 {
		return big.NewInt(0), nil
	}
	peg, err := toU256(c.Peg)
	if err != nil {
		return nil, err
	}
	if c.DiscountBps == 0 {
		// No-discount curve: a fixed 2x-peg rate regardless of depth.
		rate, err := mulU64(peg, 2)
		if err != nil {
			return nil, err
		}
		return rate.ToBig(), nil
	}
	spot, err := toU256(price)
	if err != nil {
		return nil, err
	}
	one, err := toU256(priceOne)
	if err != nil {
		return nil, err
	}
	// Bonds burned to restore one unit of peg value at the current price.
	bondsToBurn, overflow := new(uint256.Int).MulOverflow(peg, one)
	if overflow {
		return nil, ErrArithmetic
	}
	bondsToBurn.Div(bondsToBurn, spot)
	// bondsToBurn < peg wraps for pegs above one unit; the curve has no
	// meaning there, so refuse rather than quote a wrapped rate.
	discount, underflow := new(uint256.Int).SubOverflow(bondsToBurn, peg)
	if underflow {
		return nil, ErrArithmetic
	}
	discount, err = mulU64(discount, c.DiscountBps)
	if err != nil {
		return nil, err
	}
	discount.Div(discount, uint256.NewInt(bpsDenominator))
	rate := new(uint256.Int).Add(peg, discount)
	rate, err = mulU64(rate, 2)
	if err != nil {
		return nil, err
	}
	out := rate.ToBig()
	if c.MaxDiscountRate != nil && c.MaxDiscountRate.Sign() > 0 && out.Cmp(c.MaxDiscountRate) > 0 {
		out = new(big.Int).Set(c.MaxDiscountRate)
	}
	return out, nil
}

// PremiumRate computes the bond-to-stable exchange rate for an expansion phase
// redemption. The rate is zero whenever the price is at or below the ceiling.
// Below the premium threshold the redemption pays a flat 2x-peg rate with no
// bonus.
func (c PriceConfig) PremiumRate(price *big.Int) (*big.Int, error) {
	if price == nil || c.Peg == nil || c.Ceiling == nil {
		return big.NewInt(0), nil
	}
	if price.Cmp(c.Ceiling) <= 0 {
		return big.NewInt(0), nil
	}
	peg, err := toU256(c.Peg)
	if err != nil {
		return nil, err
	}
	threshold, err := mulU64(peg, c.PremiumThreshold)
	if err != nil {
		return nil, err
	}
	threshold.Div(threshold, uint256.NewInt(100))
	spot, err := toU256(price)
	if err != nil {
		return nil, err
	}
	if spot.Cmp(threshold) < 0 {
		rate, err := mulU64(peg, 2)
		if err != nil {
			return nil, err
		}
		return rate.ToBig(), nil
	}
	// spot > ceiling >= peg under the engine's parameter band; a directly
	// built config with an inverted band must not wrap.
	premium, underflow := new(uint256.Int).SubOverflow(spot, peg)
	if underflow {
		return nil, ErrArithmetic
	}
	premium, err = mulU64(premium, c.PremiumBps)
	if err != nil {
		return nil, err
	}
	premium.Div(premium, uint256.NewInt(bpsDenominator))
	rate := new(uint256.Int).Add(peg, premium)
	rate, err = mulU64(rate, 2)
	if err != nil {
		return nil, err
	}
	out := rate.ToBig()
	if c.MaxPremiumRate != nil && c.MaxPremiumRate.Cmp(c.Peg) > 0 && out.Cmp(c.MaxPremiumRate) > 0 {
		out = new(big.Int).Set(c.MaxPremiumRate)
	}
	return out, nil
}

// clone returns a deep copy so reads never alias engine-owned values.
func (c PriceConfig) clone() PriceConfig {
	out := PriceConfig{
		PremiumThreshold: c.PremiumThreshold,
		DiscountBps:      c.DiscountBps,
		PremiumBps:       c.PremiumBps,
	}
	if c.Peg != nil {
		out.Peg = new(big.Int).Set(c.Peg)
	}
	if c.Ceiling != nil {
		out.Ceiling = new(big.Int).Set(c.Ceiling)
	}
	if c.MaxDiscountRate != nil {
		out.MaxDiscountRate = new(big.Int).Set(c.MaxDiscountRate)
	}
	if c.MaxPremiumRate != nil {
		out.MaxPremiumRate = new(big.Int).Set(c.MaxPremiumRate)
	}
	return out
}
