package treasury

import (
	"errors"
	"math/big"
	"testing"
)

func TestDiscountRateNoDiscountCurve(t *testing.T) {
	cfg := PriceConfig{Peg: scaled(5, 17)}
	// price 0.4, peg 0.5: flat 2x-peg rate independent of depth.
	rate, err := cfg.DiscountRate(scaled(4, 17))
	if err != nil {
		t.Fatalf("DiscountRate: %v", err)
	}
	if rate.Cmp(priceOne) != 0 {
		t.Fatalf("rate = %s, want %s", rate, priceOne)
	}
	deeper, err := cfg.DiscountRate(scaled(1, 17))
	if err != nil {
		t.Fatalf("DiscountRate: %v", err)
	}
	if deeper.Cmp(rate) != 0 {
		t.Fatalf("rate should not depend on price when discount is disabled")
	}
}

func TestDiscountRateIneligibleAtOrAbovePeg(t *testing.T) {
	cfg := PriceConfig{Peg: new(big.Int).Set(priceOne), DiscountBps: 5000}
	for _, price := range []*big.Int{new(big.Int).Set(priceOne), scaled(11, 17)} {
		rate, err := cfg.DiscountRate(price)
		if err != nil {
			t.Fatalf("DiscountRate(%s): %v", price, err)
		}
		if rate.Sign() != 0 {
			t.Fatalf("rate = %s for price %s, want 0", rate, price)
		}
	}
}

func TestDiscountRateCurveAndClamp(t *testing.T) {
	cfg := PriceConfig{Peg: new(big.Int).Set(priceOne), DiscountBps: 10_000}
	// price 0.8: bonds to burn one unit = 1.25, discount = 0.25, rate = 2.5.
	rate, err := cfg.DiscountRate(scaled(8, 17))
	if err != nil {
		t.Fatalf("DiscountRate: %v", err)
	}
	if want := scaled(25, 17); rate.Cmp(want) != 0 {
		t.Fatalf("rate = %s, want %s", rate, want)
	}

	cfg.MaxDiscountRate = scaled(2, 18)
	clamped, err := cfg.DiscountRate(scaled(8, 17))
	if err != nil {
		t.Fatalf("DiscountRate: %v", err)
	}
	if clamped.Cmp(cfg.MaxDiscountRate) != 0 {
		t.Fatalf("clamped rate = %s, want %s", clamped, cfg.MaxDiscountRate)
	}
}

func TestPremiumRateBelowThresholdPaysFlat(t *testing.T) {
	// peg 0.5, ceiling 0.505, threshold price 0.55: price 0.52 pays 2x peg.
	cfg := PriceConfig{
		Peg:              scaled(5, 17),
		Ceiling:          scaled(505, 15),
		PremiumThreshold: 110,
		PremiumBps:       7000,
	}
	rate, err := cfg.PremiumRate(scaled(52, 16))
	if err != nil {
		t.Fatalf("PremiumRate: %v", err)
	}
	if rate.Cmp(priceOne) != 0 {
		t.Fatalf("rate = %s, want %s", rate, priceOne)
	}
}

func TestPremiumRateIneligibleAtOrBelowCeiling(t *testing.T) {
	cfg := PriceConfig{
		Peg:              new(big.Int).Set(priceOne),
		Ceiling:          scaled(101, 16),
		PremiumThreshold: 110,
		PremiumBps:       7000,
	}
	for _, price := range []*big.Int{new(big.Int).Set(priceOne), scaled(101, 16)} {
		rate, err := cfg.PremiumRate(price)
		if err != nil {
			t.Fatalf("PremiumRate(%s): %v", price, err)
		}
		if rate.Sign() != 0 {
			t.Fatalf("rate = %s for price %s, want 0", rate, price)
		}
	}
}

func TestPremiumRateCurveAndClamp(t *testing.T) {
	cfg := PriceConfig{
		Peg:              new(big.Int).Set(priceOne),
		Ceiling:          scaled(101, 16),
		PremiumThreshold: 110,
		PremiumBps:       7000,
	}
	// price 1.2 is past the 1.1 threshold: premium = 0.2*0.7 = 0.14, rate = 2.28.
	rate, err := cfg.PremiumRate(scaled(12, 17))
	if err != nil {
		t.Fatalf("PremiumRate: %v", err)
	}
	if want := scaled(228, 16); rate.Cmp(want) != 0 {
		t.Fatalf("rate = %s, want %s", rate, want)
	}

	cfg.MaxPremiumRate = scaled(21, 17)
	clamped, err := cfg.PremiumRate(scaled(12, 17))
	if err != nil {
		t.Fatalf("PremiumRate: %v", err)
	}
	if clamped.Cmp(cfg.MaxPremiumRate) != 0 {
		t.Fatalf("clamped rate = %s, want %s", clamped, cfg.MaxPremiumRate)
	}

	// A cap at or below peg never clamps.
	cfg.MaxPremiumRate = scaled(5, 17)
	unclamped, err := cfg.PremiumRate(scaled(12, 17))
	if err != nil {
		t.Fatalf("PremiumRate: %v", err)
	}
	if want := scaled(228, 16); unclamped.Cmp(want) != 0 {
		t.Fatalf("rate = %s, want %s", unclamped, want)
	}
}

func TestDiscountRateRefusesShallowDepthAboveUnitPeg(t *testing.T) {
	// peg 2.0, price 1.5: bonds to burn one peg unit (1.33) land below the
	// peg itself, so no discount curve exists at this depth.
	cfg := PriceConfig{Peg: scaled(2, 18), DiscountBps: 1}
	if _, err := cfg.DiscountRate(scaled(15, 17)); !errors.Is(err, ErrArithmetic) {
		t.Fatalf("err = %v, want ErrArithmetic", err)
	}
	// A deep depression under the same peg still quotes normally:
	// bondsToBurn = 4.0, discount = 2.0*1bp, rate = 2*(2.0 + 0.0002).
	rate, err := cfg.DiscountRate(scaled(5, 17))
	if err != nil {
		t.Fatalf("DiscountRate: %v", err)
	}
	if want := scaled(40004, 14); rate.Cmp(want) != 0 {
		t.Fatalf("rate = %s, want %s", rate, want)
	}
}

func TestRateDivisionTruncates(t *testing.T) {
	cfg := PriceConfig{Peg: new(big.Int).Set(priceOne), DiscountBps: 3}
	price := scaled(9, 17)
	rate, err := cfg.DiscountRate(price)
	if err != nil {
		t.Fatalf("DiscountRate: %v", err)
	}
	// bondsToBurn = 10/9 truncated, discount = diff*3/10000 truncated.
	bonds := new(big.Int).Mul(priceOne, priceOne)
	bonds.Div(bonds, price)
	discount := new(big.Int).Sub(bonds, priceOne)
	discount.Mul(discount, big.NewInt(3))
	discount.Div(discount, big.NewInt(10_000))
	want := new(big.Int).Add(priceOne, discount)
	want.Mul(want, big.NewInt(2))
	if rate.Cmp(want) != 0 {
		t.Fatalf("rate = %s, want %s", rate, want)
	}
}
