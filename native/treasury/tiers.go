package treasury

import (
	"fmt"
	"math/big"
)

// TierCount fixes the number of supply tiers in the expansion table.
const TierCount = 9

const (
	minTierExpansionBps = 10
	maxTierExpansionBps = 1000
)

// Tier pairs a circulating-supply threshold with the expansion ceiling that
// applies once the supply reaches it.
type Tier struct {
	Threshold       *big.Int
	MaxExpansionBps uint64
}

// TierTable is the ordered supply tier ladder. Thresholds are strictly
// increasing; a lookup selects the highest tier whose threshold is at or below
// the supplied circulating supply.
type TierTable struct {
	tiers [TierCount]Tier
}

// NewTierTable validates and adopts the supplied ladder.
func NewTierTable(tiers []Tier) (*TierTable, error) {
	if len(tiers) != TierCount {
		return nil, fmt.Errorf("treasury: tier table requires %d entries, got %d", TierCount, len(tiers))
	}
	table := &TierTable{}
	var prev *big.Int
	for i, tier := range tiers {
		if tier.Threshold == nil || tier.Threshold.Sign() < 0 {
			return nil, fmt.Errorf("treasury: tier %d threshold must be non-negative", i)
		}
		if prev != nil && tier.Threshold.Cmp(prev) <= 0 {
			return nil, fmt.Errorf("treasury: tier %d threshold must exceed tier %d", i, i-1)
		}
		if tier.MaxExpansionBps < minTierExpansionBps || tier.MaxExpansionBps > maxTierExpansionBps {
			return nil, fmt.Errorf("treasury: tier %d expansion out of [%d,%d] bps", i, minTierExpansionBps, maxTierExpansionBps)
		}
		table.tiers[i] = Tier{
			Threshold:       new(big.Int).Set(tier.Threshold),
			MaxExpansionBps: tier.MaxExpansionBps,
		}
		prev = tier.Threshold
	}
	return table, nil
}

// DefaultTierTable returns the launch ladder: thresholds in whole stable units
// scaled to 18 decimals, expansion ceilings tapering from 4.5% to 1%.
func DefaultTierTable() *TierTable {
	thresholds := []int64{0, 500_000, 1_000_000, 1_500_000, 2_000_000, 5_000_000, 10_000_000, 20_000_000, 50_000_000}
	expansions := []uint64{450, 400, 350, 300, 250, 200, 150, 125, 100}
	tiers := make([]Tier, TierCount)
	for i := range tiers {
		tiers[i] = Tier{
			Threshold:       new(big.Int).Mul(big.NewInt(thresholds[i]), priceOne),
			MaxExpansionBps: expansions[i],
		}
	}
	table, err := NewTierTable(tiers)
	if err != nil {
		panic(err)
	}
	return table
}

// Lookup scans from the highest threshold downward and returns the first tier
// whose threshold is at or below supply. A supply below every threshold maps
// to the lowest tier.
func (t *TierTable) Lookup(supply *big.Int) Tier {
	if supply == nil {
		supply = big.NewInt(0)
	}
	for i := TierCount - 1; i >= 0; i-- {
		if t.tiers[i].Threshold.Cmp(supply) <= 0 {
			return t.copyTier(i)
		}
	}
	return t.copyTier(0)
}

// SetThreshold replaces one threshold. The new value must sit strictly between
// the neighboring tiers so the ladder stays ordered.
func (t *TierTable) SetThreshold(index int, value *big.Int) error {
	if index < 0 || index >= TierCount {
		return fmt.Errorf("treasury: tier index %d out of range", index)
	}
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("treasury: tier threshold must be non-negative")
	}
	if index > 0 && value.Cmp(t.tiers[index-1].Threshold) <= 0 {
		return fmt.Errorf("treasury: tier %d threshold must exceed tier %d", index, index-1)
	}
	if index < TierCount-1 && value.Cmp(t.tiers[index+1].Threshold) >= 0 {
		return fmt.Errorf("treasury: tier %d threshold must stay below tier %d", index, index+1)
	}
	t.tiers[index].Threshold = new(big.Int).Set(value)
	return nil
}

// SetMaxExpansion replaces one tier's expansion ceiling.
func (t *TierTable) SetMaxExpansion(index int, bps uint64) error {
	if index < 0 || index >= TierCount {
		return fmt.Errorf("treasury: tier index %d out of range", index)
	}
	if bps < minTierExpansionBps || bps > maxTierExpansionBps {
		return fmt.Errorf("treasury: tier expansion out of [%d,%d] bps", minTierExpansionBps, maxTierExpansionBps)
	}
	t.tiers[index].MaxExpansionBps = bps
	return nil
}

// Tiers returns a defensive copy of the ladder.
func (t *TierTable) Tiers() []Tier {
	out := make([]Tier, TierCount)
	for i := range t.tiers {
		out[i] = t.copyTier(i)
	}
	return out
}

func (t *TierTable) copyTier(i int) Tier {
	return Tier{
		Threshold:       new(big.Int).Set(t.tiers[i].Threshold),
		MaxExpansionBps: t.tiers[i].MaxExpansionBps,
	}
}
