package treasury

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"pegd/storage"
)

var stateKey = []byte("treasury/state")

// StateStore persists policy snapshots so a restarted daemon resumes from the
// epoch it left off rather than re-running the bootstrap phase.
type StateStore struct {
	db storage.Database
}

// NewStateStore wraps the supplied database.
func NewStateStore(db storage.Database) *StateStore {
	return &StateStore{db: db}
}

type tierSnapshot struct {
	Threshold       string `json:"threshold"`
	MaxExpansionBps uint64 `json:"maxExpansionBps"`
}

type snapshot struct {
	Operator                   string         `json:"operator"`
	Initialized                bool           `json:"initialized"`
	StartTime                  int64          `json:"startTime"`
	Epoch                      uint64         `json:"epoch"`
	EpochSupplyContractionLeft string         `json:"epochSupplyContractionLeft"`
	SeigniorageSaved           string         `json:"seigniorageSaved"`
	PreviousEpochPrice         string         `json:"previousEpochPrice"`
	BootstrapEpochs            uint64         `json:"bootstrapEpochs"`
	BootstrapExpansionBps      uint64         `json:"bootstrapExpansionBps"`
	Peg                        string         `json:"peg"`
	Ceiling                    string         `json:"ceiling"`
	PremiumThreshold           uint64         `json:"premiumThreshold"`
	DiscountBps                uint64         `json:"discountBps"`
	PremiumBps                 uint64         `json:"premiumBps"`
	MaxDiscountRate            string         `json:"maxDiscountRate,omitempty"`
	MaxPremiumRate             string         `json:"maxPremiumRate,omitempty"`
	Caps                       CapConfig      `json:"caps"`
	DaoFund                    string         `json:"daoFund"`
	DaoBps                     uint64         `json:"daoBps"`
	DevFund                    string         `json:"devFund"`
	DevBps                     uint64         `json:"devBps"`
	Tiers                      []tierSnapshot `json:"tiers"`
}

func encodeAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func decodeAmount(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	out, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("treasury: invalid stored amount %q", s)
	}
	return out, nil
}

// Save writes the full mutable policy surface.
func (s *StateStore) Save(state *PolicyState, params Params, tiers *TierTable) error {
	snap := snapshot{
		Operator:                   state.Operator.Hex(),
		Initialized:                state.Initialized,
		StartTime:                  state.StartTime.Unix(),
		Epoch:                      state.Epoch,
		EpochSupplyContractionLeft: encodeAmount(state.EpochSupplyContractionLeft),
		SeigniorageSaved:           encodeAmount(state.SeigniorageSaved),
		PreviousEpochPrice:         encodeAmount(state.PreviousEpochPrice),
		BootstrapEpochs:            state.BootstrapEpochs,
		BootstrapExpansionBps:      state.BootstrapExpansionBps,
		Peg:                        encodeAmount(params.Price.Peg),
		Ceiling:                    encodeAmount(params.Price.Ceiling),
		PremiumThreshold:           params.Price.PremiumThreshold,
		DiscountBps:                params.Price.DiscountBps,
		PremiumBps:                 params.Price.PremiumBps,
		Caps:                       params.Caps,
		DaoFund:                    params.Funds.DaoFund.Hex(),
		DaoBps:                     params.Funds.DaoBps,
		DevFund:                    params.Funds.DevFund.Hex(),
		DevBps:                     params.Funds.DevBps,
	}
	if params.Price.MaxDiscountRate != nil {
		snap.MaxDiscountRate = params.Price.MaxDiscountRate.String()
	}
	if params.Price.MaxPremiumRate != nil {
		snap.MaxPremiumRate = params.Price.MaxPremiumRate.String()
	}
	for _, tier := range tiers.Tiers() {
		snap.Tiers = append(snap.Tiers, tierSnapshot{
			Threshold:       encodeAmount(tier.Threshold),
			MaxExpansionBps: tier.MaxExpansionBps,
		})
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.db.Put(stateKey, raw)
}

// Load reads the stored snapshot. The boolean reports whether one existed.
func (s *StateStore) Load() (*PolicyState, *Params, *TierTable, bool, error) {
	raw, err := s.db.Get(stateKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil, nil, false, nil
	}
	if err != nil {
		return nil, nil, nil, false, err
	}
	var snap snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, nil, nil, false, err
	}

	state := newPolicyState()
	state.Operator = common.HexToAddress(snap.Operator)
	state.Initialized = snap.Initialized
	state.StartTime = time.Unix(snap.StartTime, 0).UTC()
	state.Epoch = snap.Epoch
	state.BootstrapEpochs = snap.BootstrapEpochs
	state.BootstrapExpansionBps = snap.BootstrapExpansionBps
	if state.EpochSupplyContractionLeft, err = decodeAmount(snap.EpochSupplyContractionLeft); err != nil {
		return nil, nil, nil, false, err
	}
	if state.SeigniorageSaved, err = decodeAmount(snap.SeigniorageSaved); err != nil {
		return nil, nil, nil, false, err
	}
	if state.PreviousEpochPrice, err = decodeAmount(snap.PreviousEpochPrice); err != nil {
		return nil, nil, nil, false, err
	}

	params := &Params{
		Price: PriceConfig{
			PremiumThreshold: snap.PremiumThreshold,
			DiscountBps:      snap.DiscountBps,
			PremiumBps:       snap.PremiumBps,
		},
		Caps: snap.Caps,
		Funds: FundConfig{
			DaoFund: common.HexToAddress(snap.DaoFund),
			DaoBps:  snap.DaoBps,
			DevFund: common.HexToAddress(snap.DevFund),
			DevBps:  snap.DevBps,
		},
	}
	if params.Price.Peg, err = decodeAmount(snap.Peg); err != nil {
		return nil, nil, nil, false, err
	}
	if params.Price.Ceiling, err = decodeAmount(snap.Ceiling); err != nil {
		return nil, nil, nil, false, err
	}
	if snap.MaxDiscountRate != "" {
		if params.Price.MaxDiscountRate, err = decodeAmount(snap.MaxDiscountRate); err != nil {
			return nil, nil, nil, false, err
		}
	}
	if snap.MaxPremiumRate != "" {
		if params.Price.MaxPremiumRate, err = decodeAmount(snap.MaxPremiumRate); err != nil {
			return nil, nil, nil, false, err
		}
	}

	tiers := make([]Tier, 0, len(snap.Tiers))
	for _, entry := range snap.Tiers {
		threshold, err := decodeAmount(entry.Threshold)
		if err != nil {
			return nil, nil, nil, false, err
		}
		tiers = append(tiers, Tier{Threshold: threshold, MaxExpansionBps: entry.MaxExpansionBps})
	}
	table, err := NewTierTable(tiers)
	if err != nil {
		return nil, nil, nil, false, err
	}
	return state, params, table, true, nil
}
