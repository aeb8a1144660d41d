package treasury

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"pegd/observability/metrics"
)

// oracleAdapter wraps the oracle collaborator with the engine's failure
// policy: consultations fail fast, refreshes are best effort.
type oracleAdapter struct {
	oracle    Oracle
	asset     common.Address
	unit      *big.Int
	log       *slog.Logger
	telemetry *metrics.TreasuryMetrics
}

func newOracleAdapter(oracle Oracle, asset common.Address, log *slog.Logger) *oracleAdapter {
	return &oracleAdapter{
		oracle:    oracle,
		asset:     asset,
		unit:      new(big.Int).Set(priceOne),
		log:       log,
		telemetry: metrics.Treasury(),
	}
}

// Spot returns the current spot price or a wrapped consultation failure.
func (o *oracleAdapter) Spot() (*big.Int, error) {
	price, err := o.oracle.Consult(o.asset, o.unit)
	if err != nil {
		o.telemetry.IncOracleFailure("consult")
		return nil, fmt.Errorf("%w: %v", ErrPriceConsultFailed, err)
	}
	return price, nil
}

// TWAP returns the time-weighted average price or a wrapped consultation failure.
func (o *oracleAdapter) TWAP() (*big.Int, error) {
	price, err := o.oracle.ConsultTWAP(o.asset, o.unit)
	if err != nil {
		o.telemetry.IncOracleFailure("consultTwap")
		return nil, fmt.Errorf("%w: %v", ErrPriceConsultFailed, err)
	}
	return price, nil
}

// RefreshBestEffort asks the oracle to update its accumulator. Failures are
// swallowed: freshness is advisory and must not abort the surrounding
// operation. This is the only call site where a collaborator failure is
// intentionally ignored.
func (o *oracleAdapter) RefreshBestEffort() {
	if err := o.oracle.Update(); err != nil {
		o.telemetry.IncOracleFailure("update")
		if o.log != nil {
			o.log.Debug("oracle refresh failed", slog.Any("error", err))
		}
	}
}
