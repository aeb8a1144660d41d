package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"pegd/config"
	"pegd/native/boardroom"
	"pegd/native/pricefeed"
	"pegd/native/token"
	"pegd/native/treasury"
	"pegd/observability/logging"
	"pegd/rpc"
	"pegd/storage"
)

func main() {
	configFile := flag.String("config", "./pegd.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("PEGD_ENV"))
	logger := logging.Setup("pegd", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	treasuryAddr := common.HexToAddress(cfg.TreasuryAddress)
	operatorAddr := common.HexToAddress(cfg.OperatorAddress)

	stable, err := openLedger(db, "PEG", treasuryAddr)
	if err != nil {
		panic(fmt.Sprintf("Failed to open stable ledger: %v", err))
	}
	bond, err := openLedger(db, "BPEG", treasuryAddr)
	if err != nil {
		panic(fmt.Sprintf("Failed to open bond ledger: %v", err))
	}
	share, err := openLedger(db, "PSHARE", treasuryAddr)
	if err != nil {
		panic(fmt.Sprintf("Failed to open share ledger: %v", err))
	}

	room, err := boardroom.Open(boardroom.Config{
		Self:                 common.HexToAddress(cfg.BoardroomAddress),
		Treasury:             treasuryAddr,
		Stable:               stable,
		Share:                share,
		DB:                   db,
		WithdrawLockupEpochs: cfg.Boardroom.WithdrawLockupEpochs,
		RewardLockupEpochs:   cfg.Boardroom.RewardLockupEpochs,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to open boardroom: %v", err))
	}

	feed := pricefeed.NewFeed("PEG", "USD",
		pricefeed.WithMaxAge(cfg.Oracle.MaxQuoteAge()),
		pricefeed.WithWindow(cfg.Oracle.TwapWindow()))
	if endpoint := strings.TrimSpace(cfg.Oracle.Endpoint); endpoint != "" {
		feed.Register("http", pricefeed.NewHTTPSource(nil, endpoint, cfg.Oracle.APIKey))
	} else {
		logger.Warn("No oracle endpoint configured; price updates depend on manual sources")
	}

	engine, err := treasury.NewEngine(treasury.Config{
		Self:          treasuryAddr,
		Period:        cfg.Period(),
		Stable:        stable.Bind(treasuryAddr),
		Bond:          bond.Bind(treasuryAddr),
		Share:         share.Bind(treasuryAddr),
		Boardroom:     room,
		Oracle:        feed,
		StableAddr:    common.HexToAddress(cfg.StableAddress),
		BondAddr:      common.HexToAddress(cfg.BondAddress),
		ShareAddr:     common.HexToAddress(cfg.ShareAddress),
		BoardroomAddr: common.HexToAddress(cfg.BoardroomAddress),
		Excluded:      cfg.Excluded(),
		Logger:        logger,
		Store:         treasury.NewStateStore(db),
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to construct treasury engine: %v", err))
	}

	if !engine.Initialized() {
		peg, err := cfg.PegAmount()
		if err != nil {
			panic(fmt.Sprintf("Failed to parse peg: %v", err))
		}
		start := time.Now().UTC()
		if cfg.StartTime > 0 {
			start = time.Unix(cfg.StartTime, 0).UTC()
		}
		if err := engine.Initialize(operatorAddr, start, peg); err != nil {
			panic(fmt.Sprintf("Failed to initialize treasury: %v", err))
		}
		logger.Info("Treasury initialized",
			slog.String("operator", operatorAddr.Hex()),
			slog.Time("start", start))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           rpc.NewServer(engine, logging.Component(logger, "rpc")).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("HTTP server listening", slog.String("address", cfg.ListenAddress))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", slog.Any("error", err))
			stop()
		}
	}()

	go runScheduler(ctx, logging.Component(logger, "scheduler"), engine, room, treasuryAddr)

	<-ctx.Done()
	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", slog.Any("error", err))
	}
}

// openLedger opens the named ledger and delegates it to the treasury on first
// boot. A restored ledger keeps whatever operator it recorded.
func openLedger(db storage.Database, symbol string, treasuryAddr common.Address) (*token.Ledger, error) {
	ledger, err := token.Open(db, symbol)
	if err != nil {
		return nil, err
	}
	operator, err := ledger.Operator()
	if err != nil {
		return nil, err
	}
	if operator == (common.Address{}) {
		if err := ledger.SetOperator(treasuryAddr); err != nil {
			return nil, err
		}
	}
	return ledger, nil
}

// runScheduler drives the epoch cadence: when the next epoch point passes it
// opens a fresh operation tick and runs the seigniorage allocation.
func runScheduler(ctx context.Context, logger *slog.Logger, engine *treasury.Engine, room *boardroom.Room, self common.Address) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if !engine.Initialized() || now.Before(engine.NextEpochPoint()) {
				continue
			}
			engine.AdvanceTick()
			epochBefore := engine.Epoch()
			err := engine.AllocateSeigniorage(self, now)
			switch {
			case err == nil:
				room.AdvanceEpoch()
				logger.Info("Epoch allocation complete",
					slog.Uint64("epoch", engine.Epoch()),
					slog.String("price", engine.PreviousEpochPrice().String()))
			case errors.Is(err, treasury.ErrEpochNotDue), errors.Is(err, treasury.ErrNotStarted):
				// Raced another caller; try again next tick.
			default:
				logger.Error("Epoch allocation failed",
					slog.Uint64("epoch", epochBefore),
					slog.Any("error", err))
			}
		}
	}
}
