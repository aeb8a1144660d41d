// Package rpc exposes the treasury's read surface over HTTP. All endpoints
// are side-effect free; policy mutations go through the engine's Go API.
package rpc

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pegd/native/treasury"
)

// Server serves the treasury read API.
type Server struct {
	engine *treasury.Engine
	log    *slog.Logger
	router http.Handler
}

// NewServer constructs the HTTP server around an engine.
func NewServer(engine *treasury.Engine, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{engine: engine, log: log}
	s.router = s.buildRouter()
	return s
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Route("/v1/treasury", func(api chi.Router) {
		api.Get("/status", s.Status)
		api.Get("/pricing", s.Pricing)
		api.Get("/tiers", s.Tiers)
		api.Get("/params", s.Params)
	})
	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log.Warn("rpc: encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// Health reports liveness.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Initialized                bool   `json:"initialized"`
	Operator                   string `json:"operator"`
	Epoch                      uint64 `json:"epoch"`
	StartTime                  int64  `json:"startTime"`
	NextEpochPoint             int64  `json:"nextEpochPoint"`
	PreviousEpochPrice         string `json:"previousEpochPrice"`
	SeigniorageSaved           string `json:"seigniorageSaved"`
	EpochSupplyContractionLeft string `json:"epochSupplyContractionLeft"`
	CirculatingSupply          string `json:"circulatingSupply"`
}

// Status reports the engine's policy state.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Initialized() {
		s.writeJSON(w, http.StatusOK, statusResponse{Initialized: false})
		return
	}
	circulating, err := s.engine.CirculatingSupply()
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{
		Initialized:                true,
		Operator:                   s.engine.Operator().Hex(),
		Epoch:                      s.engine.Epoch(),
		StartTime:                  s.engine.StartTime().Unix(),
		NextEpochPoint:             s.engine.NextEpochPoint().Unix(),
		PreviousEpochPrice:         amountString(s.engine.PreviousEpochPrice()),
		SeigniorageSaved:           amountString(s.engine.SeigniorageSaved()),
		EpochSupplyContractionLeft: amountString(s.engine.EpochSupplyContractionLeft()),
		CirculatingSupply:          amountString(circulating),
	})
}

type pricingResponse struct {
	SpotPrice       string `json:"spotPrice"`
	TWAPPrice       string `json:"twapPrice"`
	DiscountRate    string `json:"discountRate"`
	PremiumRate     string `json:"premiumRate"`
	BurnableStable  string `json:"burnableStable"`
	RedeemableBonds string `json:"redeemableBonds"`
}

// Pricing reports live oracle prices and the derived bond rates.
func (s *Server) Pricing(w http.ResponseWriter, r *http.Request) {
	spot, err := s.engine.SpotPrice()
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	twap, err := s.engine.TWAPPrice()
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	discount, err := s.engine.BondDiscountRate()
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	premium, err := s.engine.BondPremiumRate()
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	burnable, err := s.engine.BurnableStableLeft()
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	redeemable, err := s.engine.RedeemableBonds()
	if err != nil {
		s.writeError(w, http.StatusBadGateway, err)
		return
	}
	s.writeJSON(w, http.StatusOK, pricingResponse{
		SpotPrice:       amountString(spot),
		TWAPPrice:       amountString(twap),
		DiscountRate:    amountString(discount),
		PremiumRate:     amountString(premium),
		BurnableStable:  amountString(burnable),
		RedeemableBonds: amountString(redeemable),
	})
}

type tierEntry struct {
	Threshold       string `json:"threshold"`
	MaxExpansionBps uint64 `json:"maxExpansionBps"`
}

// Tiers reports the supply expansion ladder.
func (s *Server) Tiers(w http.ResponseWriter, r *http.Request) {
	ladder := s.engine.TierLadder()
	out := make([]tierEntry, 0, len(ladder))
	for _, tier := range ladder {
		out = append(out, tierEntry{
			Threshold:       amountString(tier.Threshold),
			MaxExpansionBps: tier.MaxExpansionBps,
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tiers": out})
}

type paramsResponse struct {
	Peg                           string `json:"peg"`
	Ceiling                       string `json:"ceiling"`
	PremiumThreshold              uint64 `json:"premiumThreshold"`
	DiscountBps                   uint64 `json:"discountBps"`
	PremiumBps                    uint64 `json:"premiumBps"`
	MaxDiscountRate               string `json:"maxDiscountRate"`
	MaxPremiumRate                string `json:"maxPremiumRate"`
	MaxSupplyExpansionBps         uint64 `json:"maxSupplyExpansionBps"`
	BondDepletionFloorBps         uint64 `json:"bondDepletionFloorBps"`
	SeigniorageExpansionFloorBps  uint64 `json:"seigniorageExpansionFloorBps"`
	MaxSupplyContractionBps       uint64 `json:"maxSupplyContractionBps"`
	MaxDebtRatioBps               uint64 `json:"maxDebtRatioBps"`
	MintingFactorForPayingDebtBps uint64 `json:"mintingFactorForPayingDebtBps"`
	DaoFund                       string `json:"daoFund"`
	DaoBps                        uint64 `json:"daoBps"`
	DevFund                       string `json:"devFund"`
	DevBps                        uint64 `json:"devBps"`
}

// Params reports the governance-tunable surface.
func (s *Server) Params(w http.ResponseWriter, r *http.Request) {
	if !s.engine.Initialized() {
		s.writeError(w, http.StatusConflict, errors.New("treasury not initialized"))
		return
	}
	params := s.engine.Params()
	s.writeJSON(w, http.StatusOK, paramsResponse{
		Peg:                           amountString(params.Price.Peg),
		Ceiling:                       amountString(params.Price.Ceiling),
		PremiumThreshold:              params.Price.PremiumThreshold,
		DiscountBps:                   params.Price.DiscountBps,
		PremiumBps:                    params.Price.PremiumBps,
		MaxDiscountRate:               amountString(params.Price.MaxDiscountRate),
		MaxPremiumRate:                amountString(params.Price.MaxPremiumRate),
		MaxSupplyExpansionBps:         params.Caps.MaxSupplyExpansionBps,
		BondDepletionFloorBps:         params.Caps.BondDepletionFloorBps,
		SeigniorageExpansionFloorBps:  params.Caps.SeigniorageExpansionFloorBps,
		MaxSupplyContractionBps:       params.Caps.MaxSupplyContractionBps,
		MaxDebtRatioBps:               params.Caps.MaxDebtRatioBps,
		MintingFactorForPayingDebtBps: params.Caps.MintingFactorForPayingDebtBps,
		DaoFund:                       params.Funds.DaoFund.Hex(),
		DaoBps:                        params.Funds.DaoBps,
		DevFund:                       params.Funds.DevFund.Hex(),
		DevBps:                        params.Funds.DevBps,
	})
}
