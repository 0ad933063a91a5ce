package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dujyo/config"
	"dujyo/native/common"
	"dujyo/native/dex"
	"dujyo/native/token"
	"dujyo/native/treasury"
	"dujyo/observability"
	"dujyo/observability/logging"
)

// ledgerSettler adapts the token ledger to the treasury settlement
// interface.
type ledgerSettler struct {
	ledger *token.Ledger
}

func (s ledgerSettler) Settle(from, to string, amount uint64) (string, error) {
	return s.ledger.Transfer(from, to, amount)
}

func main() {
	configFile := flag.String("config", "./dujyo.toml", "Path to the configuration file")
	metricsAddr := flag.String("metrics-addr", ":9464", "Listen address for the metrics endpoint")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("DUJYO_ENV"))

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}
	if env == "" {
		env = cfg.Logging.Environment
	}
	logger := logging.Setup("dujyod", env, logging.ParseLevel(cfg.Logging.Level))

	admin := strings.TrimSpace(cfg.Token.Admin)
	if admin == "" {
		admin = "admin"
	}

	ledger := token.NewLedger(cfg.Token.Name, cfg.Token.Symbol, cfg.Token.Decimals, cfg.Token.MaxSupply, admin)
	ledger.SetEmitter(observability.MetricsEmitter{})

	auth := common.NewStaticAuthority()
	auth.Grant(admin, common.CapabilitySystemPause)
	auth.Grant(admin, common.CapabilityPoolCreate)

	minLiquidity, err := dex.ParseAmount(cfg.DEX.MinLiquidityTokens)
	if err != nil {
		logger.Error("Invalid minimum liquidity", slog.Any("error", err))
		os.Exit(1)
	}
	engine := dex.NewEngine(dex.Params{
		FeeBps:            cfg.DEX.FeeBps,
		MaxPriceImpactBps: cfg.DEX.MaxPriceImpactBps,
		MinLiquidity:      minLiquidity,
		MaxDrainBps:       cfg.DEX.MaxDrainBps,
	}, auth)
	engine.SetEmitter(observability.MetricsEmitter{})

	treasuries := treasury.NewManager()
	if len(cfg.Treasury.Owners) > 0 {
		wallet, err := treasuries.CreateWallet(admin, cfg.Treasury.Owners, cfg.Treasury.Threshold, cfg.Treasury.DailyLimit, ledgerSettler{ledger: ledger})
		if err != nil {
			logger.Error("Failed to create treasury wallet", slog.Any("error", err))
			os.Exit(1)
		}
		wallet.SetEmitter(observability.MetricsEmitter{})
		logger.Info("Treasury wallet ready",
			slog.String("address", wallet.Address()),
			slog.Int("owners", len(cfg.Treasury.Owners)),
			slog.Int("threshold", cfg.Treasury.Threshold))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		if issues := ledger.VerifyIntegrity(); len(issues) > 0 {
			w.WriteHeader(http.StatusServiceUnavailable)
			for _, issue := range issues {
				fmt.Fprintf(w, "%s: %s\n", issue.Severity, issue.Detail)
			}
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	server := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		logger.Info("Metrics endpoint listening", slog.String("addr", *metricsAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics endpoint failed", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	logger.Info("Settlement core ready",
		slog.String("token", cfg.Token.Symbol),
		slog.Uint64("maxSupply", cfg.Token.MaxSupply),
		slog.Uint64("feeBps", cfg.DEX.FeeBps))

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("Shutting down")
	_ = server.Close()
}
