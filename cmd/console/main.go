// Command console runs an in-memory constant-product exchange end to end:
// it mints demo tokens, creates pools through the router, performs single
// and multi-hop swaps, and streams every pool event to the structured log.
// A Prometheus /metrics endpoint exposes the router's counters while the
// scenario runs.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Web3Horizon/dex-contracts-v2/cmd/console/config"
	"github.com/Web3Horizon/dex-contracts-v2/events"
	"github.com/Web3Horizon/dex-contracts-v2/graph"
	"github.com/Web3Horizon/dex-contracts-v2/registry"
	"github.com/Web3Horizon/dex-contracts-v2/router"
	"github.com/Web3Horizon/dex-contracts-v2/token"
)

const eventBufferSize = 100

var (
	trader = common.HexToAddress("0x00000000000000000000000000000000000000aa")

	weth = common.HexToAddress("0x0000000000000000000000000000000000000a01")
	usdc = common.HexToAddress("0x0000000000000000000000000000000000000a02")
	dai  = common.HexToAddress("0x0000000000000000000000000000000000000a03")

	tokenNames = map[common.Address]string{
		weth: "WETH",
		usdc: "USDC",
		dai:  "DAI",
	}
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	promRegistry := prometheus.NewRegistry()
	metricsServer := serveMetrics(cfg.MetricsAddr, promRegistry, logger)

	ledger := token.NewMemoryLedger()
	feed := events.NewFeed()
	tokenGraph := graph.New()

	reg, err := registry.New(registry.Config{
		Address: cfg.RegistryAddress,
		Ledger:  ledger,
		Feed:    feed,
		Graph:   tokenGraph,
	})
	if err != nil {
		logger.Error("failed to initialize registry", "error", err)
		os.Exit(1)
	}

	rtr, err := router.New(router.Config{
		Registry:      reg,
		Ledger:        ledger,
		Logger:        logger.With("component", "router"),
		PrometheusReg: promRegistry,
	})
	if err != nil {
		logger.Error("failed to initialize router", "error", err)
		os.Exit(1)
	}

	eventCh, cancel := feed.Subscribe(eventBufferSize)
	defer cancel()
	go streamEvents(ctx, eventCh, logger.With("component", "events"))

	if err := runScenario(reg, tokenGraph, rtr, ledger, logger); err != nil {
		logger.Error("scenario failed", "error", err)
		os.Exit(1)
	}

	logger.Info("scenario complete, serving metrics until interrupted",
		"metrics_addr", cfg.MetricsAddr,
	)

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics server shutdown", "error", err)
	}
}

// serveMetrics starts the /metrics endpoint in the background and returns
// the server so main can shut it down cleanly.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server stopped", "error", err)
		}
	}()
	return srv
}

// streamEvents logs every pool event until the context ends.
func streamEvents(ctx context.Context, ch <-chan events.Event, logger *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			logEvent(logger, ev)
		}
	}
}

func logEvent(logger *slog.Logger, ev events.Event) {
	switch e := ev.(type) {
	case events.PoolCreated:
		logger.Info(e.Name(),
			"token0", symbol(e.Token0), "token1", symbol(e.Token1),
			"pool", e.Pool.Hex(), "ordinal", e.Ordinal,
		)
	case events.Sync:
		logger.Debug(e.Name(),
			"pool", e.Pool.Hex(),
			"reserve0", e.Reserve0.String(), "reserve1", e.Reserve1.String(),
		)
	case events.Mint:
		logger.Info(e.Name(),
			"pool", e.Pool.Hex(), "sender", e.Sender.Hex(),
			"amount0", e.Amount0.String(), "amount1", e.Amount1.String(),
		)
	case events.Burn:
		logger.Info(e.Name(),
			"pool", e.Pool.Hex(), "sender", e.Sender.Hex(),
			"amount0", e.Amount0.String(), "amount1", e.Amount1.String(),
			"to", e.To.Hex(),
		)
	case events.Swap:
		logger.Info(e.Name(),
			"pool", e.Pool.Hex(), "sender", e.Sender.Hex(),
			"amount0_in", e.Amount0In.String(), "amount1_in", e.Amount1In.String(),
			"amount0_out", e.Amount0Out.String(), "amount1_out", e.Amount1Out.String(),
			"to", e.To.Hex(),
		)
	default:
		logger.Info(ev.Name())
	}
}

// runScenario drives the exchange through its full lifecycle: seed balances,
// provision two pools, swap along the implied WETH -> USDC -> DAI path, and
// finally withdraw liquidity.
func runScenario(reg *registry.Registry, tokenGraph *graph.Graph, rtr *router.Router, ledger *token.MemoryLedger, logger *slog.Logger) error {
	for addr, name := range tokenNames {
		if err := ledger.Mint(addr, trader, units(1_000_000)); err != nil {
			return fmt.Errorf("seeding %s balance: %w", name, err)
		}
		logger.Info("seeded balance", "token", name, "account", trader.Hex())
	}

	// Pool 1: WETH/USDC at roughly 1:3000.
	amountA, amountB, wethUsdcShares, err := rtr.AddLiquidity(trader, weth, usdc,
		units(100), units(300_000),
		units(100), units(300_000),
		trader,
	)
	if err != nil {
		return fmt.Errorf("add WETH/USDC liquidity: %w", err)
	}
	logger.Info("liquidity added",
		"pair", "WETH/USDC",
		"amount_a", amountA.String(), "amount_b", amountB.String(),
		"shares", wethUsdcShares.String(),
	)

	// Pool 2: USDC/DAI near parity.
	amountA, amountB, usdcDaiShares, err := rtr.AddLiquidity(trader, usdc, dai,
		units(200_000), units(200_000),
		units(200_000), units(200_000),
		trader,
	)
	if err != nil {
		return fmt.Errorf("add USDC/DAI liquidity: %w", err)
	}
	logger.Info("liquidity added",
		"pair", "USDC/DAI",
		"amount_a", amountA.String(), "amount_b", amountB.String(),
		"shares", usdcDaiShares.String(),
	)

	// Single-hop swap: WETH -> USDC.
	amounts, err := rtr.SwapExactTokensForTokens(trader,
		units(1), big.NewInt(0),
		[]common.Address{weth, usdc}, trader,
	)
	if err != nil {
		return fmt.Errorf("swap WETH -> USDC: %w", err)
	}
	logger.Info("swap executed",
		"path", "WETH -> USDC",
		"amount_in", amounts[0].String(),
		"amount_out", amounts[len(amounts)-1].String(),
	)

	// Multi-hop swap routed through the token graph.
	path, err := tokenGraph.ShortestPath(weth, dai)
	if err != nil {
		return fmt.Errorf("route WETH -> DAI: %w", err)
	}
	logger.Info("route discovered", "path", describePath(path))

	amounts, err = rtr.SwapExactTokensForTokens(trader,
		units(2), big.NewInt(0),
		path, trader,
	)
	if err != nil {
		return fmt.Errorf("swap WETH -> DAI: %w", err)
	}
	logger.Info("swap executed",
		"path", describePath(path),
		"amount_in", amounts[0].String(),
		"amount_out", amounts[len(amounts)-1].String(),
	)

	// Exact-output swap: buy a round amount of DAI with USDC.
	amounts, err = rtr.SwapTokensForExactTokens(trader,
		units(1_000), units(1_100),
		[]common.Address{usdc, dai}, trader,
	)
	if err != nil {
		return fmt.Errorf("swap USDC -> DAI exact out: %w", err)
	}
	logger.Info("swap executed",
		"path", "USDC -> DAI",
		"amount_in", amounts[0].String(),
		"amount_out", amounts[len(amounts)-1].String(),
	)

	// Withdraw half the WETH/USDC position.
	half := new(big.Int).Div(wethUsdcShares, big.NewInt(2))
	amountA, amountB, err = rtr.RemoveLiquidity(trader, weth, usdc,
		half, big.NewInt(0), big.NewInt(0), trader,
	)
	if err != nil {
		return fmt.Errorf("remove WETH/USDC liquidity: %w", err)
	}
	logger.Info("liquidity removed",
		"pair", "WETH/USDC",
		"shares", half.String(),
		"amount_a", amountA.String(), "amount_b", amountB.String(),
	)

	for _, p := range reg.AllPools() {
		t0, t1 := p.Tokens()
		r0, r1 := p.Reserves()
		logger.Info("final pool state",
			"pool", p.Address().Hex(),
			"pair", symbol(t0)+"/"+symbol(t1),
			"reserve0", r0.String(), "reserve1", r1.String(),
			"total_shares", p.TotalShares().String(),
		)
	}
	return nil
}

// units scales a whole-token amount by 18 decimals.
func units(n int64) *big.Int {
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	return new(big.Int).Mul(big.NewInt(n), scale)
}

func symbol(addr common.Address) string {
	if name, ok := tokenNames[addr]; ok {
		return name
	}
	return addr.Hex()
}

func describePath(path []common.Address) string {
	out := ""
	for i, addr := range path {
		if i > 0 {
			out += " -> "
		}
		out += symbol(addr)
	}
	return out
}
