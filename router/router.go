// Package router is the stateless orchestrator over the registry, the
// quoter and the pools: slippage-protected deposits, minimum-checked
// withdrawals and exact-amount multi-hop swaps. The router keeps no state
// between calls beyond locally computed amounts, so a mid-chain failure
// aborts the whole trade.
package router

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Web3Horizon/dex-contracts-v2/pool"
	"github.com/Web3Horizon/dex-contracts-v2/quoter"
	"github.com/Web3Horizon/dex-contracts-v2/registry"
	"github.com/Web3Horizon/dex-contracts-v2/token"
)

var (
	// ErrInsufficientAAmount is returned when the optimal A-side amount falls
	// below the caller's minimum.
	ErrInsufficientAAmount = errors.New("insufficient A amount")
	// ErrInsufficientBAmount is returned when the optimal B-side amount falls
	// below the caller's minimum.
	ErrInsufficientBAmount = errors.New("insufficient B amount")
	// ErrLiquidityCalculationFailed guards the unreachable branch of the
	// optimal-amount negotiation.
	ErrLiquidityCalculationFailed = errors.New("liquidity calculation failed")
	// ErrInsufficientOutputAmount is returned when a swap's final output falls
	// below the caller's minimum.
	ErrInsufficientOutputAmount = errors.New("output below minimum")
	// ErrExcessiveInputAmount is returned when an exact-output swap would cost
	// more than the caller's maximum.
	ErrExcessiveInputAmount = errors.New("input above maximum")
	// ErrPoolNotFound is returned when an operation names a pair with no pool.
	ErrPoolNotFound = errors.New("no pool for pair")
)

// Logger is the structured, leveled logging surface the router expects,
// compatible with the standard library's slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds the router's dependencies.
type Config struct {
	Registry      *registry.Registry
	Ledger        token.Ledger
	Logger        Logger
	PrometheusReg prometheus.Registerer
}

func (c *Config) validate() error {
	if c.Registry == nil {
		return errors.New("registry is required")
	}
	if c.Ledger == nil {
		return errors.New("token ledger is required")
	}
	return nil
}

// Router composes Registry, quoter and Pool into caller-facing operations.
type Router struct {
	registry *registry.Registry
	ledger   token.Ledger
	logger   Logger
	metrics  *Metrics
}

// New constructs a router from its configuration. Logger and PrometheusReg
// default to slog and a private registry when unset.
func New(cfg Config) (*Router, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid router configuration: %w", err)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.PrometheusReg == nil {
		cfg.PrometheusReg = prometheus.NewRegistry()
	}
	return &Router{
		registry: cfg.Registry,
		ledger:   cfg.Ledger,
		logger:   cfg.Logger,
		metrics:  NewMetrics(cfg.PrometheusReg),
	}, nil
}

// AddLiquidity deposits into the pair's pool, creating the pool if absent.
// The deposited amounts are negotiated against current reserves so the
// caller's ratio bounds hold; the realized amounts and minted shares are
// returned.
func (r *Router) AddLiquidity(
	caller, tokenA, tokenB common.Address,
	amountADesired, amountBDesired, amountAMin, amountBMin *big.Int,
	to common.Address,
) (amountA, amountB, shares *big.Int, err error) {
	defer func() { r.metrics.LiquidityAddsTotal.WithLabelValues(result(err)).Inc() }()

	if to == (common.Address{}) {
		return nil, nil, nil, pool.ErrZeroAddress
	}

	p, ok := r.registry.PoolFor(tokenA, tokenB)
	if !ok {
		p, err = r.registry.CreatePool(tokenA, tokenB)
		if err != nil {
			return nil, nil, nil, err
		}
		r.metrics.PoolsCreatedTotal.Inc()
		r.logger.Info("created pool for pair",
			"tokenA", tokenA.Hex(), "tokenB", tokenB.Hex(), "pool", p.Address().Hex())
	}

	amountA, amountB, err = r.optimalAmounts(p, tokenA, amountADesired, amountBDesired, amountAMin, amountBMin)
	if err != nil {
		return nil, nil, nil, err
	}
	// A deposit that would mint nothing is rejected before any tokens move,
	// so the failure leaves the caller whole.
	if err = precheckMint(p, tokenA, amountA, amountB); err != nil {
		return nil, nil, nil, err
	}
	// Both legs must be funded before either transfer runs: a shortfall on
	// the second leg after the first has moved would strand the first at the
	// pool as surplus for the next depositor.
	if err = r.precheckFunds(caller, tokenA, amountA); err != nil {
		return nil, nil, nil, err
	}
	if err = r.precheckFunds(caller, tokenB, amountB); err != nil {
		return nil, nil, nil, err
	}

	if err = r.ledger.Transfer(tokenA, caller, p.Address(), amountA); err != nil {
		return nil, nil, nil, fmt.Errorf("moving %s of token A to pool: %w", amountA.String(), err)
	}
	if err = r.ledger.Transfer(tokenB, caller, p.Address(), amountB); err != nil {
		return nil, nil, nil, fmt.Errorf("moving %s of token B to pool: %w", amountB.String(), err)
	}

	shares, err = p.Mint(caller, to)
	if err != nil {
		return nil, nil, nil, err
	}
	r.logger.Debug("liquidity added",
		"pool", p.Address().Hex(), "amountA", amountA.String(), "amountB", amountB.String(), "shares", shares.String())
	return amountA, amountB, shares, nil
}

// optimalAmounts resolves the deposit amounts against current reserves:
// unconstrained on an empty pool, otherwise the B-side quote of the desired
// A amount when it fits the caller's bounds, else the symmetric A-side quote.
func (r *Router) optimalAmounts(
	p *pool.Pool,
	tokenA common.Address,
	amountADesired, amountBDesired, amountAMin, amountBMin *big.Int,
) (*big.Int, *big.Int, error) {
	reserveA, reserveB := orientReserves(p, tokenA)
	if reserveA.Sign() == 0 && reserveB.Sign() == 0 {
		return new(big.Int).Set(amountADesired), new(big.Int).Set(amountBDesired), nil
	}

	amountBOptimal, err := quoter.Quote(amountADesired, reserveA, reserveB)
	if err != nil {
		return nil, nil, err
	}
	if amountBOptimal.Cmp(amountBDesired) <= 0 {
		if amountBMin != nil && amountBOptimal.Cmp(amountBMin) < 0 {
			return nil, nil, ErrInsufficientBAmount
		}
		return new(big.Int).Set(amountADesired), amountBOptimal, nil
	}

	amountAOptimal, err := quoter.Quote(amountBDesired, reserveB, reserveA)
	if err != nil {
		return nil, nil, err
	}
	if amountAOptimal.Cmp(amountADesired) > 0 {
		return nil, nil, ErrLiquidityCalculationFailed
	}
	if amountAMin != nil && amountAOptimal.Cmp(amountAMin) < 0 {
		return nil, nil, ErrInsufficientAAmount
	}
	return amountAOptimal, new(big.Int).Set(amountBDesired), nil
}

// RemoveLiquidity moves the caller's shares to the pool, burns them and
// checks the returned amounts against the caller's minimums.
func (r *Router) RemoveLiquidity(
	caller, tokenA, tokenB common.Address,
	shares, amountAMin, amountBMin *big.Int,
	to common.Address,
) (amountA, amountB *big.Int, err error) {
	defer func() { r.metrics.LiquidityRemovesTotal.WithLabelValues(result(err)).Inc() }()

	if to == (common.Address{}) {
		return nil, nil, pool.ErrZeroAddress
	}

	p, ok := r.registry.PoolFor(tokenA, tokenB)
	if !ok {
		return nil, nil, ErrPoolNotFound
	}

	// Minimums are checked against the amounts the burn will realize before
	// any shares move: host serialization makes the projection exact, and a
	// failed call must leave no partial state behind.
	if err = r.precheckBurn(p, tokenA, shares, amountAMin, amountBMin); err != nil {
		return nil, nil, err
	}

	if err = p.TransferShares(caller, p.Address(), shares); err != nil {
		return nil, nil, fmt.Errorf("moving shares to pool: %w", err)
	}
	amount0, amount1, err := p.Burn(caller, to)
	if err != nil {
		return nil, nil, err
	}

	token0, _ := p.Tokens()
	if tokenA == token0 {
		amountA, amountB = amount0, amount1
	} else {
		amountA, amountB = amount1, amount0
	}
	if amountAMin != nil && amountA.Cmp(amountAMin) < 0 {
		return nil, nil, ErrInsufficientAAmount
	}
	if amountBMin != nil && amountB.Cmp(amountBMin) < 0 {
		return nil, nil, ErrInsufficientBAmount
	}
	r.logger.Debug("liquidity removed",
		"pool", p.Address().Hex(), "amountA", amountA.String(), "amountB", amountB.String())
	return amountA, amountB, nil
}

// SwapExactTokensForTokens trades an exact input along the path, requiring
// at least amountOutMin of the final token. Intermediate outputs are routed
// straight to the next hop's pool; only the final output reaches to.
func (r *Router) SwapExactTokensForTokens(
	caller common.Address,
	amountIn, amountOutMin *big.Int,
	path []common.Address,
	to common.Address,
) (amounts []*big.Int, err error) {
	timer := prometheus.NewTimer(r.metrics.SwapDuration.WithLabelValues())
	defer func() {
		timer.ObserveDuration()
		r.metrics.SwapsTotal.WithLabelValues(result(err)).Inc()
	}()

	if to == (common.Address{}) {
		return nil, pool.ErrZeroAddress
	}

	amounts, err = quoter.GetAmountsOut(r.registry.ReservesAt, r.registry.Address(), amountIn, path)
	if err != nil {
		return nil, err
	}
	if amountOutMin != nil && amounts[len(amounts)-1].Cmp(amountOutMin) < 0 {
		return nil, fmt.Errorf("%w: computed %s, minimum %s",
			ErrInsufficientOutputAmount, amounts[len(amounts)-1].String(), amountOutMin.String())
	}
	if err = r.executeSwaps(caller, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// SwapTokensForExactTokens trades along the path for an exact final output,
// spending at most amountInMax of the first token.
func (r *Router) SwapTokensForExactTokens(
	caller common.Address,
	amountOut, amountInMax *big.Int,
	path []common.Address,
	to common.Address,
) (amounts []*big.Int, err error) {
	timer := prometheus.NewTimer(r.metrics.SwapDuration.WithLabelValues())
	defer func() {
		timer.ObserveDuration()
		r.metrics.SwapsTotal.WithLabelValues(result(err)).Inc()
	}()

	if to == (common.Address{}) {
		return nil, pool.ErrZeroAddress
	}

	amounts, err = quoter.GetAmountsIn(r.registry.ReservesAt, r.registry.Address(), amountOut, path)
	if err != nil {
		return nil, err
	}
	if amountInMax != nil && amounts[0].Cmp(amountInMax) > 0 {
		return nil, fmt.Errorf("%w: required %s, maximum %s",
			ErrExcessiveInputAmount, amounts[0].String(), amountInMax.String())
	}
	if err = r.executeSwaps(caller, amounts, path, to); err != nil {
		return nil, err
	}
	return amounts, nil
}

// executeSwaps seeds the first hop's pool with amounts[0] and runs each
// hop's swap in sequence. The chain's amounts were computed from a
// consistent read, so under host serialization no hop can fail its
// invariant check mid-chain.
func (r *Router) executeSwaps(caller common.Address, amounts []*big.Int, path []common.Address, to common.Address) error {
	firstPool, err := quoter.PoolFor(r.registry.Address(), path[0], path[1])
	if err != nil {
		return err
	}
	if err := r.ledger.Transfer(path[0], caller, firstPool, amounts[0]); err != nil {
		return fmt.Errorf("seeding first hop: %w", err)
	}

	for i := 0; i < len(path)-1; i++ {
		tokenIn, tokenOut := path[i], path[i+1]
		token0, _, err := quoter.SortTokens(tokenIn, tokenOut)
		if err != nil {
			return err
		}
		hopAddr, err := quoter.PoolFor(r.registry.Address(), tokenIn, tokenOut)
		if err != nil {
			return err
		}
		p, err := r.registry.PoolAt(hopAddr)
		if err != nil {
			return err
		}

		amount0Out, amount1Out := new(big.Int), new(big.Int)
		if tokenOut == token0 {
			amount0Out.Set(amounts[i+1])
		} else {
			amount1Out.Set(amounts[i+1])
		}

		recipient := to
		if i < len(path)-2 {
			recipient, err = quoter.PoolFor(r.registry.Address(), path[i+1], path[i+2])
			if err != nil {
				return err
			}
		}
		if err := p.Swap(caller, amount0Out, amount1Out, recipient); err != nil {
			return fmt.Errorf("hop %d (%s -> %s): %w", i, tokenIn.Hex(), tokenOut.Hex(), err)
		}
	}
	r.logger.Debug("swap executed",
		"hops", len(path)-1, "amountIn", amounts[0].String(), "amountOut", amounts[len(amounts)-1].String())
	return nil
}

// precheckMint projects the pool's issuance for the negotiated amounts and
// rejects a deposit that would mint zero shares.
func precheckMint(p *pool.Pool, tokenA common.Address, amountA, amountB *big.Int) error {
	if amountA.Sign() <= 0 || amountB.Sign() <= 0 {
		return pool.ErrInsufficientLiquidityMinted
	}
	total := p.TotalShares()
	if total.Sign() == 0 {
		return nil
	}
	reserveA, reserveB := orientReserves(p, tokenA)
	byA := new(big.Int).Mul(total, amountA)
	byA.Div(byA, reserveA)
	byB := new(big.Int).Mul(total, amountB)
	byB.Div(byB, reserveB)
	if byA.Sign() == 0 || byB.Sign() == 0 {
		return pool.ErrInsufficientLiquidityMinted
	}
	return nil
}

// precheckBurn projects the proportional payout for the given shares and
// checks it against the caller's minimums. The projection reads live pool
// balances, not reserves, because the burn itself pays on balances: donated
// surplus above the reserves belongs to the withdrawal.
func (r *Router) precheckBurn(p *pool.Pool, tokenA common.Address, shares, amountAMin, amountBMin *big.Int) error {
	if shares == nil || shares.Sign() <= 0 {
		return pool.ErrInsufficientLiquidityBurned
	}
	total := p.TotalShares()
	if total.Sign() == 0 {
		return pool.ErrInsufficientLiquidityBurned
	}
	token0, token1 := p.Tokens()
	balance0 := r.ledger.BalanceOf(token0, p.Address())
	balance1 := r.ledger.BalanceOf(token1, p.Address())
	amount0 := new(big.Int).Mul(shares, balance0)
	amount0.Div(amount0, total)
	amount1 := new(big.Int).Mul(shares, balance1)
	amount1.Div(amount1, total)

	amountA, amountB := amount0, amount1
	if tokenA != token0 {
		amountA, amountB = amount1, amount0
	}
	if amountAMin != nil && amountA.Cmp(amountAMin) < 0 {
		return ErrInsufficientAAmount
	}
	if amountBMin != nil && amountB.Cmp(amountBMin) < 0 {
		return ErrInsufficientBAmount
	}
	return nil
}

// precheckFunds verifies the caller can cover one deposit leg.
func (r *Router) precheckFunds(caller, tok common.Address, amount *big.Int) error {
	if bal := r.ledger.BalanceOf(tok, caller); bal.Cmp(amount) < 0 {
		return fmt.Errorf("%w: token %s, account %s has %s, needs %s",
			token.ErrInsufficientBalance, tok.Hex(), caller.Hex(), bal.String(), amount.String())
	}
	return nil
}

// orientReserves returns the pool's reserves as (A, B) for the caller's
// token order.
func orientReserves(p *pool.Pool, tokenA common.Address) (reserveA, reserveB *big.Int) {
	reserve0, reserve1 := p.Reserves()
	token0, _ := p.Tokens()
	if tokenA == token0 {
		return reserve0, reserve1
	}
	return reserve1, reserve0
}
