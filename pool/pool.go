// Package pool implements the per-pair constant-product state machine: two
// reserve balances, a proportional liquidity-share ledger and the
// invariant-preserving swap. Reserves are the last-synchronized balances, not
// live ones; they move only at the end of Mint, Burn and Swap.
package pool

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Web3Horizon/dex-contracts-v2/events"
	"github.com/Web3Horizon/dex-contracts-v2/token"
)

var (
	// ErrNotInitialized is returned when an operation runs before the registry
	// has bound the pool's tokens.
	ErrNotInitialized = errors.New("pool not initialized")
	// ErrAlreadyInitialized is returned on a second initialization attempt.
	ErrAlreadyInitialized = errors.New("pool already initialized")
	// ErrForbidden is returned when anyone but the creating registry initializes.
	ErrForbidden = errors.New("initializer is not the creating registry")
	// ErrInsufficientLiquidityMinted is returned when a deposit yields zero shares.
	ErrInsufficientLiquidityMinted = errors.New("insufficient liquidity minted")
	// ErrInsufficientLiquidityBurned is returned when the pool holds no shares to burn.
	ErrInsufficientLiquidityBurned = errors.New("insufficient liquidity burned")
	// ErrInsufficientOutputAmount is returned when a swap requests no output.
	ErrInsufficientOutputAmount = errors.New("insufficient output amount")
	// ErrInsufficientInputAmount is returned when a swap received no net input.
	ErrInsufficientInputAmount = errors.New("insufficient input amount")
	// ErrInsufficientLiquidity is returned when a requested output meets or
	// exceeds the reserve backing it.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidInvariant is returned when the fee-adjusted reserve product
	// would decrease.
	ErrInvalidInvariant = errors.New("invariant violated")
	// ErrZeroAddress is returned when a recipient is the zero address.
	ErrZeroAddress = errors.New("zero recipient address")
)

var (
	thousand        = big.NewInt(1000)
	three           = big.NewInt(3)
	thousandSquared = new(big.Int).Mul(thousand, thousand)
)

// Pool is a single token-pair exchange. The mutex reproduces the host
// guarantee the deployed system gets for free: operations against one pool
// are serialized and each commits or fails as a whole.
type Pool struct {
	mu sync.Mutex

	addr     common.Address
	registry common.Address
	ledger   token.Ledger
	feed     *events.Feed

	token0      common.Address
	token1      common.Address
	initialized bool

	reserve0    *big.Int
	reserve1    *big.Int
	totalShares *big.Int
	shares      map[common.Address]*big.Int
}

// New returns an empty, uninitialized pool at the given derived address.
// Only the registry that created it may bind its tokens.
func New(addr, registry common.Address, ledger token.Ledger, feed *events.Feed) *Pool {
	return &Pool{
		addr:        addr,
		registry:    registry,
		ledger:      ledger,
		feed:        feed,
		reserve0:    new(big.Int),
		reserve1:    new(big.Int),
		totalShares: new(big.Int),
		shares:      make(map[common.Address]*big.Int),
	}
}

// Initialize binds the canonically ordered token pair, exactly once.
func (p *Pool) Initialize(caller, token0, token1 common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if caller != p.registry {
		return ErrForbidden
	}
	if p.initialized {
		return ErrAlreadyInitialized
	}
	p.token0 = token0
	p.token1 = token1
	p.initialized = true
	return nil
}

// Mint issues liquidity shares to the recipient for the un-recorded surplus
// the caller has already transferred in: balance minus reserve on each side.
// The first deposit mints floor(sqrt(amount0*amount1)); later deposits mint
// by the minority-side ratio, so over-supplying one side wastes the excess
// into the reserves.
func (p *Pool) Mint(sender, to common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, ErrNotInitialized
	}
	if to == (common.Address{}) {
		return nil, ErrZeroAddress
	}

	balance0 := p.ledger.BalanceOf(p.token0, p.addr)
	balance1 := p.ledger.BalanceOf(p.token1, p.addr)
	amount0 := new(big.Int).Sub(balance0, p.reserve0)
	amount1 := new(big.Int).Sub(balance1, p.reserve1)

	issued := new(big.Int)
	if p.totalShares.Sign() == 0 {
		if amount0.Sign() > 0 && amount1.Sign() > 0 {
			issued.Sqrt(new(big.Int).Mul(amount0, amount1))
		}
	} else if amount0.Sign() > 0 && amount1.Sign() > 0 {
		byAmount0 := new(big.Int).Mul(p.totalShares, amount0)
		byAmount0.Div(byAmount0, p.reserve0)
		byAmount1 := new(big.Int).Mul(p.totalShares, amount1)
		byAmount1.Div(byAmount1, p.reserve1)
		if byAmount0.Cmp(byAmount1) < 0 {
			issued.Set(byAmount0)
		} else {
			issued.Set(byAmount1)
		}
	}
	if issued.Sign() <= 0 {
		return nil, ErrInsufficientLiquidityMinted
	}

	p.creditShares(to, issued)
	p.totalShares.Add(p.totalShares, issued)
	p.sync(balance0, balance1)

	p.feed.Publish(events.Mint{
		Pool:    p.addr,
		Sender:  sender,
		Amount0: new(big.Int).Set(amount0),
		Amount1: new(big.Int).Set(amount1),
		To:      to,
	})
	return new(big.Int).Set(issued), nil
}

// Burn redeems the shares held at the pool's own address and pays the
// proportional cut of both balances to the recipient. The caller must move
// shares to the pool first; this transfer-then-call protocol is deliberate
// and mirrors the deposit flow.
func (p *Pool) Burn(sender, to common.Address) (amount0, amount1 *big.Int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return nil, nil, ErrNotInitialized
	}
	if to == (common.Address{}) {
		return nil, nil, ErrZeroAddress
	}

	held := p.sharesOf(p.addr)
	if held.Sign() <= 0 {
		return nil, nil, ErrInsufficientLiquidityBurned
	}

	balance0 := p.ledger.BalanceOf(p.token0, p.addr)
	balance1 := p.ledger.BalanceOf(p.token1, p.addr)
	amount0 = new(big.Int).Mul(held, balance0)
	amount0.Div(amount0, p.totalShares)
	amount1 = new(big.Int).Mul(held, balance1)
	amount1.Div(amount1, p.totalShares)

	// Pool-held balances always cover the proportional amounts, so the
	// payouts cannot fail once the recipient is validated.
	if err := p.ledger.Transfer(p.token0, p.addr, to, amount0); err != nil {
		return nil, nil, err
	}
	if err := p.ledger.Transfer(p.token1, p.addr, to, amount1); err != nil {
		return nil, nil, err
	}

	p.totalShares.Sub(p.totalShares, held)
	delete(p.shares, p.addr)
	p.sync(p.ledger.BalanceOf(p.token0, p.addr), p.ledger.BalanceOf(p.token1, p.addr))

	p.feed.Publish(events.Burn{
		Pool:    p.addr,
		Sender:  sender,
		Amount0: new(big.Int).Set(amount0),
		Amount1: new(big.Int).Set(amount1),
		To:      to,
	})
	return amount0, amount1, nil
}

// Swap pays the requested output amounts to the recipient, inferring the
// input from the surplus already sitting above the reserves. The fee-scaled
// product check makes reserve0*reserve1 non-decreasing net of the 0.3% fee.
// Every check runs before any transfer, so a failed swap leaves reserves and
// balances exactly as they were.
func (p *Pool) Swap(sender common.Address, amount0Out, amount1Out *big.Int, to common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.initialized {
		return ErrNotInitialized
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}
	if amount0Out == nil {
		amount0Out = new(big.Int)
	}
	if amount1Out == nil {
		amount1Out = new(big.Int)
	}
	if amount0Out.Sign() <= 0 && amount1Out.Sign() <= 0 {
		return ErrInsufficientOutputAmount
	}
	if amount0Out.Cmp(p.reserve0) >= 0 || amount1Out.Cmp(p.reserve1) >= 0 {
		return ErrInsufficientLiquidity
	}

	balance0 := p.ledger.BalanceOf(p.token0, p.addr)
	balance1 := p.ledger.BalanceOf(p.token1, p.addr)
	balance0.Sub(balance0, amount0Out)
	balance1.Sub(balance1, amount1Out)

	amount0In := inferredInput(balance0, p.reserve0, amount0Out)
	amount1In := inferredInput(balance1, p.reserve1, amount1Out)
	if amount0In.Sign() == 0 && amount1In.Sign() == 0 {
		return ErrInsufficientInputAmount
	}

	// (balance0*1000 - 3*in0) * (balance1*1000 - 3*in1) >= r0*r1*1000^2
	adjusted0 := new(big.Int).Mul(balance0, thousand)
	adjusted0.Sub(adjusted0, new(big.Int).Mul(amount0In, three))
	adjusted1 := new(big.Int).Mul(balance1, thousand)
	adjusted1.Sub(adjusted1, new(big.Int).Mul(amount1In, three))

	invariant := new(big.Int).Mul(p.reserve0, p.reserve1)
	invariant.Mul(invariant, thousandSquared)
	if new(big.Int).Mul(adjusted0, adjusted1).Cmp(invariant) < 0 {
		return ErrInvalidInvariant
	}

	if amount0Out.Sign() > 0 {
		if err := p.ledger.Transfer(p.token0, p.addr, to, amount0Out); err != nil {
			return err
		}
	}
	if amount1Out.Sign() > 0 {
		if err := p.ledger.Transfer(p.token1, p.addr, to, amount1Out); err != nil {
			return err
		}
	}
	p.sync(balance0, balance1)

	p.feed.Publish(events.Swap{
		Pool:       p.addr,
		Sender:     sender,
		Amount0In:  amount0In,
		Amount1In:  amount1In,
		Amount0Out: new(big.Int).Set(amount0Out),
		Amount1Out: new(big.Int).Set(amount1Out),
		To:         to,
	})
	return nil
}

// inferredInput returns balance - (reserve - amountOut) clamped at zero: the
// net amount that arrived on this side since the last sync.
func inferredInput(balance, reserve, amountOut *big.Int) *big.Int {
	expected := new(big.Int).Sub(reserve, amountOut)
	in := new(big.Int).Sub(balance, expected)
	if in.Sign() < 0 {
		in.SetInt64(0)
	}
	return in
}

// sync records the given balances as the new reserves and announces them.
func (p *Pool) sync(balance0, balance1 *big.Int) {
	p.reserve0.Set(balance0)
	p.reserve1.Set(balance1)
	p.feed.Publish(events.Sync{
		Pool:     p.addr,
		Reserve0: new(big.Int).Set(p.reserve0),
		Reserve1: new(big.Int).Set(p.reserve1),
	})
}

// creditShares adds amount to the holder's share balance.
func (p *Pool) creditShares(holder common.Address, amount *big.Int) {
	bal, ok := p.shares[holder]
	if !ok {
		bal = new(big.Int)
		p.shares[holder] = bal
	}
	bal.Add(bal, amount)
}

// sharesOf returns the live share balance for holder, zero if absent.
// Callers must hold p.mu.
func (p *Pool) sharesOf(holder common.Address) *big.Int {
	if bal, ok := p.shares[holder]; ok {
		return bal
	}
	return new(big.Int)
}

// TransferShares moves liquidity shares between holders. The router uses it
// to push a caller's shares to the pool's own address ahead of Burn.
func (p *Pool) TransferShares(from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return token.ErrInvalidAmount
	}
	if to == (common.Address{}) {
		return ErrZeroAddress
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	fromBal := p.sharesOf(from)
	if fromBal.Cmp(amount) < 0 {
		return token.ErrInsufficientBalance
	}
	fromBal.Sub(fromBal, amount)
	p.shares[from] = fromBal
	p.creditShares(to, amount)
	return nil
}

// Address returns the pool's derived address.
func (p *Pool) Address() common.Address { return p.addr }

// Tokens returns the canonically ordered pair. The zero pair means the pool
// is not yet initialized.
func (p *Pool) Tokens() (token0, token1 common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.token0, p.token1
}

// Reserves returns copies of the last-synchronized reserves.
func (p *Pool) Reserves() (reserve0, reserve1 *big.Int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.reserve0), new(big.Int).Set(p.reserve1)
}

// TotalShares returns a copy of the outstanding share supply.
func (p *Pool) TotalShares() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.totalShares)
}

// SharesOf returns a copy of the holder's share balance.
func (p *Pool) SharesOf(holder common.Address) *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.sharesOf(holder))
}
