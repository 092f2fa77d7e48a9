package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Web3Horizon/dex-contracts-v2/events"
	"github.com/Web3Horizon/dex-contracts-v2/token"
)

var (
	registryAddr = common.HexToAddress("0x00000000000000000000000000000000000000fa")
	poolAddr     = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token0Addr   = common.HexToAddress("0x0000000000000000000000000000000000000001")
	token1Addr   = common.HexToAddress("0x0000000000000000000000000000000000000002")
	alice        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob          = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

// newTestPool returns an initialized pool and its backing ledger.
func newTestPool(t *testing.T) (*Pool, *token.MemoryLedger) {
	t.Helper()
	ledger := token.NewMemoryLedger()
	p := New(poolAddr, registryAddr, ledger, events.NewFeed())
	require.NoError(t, p.Initialize(registryAddr, token0Addr, token1Addr))
	return p, ledger
}

// deposit pushes the amounts to the pool's holdings and mints to the
// recipient, mirroring the transfer-then-call protocol.
func deposit(t *testing.T, p *Pool, ledger *token.MemoryLedger, amount0, amount1 int64, to common.Address) *big.Int {
	t.Helper()
	require.NoError(t, ledger.Mint(token0Addr, poolAddr, big.NewInt(amount0)))
	require.NoError(t, ledger.Mint(token1Addr, poolAddr, big.NewInt(amount1)))
	shares, err := p.Mint(to, to)
	require.NoError(t, err)
	return shares
}

func TestInitialize(t *testing.T) {
	ledger := token.NewMemoryLedger()
	p := New(poolAddr, registryAddr, ledger, events.NewFeed())

	// Only the creating registry may bind tokens.
	require.ErrorIs(t, p.Initialize(alice, token0Addr, token1Addr), ErrForbidden)

	require.NoError(t, p.Initialize(registryAddr, token0Addr, token1Addr))
	got0, got1 := p.Tokens()
	assert.Equal(t, token0Addr, got0)
	assert.Equal(t, token1Addr, got1)

	// Exactly once.
	require.ErrorIs(t, p.Initialize(registryAddr, token0Addr, token1Addr), ErrAlreadyInitialized)
}

func TestMint_FirstDeposit(t *testing.T) {
	p, ledger := newTestPool(t)

	// floor(sqrt(1*10)) = 3.
	shares := deposit(t, p, ledger, 1, 10, alice)
	assert.Equal(t, 0, big.NewInt(3).Cmp(shares))
	assert.Equal(t, 0, big.NewInt(3).Cmp(p.TotalShares()))
	assert.Equal(t, 0, big.NewInt(3).Cmp(p.SharesOf(alice)))

	reserve0, reserve1 := p.Reserves()
	assert.Equal(t, 0, big.NewInt(1).Cmp(reserve0))
	assert.Equal(t, 0, big.NewInt(10).Cmp(reserve1))
}

func TestMint_ProportionalDeposit(t *testing.T) {
	p, ledger := newTestPool(t)

	first := deposit(t, p, ledger, 1, 10, alice)

	// An identical second deposit mints exactly the prior total and doubles
	// the reserves.
	second := deposit(t, p, ledger, 1, 10, alice)
	assert.Equal(t, 0, first.Cmp(second))

	reserve0, reserve1 := p.Reserves()
	assert.Equal(t, 0, big.NewInt(2).Cmp(reserve0))
	assert.Equal(t, 0, big.NewInt(20).Cmp(reserve1))
	assert.Equal(t, 0, big.NewInt(6).Cmp(p.TotalShares()))
}

func TestMint_LopsidedDepositWastesExcess(t *testing.T) {
	p, ledger := newTestPool(t)

	deposit(t, p, ledger, 1, 10, alice)

	// (1, 100) into a 1:10 pool mints as if (1, 10) had been contributed;
	// the surplus 90 folds into reserves without shares.
	shares := deposit(t, p, ledger, 1, 100, bob)
	assert.Equal(t, 0, big.NewInt(3).Cmp(shares))

	reserve0, reserve1 := p.Reserves()
	assert.Equal(t, 0, big.NewInt(2).Cmp(reserve0))
	assert.Equal(t, 0, big.NewInt(110).Cmp(reserve1))
}

func TestMint_NonDecreasingProduct(t *testing.T) {
	p, ledger := newTestPool(t)

	deposit(t, p, ledger, 1000, 2000, alice)
	r0Before, r1Before := p.Reserves()
	productBefore := new(big.Int).Mul(r0Before, r1Before)

	deposit(t, p, ledger, 500, 1300, bob)
	r0After, r1After := p.Reserves()
	productAfter := new(big.Int).Mul(r0After, r1After)

	assert.True(t, productAfter.Cmp(productBefore) >= 0,
		"reserve product decreased: %s -> %s", productBefore, productAfter)
}

func TestMint_OneSidedDepositFails(t *testing.T) {
	p, ledger := newTestPool(t)
	deposit(t, p, ledger, 1000, 1000, alice)

	// Surplus on one side only mints nothing.
	require.NoError(t, ledger.Mint(token0Addr, poolAddr, big.NewInt(500)))
	_, err := p.Mint(bob, bob)
	require.ErrorIs(t, err, ErrInsufficientLiquidityMinted)
}

func TestBurn_FullWithdrawal(t *testing.T) {
	p, ledger := newTestPool(t)

	// Alice funds her own balance, then deposits everything.
	require.NoError(t, ledger.Mint(token0Addr, alice, big.NewInt(400)))
	require.NoError(t, ledger.Mint(token1Addr, alice, big.NewInt(900)))
	require.NoError(t, ledger.Transfer(token0Addr, alice, poolAddr, big.NewInt(400)))
	require.NoError(t, ledger.Transfer(token1Addr, alice, poolAddr, big.NewInt(900)))
	shares, err := p.Mint(alice, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(600).Cmp(shares)) // sqrt(400*900)

	// Transfer-then-call: shares must sit at the pool's own address.
	require.NoError(t, p.TransferShares(alice, poolAddr, shares))
	amount0, amount1, err := p.Burn(alice, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(400).Cmp(amount0))
	assert.Equal(t, 0, big.NewInt(900).Cmp(amount1))

	// Reserves drained to zero, balances restored.
	reserve0, reserve1 := p.Reserves()
	assert.Equal(t, 0, reserve0.Sign())
	assert.Equal(t, 0, reserve1.Sign())
	assert.Equal(t, 0, big.NewInt(400).Cmp(ledger.BalanceOf(token0Addr, alice)))
	assert.Equal(t, 0, big.NewInt(900).Cmp(ledger.BalanceOf(token1Addr, alice)))
	assert.Equal(t, 0, p.TotalShares().Sign())
}

func TestBurn_WithoutTransferredShares(t *testing.T) {
	p, ledger := newTestPool(t)
	deposit(t, p, ledger, 400, 900, alice)

	// Alice holds shares but never moved them to the pool.
	_, _, err := p.Burn(alice, alice)
	require.ErrorIs(t, err, ErrInsufficientLiquidityBurned)
}

func TestBurn_SequencingHazard(t *testing.T) {
	p, ledger := newTestPool(t)
	aliceShares := deposit(t, p, ledger, 1000, 1000, alice)
	bobShares := deposit(t, p, ledger, 1000, 1000, bob)

	// Both holders push their shares before either calls Burn. The single
	// call burns everything sitting at the pool address and pays it all to
	// the first caller's recipient: the documented sequencing hazard of the
	// transfer-then-call protocol.
	require.NoError(t, p.TransferShares(alice, poolAddr, aliceShares))
	require.NoError(t, p.TransferShares(bob, poolAddr, bobShares))

	amount0, amount1, err := p.Burn(alice, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, big.NewInt(2000).Cmp(amount0))
	assert.Equal(t, 0, big.NewInt(2000).Cmp(amount1))

	// Bob's claim is gone.
	_, _, err = p.Burn(bob, bob)
	require.ErrorIs(t, err, ErrInsufficientLiquidityBurned)
}

func TestSwap(t *testing.T) {
	p, ledger := newTestPool(t)
	deposit(t, p, ledger, 10000, 20000, alice)

	// Bob pushes 1000 of token0 in, then asks for the quoted 1813 out.
	require.NoError(t, ledger.Mint(token0Addr, bob, big.NewInt(1000)))
	require.NoError(t, ledger.Transfer(token0Addr, bob, poolAddr, big.NewInt(1000)))
	require.NoError(t, p.Swap(bob, nil, big.NewInt(1813), bob))

	assert.Equal(t, 0, big.NewInt(1813).Cmp(ledger.BalanceOf(token1Addr, bob)))
	reserve0, reserve1 := p.Reserves()
	assert.Equal(t, 0, big.NewInt(11000).Cmp(reserve0))
	assert.Equal(t, 0, big.NewInt(18187).Cmp(reserve1))
}

func TestSwap_InvariantViolation(t *testing.T) {
	p, ledger := newTestPool(t)
	deposit(t, p, ledger, 10000, 20000, alice)

	require.NoError(t, ledger.Mint(token0Addr, bob, big.NewInt(1000)))
	require.NoError(t, ledger.Transfer(token0Addr, bob, poolAddr, big.NewInt(1000)))

	// 1814 is one unit beyond what the fee-adjusted invariant allows for a
	// 1000 input.
	err := p.Swap(bob, nil, big.NewInt(1814), bob)
	require.ErrorIs(t, err, ErrInvalidInvariant)

	// Reserves unchanged from their pre-call value.
	reserve0, reserve1 := p.Reserves()
	assert.Equal(t, 0, big.NewInt(10000).Cmp(reserve0))
	assert.Equal(t, 0, big.NewInt(20000).Cmp(reserve1))
	assert.Equal(t, 0, ledger.BalanceOf(token1Addr, bob).Sign())
}

func TestSwap_Validation(t *testing.T) {
	p, ledger := newTestPool(t)
	deposit(t, p, ledger, 10000, 20000, alice)

	testCases := []struct {
		name        string
		amount0Out  *big.Int
		amount1Out  *big.Int
		expectedErr error
	}{
		{
			name:        "No Output Requested",
			amount0Out:  big.NewInt(0),
			amount1Out:  big.NewInt(0),
			expectedErr: ErrInsufficientOutputAmount,
		},
		{
			name:        "Output Exceeds Reserve",
			amount0Out:  big.NewInt(0),
			amount1Out:  big.NewInt(20000),
			expectedErr: ErrInsufficientLiquidity,
		},
		{
			name:        "No Input Provided",
			amount0Out:  big.NewInt(0),
			amount1Out:  big.NewInt(100),
			expectedErr: ErrInsufficientInputAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := p.Swap(bob, tc.amount0Out, tc.amount1Out, bob)
			require.ErrorIs(t, err, tc.expectedErr)
		})
	}
}

func TestBurn_CollectsTradingFees(t *testing.T) {
	p, ledger := newTestPool(t)
	shares := deposit(t, p, ledger, 10000, 20000, alice)

	// A round of trading leaves fees in the reserves.
	require.NoError(t, ledger.Mint(token0Addr, bob, big.NewInt(1000)))
	require.NoError(t, ledger.Transfer(token0Addr, bob, poolAddr, big.NewInt(1000)))
	require.NoError(t, p.Swap(bob, nil, big.NewInt(1813), bob))

	require.NoError(t, p.TransferShares(alice, poolAddr, shares))
	amount0, amount1, err := p.Burn(alice, alice)
	require.NoError(t, err)

	// The sole provider withdraws the whole post-trade holdings.
	assert.Equal(t, 0, big.NewInt(11000).Cmp(amount0))
	assert.Equal(t, 0, big.NewInt(18187).Cmp(amount1))
	reserve0, reserve1 := p.Reserves()
	assert.Equal(t, 0, reserve0.Sign())
	assert.Equal(t, 0, reserve1.Sign())
}

func TestSwap_EmitsEvents(t *testing.T) {
	ledger := token.NewMemoryLedger()
	feed := events.NewFeed()
	p := New(poolAddr, registryAddr, ledger, feed)
	require.NoError(t, p.Initialize(registryAddr, token0Addr, token1Addr))

	sub, cancel := feed.Subscribe(16)
	defer cancel()

	require.NoError(t, ledger.Mint(token0Addr, poolAddr, big.NewInt(10000)))
	require.NoError(t, ledger.Mint(token1Addr, poolAddr, big.NewInt(20000)))
	_, err := p.Mint(alice, alice)
	require.NoError(t, err)

	require.NoError(t, ledger.Mint(token0Addr, poolAddr, big.NewInt(1000)))
	require.NoError(t, p.Swap(bob, nil, big.NewInt(1813), bob))

	var names []string
	for len(sub) > 0 {
		names = append(names, (<-sub).Name())
	}
	assert.Equal(t, []string{"Sync", "Mint", "Sync", "Swap"}, names)
}
