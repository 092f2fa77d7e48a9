// Package quoter is the stateless quoting library of the exchange: pure
// mappings from (amounts, reserves) to amounts, canonical token ordering and
// deterministic pool-address derivation. Every function fails explicitly
// instead of returning a degenerate zero or negative result.
package quoter

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// The swap fee is 0.3%: amounts are scaled by 1000 and the fee-bearing side
// by 997. Fixed-point integer math only, so rounding is reproducible.
var (
	feeNumerator   = big.NewInt(997)
	feeDenominator = big.NewInt(1000)
)

var (
	// ErrInsufficientAmount is returned when a quoted amount is zero, nil or negative.
	ErrInsufficientAmount = errors.New("insufficient amount")
	// ErrInsufficientLiquidity is returned when a reserve is empty or an output
	// exceeds what the fee-adjusted reserve can pay.
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")
	// ErrInvalidPath is returned when a swap path has fewer than two tokens.
	ErrInvalidPath = errors.New("invalid path")
	// ErrIdenticalAddresses is returned when a pair names the same token twice.
	ErrIdenticalAddresses = errors.New("identical token addresses")
	// ErrZeroAddress is returned when a pair contains the zero address.
	ErrZeroAddress = errors.New("zero token address")
)

// poolCodeHash stands in for the pool template's init code. The derived pool
// address is a pure function of (registry, canonical pair, this hash), so the
// registry and any off-registry caller agree on it without a lookup.
var poolCodeHash = crypto.Keccak256Hash([]byte("constant-product-pool/v1"))

// SortTokens returns the pair in canonical order: the lower address occupies
// slot 0. It rejects identical tokens and, after ordering, the zero address.
func SortTokens(tokenA, tokenB common.Address) (token0, token1 common.Address, err error) {
	if tokenA == tokenB {
		return common.Address{}, common.Address{}, ErrIdenticalAddresses
	}
	if bytes.Compare(tokenA[:], tokenB[:]) < 0 {
		token0, token1 = tokenA, tokenB
	} else {
		token0, token1 = tokenB, tokenA
	}
	if token0 == (common.Address{}) {
		return common.Address{}, common.Address{}, ErrZeroAddress
	}
	return token0, token1, nil
}

// PoolFor derives the pool address for a token pair under the given registry.
// It mirrors the registry's creation algorithm exactly; both sides call this
// one function, so the two can never drift.
func PoolFor(registry, tokenA, tokenB common.Address) (common.Address, error) {
	token0, token1, err := SortTokens(tokenA, tokenB)
	if err != nil {
		return common.Address{}, err
	}

	salt := crypto.Keccak256(token0.Bytes(), token1.Bytes())
	preimage := make([]byte, 0, 1+common.AddressLength+2*common.HashLength)
	preimage = append(preimage, 0xff)
	preimage = append(preimage, registry.Bytes()...)
	preimage = append(preimage, salt...)
	preimage = append(preimage, poolCodeHash.Bytes()...)

	return common.BytesToAddress(crypto.Keccak256(preimage)[12:]), nil
}

// calculator holds reusable big.Int temporaries so the hot quoting paths do
// not allocate. Instances are not safe for concurrent use on their own; they
// are handed out by calculatorPool.
type calculator struct {
	amountInWithFee *big.Int
	numerator       *big.Int
	denominator     *big.Int
}

var calculatorPool = sync.Pool{
	New: func() any {
		return &calculator{
			amountInWithFee: new(big.Int),
			numerator:       new(big.Int),
			denominator:     new(big.Int),
		}
	},
}

// Quote returns the proportional counterpart amount for a deposit:
// floor(amountIn * reserveOut / reserveIn). No fee applies to deposits.
func Quote(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	out := new(big.Int).Mul(amountIn, reserveOut)
	return out.Div(out, reserveIn), nil
}

// GetAmountOut returns the maximum output for an exact input against one
// pool: floor(amountIn*997*reserveOut / (reserveIn*1000 + amountIn*997)).
func GetAmountOut(amountIn, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	calc := calculatorPool.Get().(*calculator)
	defer calculatorPool.Put(calc)

	calc.amountInWithFee.Mul(amountIn, feeNumerator)
	calc.numerator.Mul(calc.amountInWithFee, reserveOut)
	calc.denominator.Mul(reserveIn, feeDenominator)
	calc.denominator.Add(calc.denominator, calc.amountInWithFee)

	return new(big.Int).Div(calc.numerator, calc.denominator), nil
}

// GetAmountIn returns the input required for an exact output against one
// pool: floor(amountOut*reserveIn*1000 / (reserveOut*997 - amountOut*1000)).
// The request is undefined once amountOut reaches the fee-adjusted reserve
// ceiling reserveOut*997/1000; that fails, it never wraps.
func GetAmountIn(amountOut, reserveIn, reserveOut *big.Int) (*big.Int, error) {
	if amountOut == nil || amountOut.Sign() <= 0 {
		return nil, ErrInsufficientAmount
	}
	if reserveIn == nil || reserveIn.Sign() <= 0 || reserveOut == nil || reserveOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	calc := calculatorPool.Get().(*calculator)
	defer calculatorPool.Put(calc)

	calc.numerator.Mul(amountOut, reserveIn)
	calc.numerator.Mul(calc.numerator, feeDenominator)
	calc.denominator.Mul(reserveOut, feeNumerator)
	calc.amountInWithFee.Mul(amountOut, feeDenominator)
	calc.denominator.Sub(calc.denominator, calc.amountInWithFee)

	if calc.denominator.Sign() <= 0 {
		return nil, fmt.Errorf("%w: requested output %s exceeds fee-adjusted reserve %s*997/1000",
			ErrInsufficientLiquidity, amountOut.String(), reserveOut.String())
	}

	return new(big.Int).Div(calc.numerator, calc.denominator), nil
}
