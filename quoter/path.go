package quoter

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ReservesFunc reads the current reserves of the pool at the given derived
// address, in canonical slot order. It is a function dependency so the quoter
// stays stateless and never round-trips through the registry.
type ReservesFunc func(pool common.Address) (reserve0, reserve1 *big.Int, err error)

// reservesForHop resolves one hop's pool by pure derivation and returns its
// reserves oriented as (in, out) for the tokenIn -> tokenOut direction.
func reservesForHop(reserves ReservesFunc, registry, tokenIn, tokenOut common.Address) (reserveIn, reserveOut *big.Int, err error) {
	token0, _, err := SortTokens(tokenIn, tokenOut)
	if err != nil {
		return nil, nil, err
	}
	pool, err := PoolFor(registry, tokenIn, tokenOut)
	if err != nil {
		return nil, nil, err
	}
	reserve0, reserve1, err := reserves(pool)
	if err != nil {
		return nil, nil, fmt.Errorf("reading reserves of pool %s: %w", pool.Hex(), err)
	}
	if tokenIn == token0 {
		return reserve0, reserve1, nil
	}
	return reserve1, reserve0, nil
}

// GetAmountsOut chains GetAmountOut across consecutive path elements and
// returns the full amount array, anchored at amounts[0] == amountIn.
func GetAmountsOut(reserves ReservesFunc, registry common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	amounts := make([]*big.Int, len(path))
	amounts[0] = new(big.Int).Set(amountIn)
	for i := 0; i < len(path)-1; i++ {
		reserveIn, reserveOut, err := reservesForHop(reserves, registry, path[i], path[i+1])
		if err != nil {
			return nil, err
		}
		amounts[i+1], err = GetAmountOut(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, fmt.Errorf("hop %s -> %s: %w", path[i].Hex(), path[i+1].Hex(), err)
		}
	}
	return amounts, nil
}

// GetAmountsIn chains GetAmountIn backwards across the path and returns the
// full amount array, anchored at amounts[len-1] == amountOut.
func GetAmountsIn(reserves ReservesFunc, registry common.Address, amountOut *big.Int, path []common.Address) ([]*big.Int, error) {
	if len(path) < 2 {
		return nil, ErrInvalidPath
	}

	amounts := make([]*big.Int, len(path))
	amounts[len(amounts)-1] = new(big.Int).Set(amountOut)
	for i := len(path) - 1; i > 0; i-- {
		reserveIn, reserveOut, err := reservesForHop(reserves, registry, path[i-1], path[i])
		if err != nil {
			return nil, err
		}
		amounts[i-1], err = GetAmountIn(amounts[i], reserveIn, reserveOut)
		if err != nil {
			return nil, fmt.Errorf("hop %s -> %s: %w", path[i-1].Hex(), path[i].Hex(), err)
		}
	}
	return amounts, nil
}
