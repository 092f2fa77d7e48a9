package graph

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenA = common.HexToAddress("0x0000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0x0000000000000000000000000000000000000002")
	tokenC = common.HexToAddress("0x0000000000000000000000000000000000000003")
	tokenD = common.HexToAddress("0x0000000000000000000000000000000000000004")
	tokenE = common.HexToAddress("0x0000000000000000000000000000000000000005")

	poolAB = common.HexToAddress("0x00000000000000000000000000000000000000ab")
	poolBC = common.HexToAddress("0x00000000000000000000000000000000000000bc")
	poolCD = common.HexToAddress("0x00000000000000000000000000000000000000cd")
	poolAD = common.HexToAddress("0x00000000000000000000000000000000000000ad")
)

func TestShortestPath_Direct(t *testing.T) {
	g := New()
	g.AddPool(tokenA, tokenB, poolAB)

	path, err := g.ShortestPath(tokenA, tokenB)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenA, tokenB}, path)

	// Symmetric.
	path, err = g.ShortestPath(tokenB, tokenA)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenB, tokenA}, path)
}

func TestShortestPath_MultiHop(t *testing.T) {
	g := New()
	g.AddPool(tokenA, tokenB, poolAB)
	g.AddPool(tokenB, tokenC, poolBC)
	g.AddPool(tokenC, tokenD, poolCD)

	path, err := g.ShortestPath(tokenA, tokenD)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenA, tokenB, tokenC, tokenD}, path)

	// A direct pool shortens the route.
	g.AddPool(tokenA, tokenD, poolAD)
	path, err = g.ShortestPath(tokenA, tokenD)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenA, tokenD}, path)
}

func TestShortestPath_Failures(t *testing.T) {
	g := New()
	g.AddPool(tokenA, tokenB, poolAB)
	g.AddPool(tokenC, tokenD, poolCD)

	// Disconnected components.
	_, err := g.ShortestPath(tokenA, tokenC)
	require.ErrorIs(t, err, ErrNoPath)

	// Endpoint not in any pool.
	_, err = g.ShortestPath(tokenA, tokenE)
	require.ErrorIs(t, err, ErrUnknownToken)
}

func TestShortestPath_SameToken(t *testing.T) {
	g := New()
	g.AddPool(tokenA, tokenB, poolAB)

	path, err := g.ShortestPath(tokenA, tokenA)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenA}, path)
}

func TestAddPool_Idempotent(t *testing.T) {
	g := New()
	g.AddPool(tokenA, tokenB, poolAB)
	g.AddPool(tokenA, tokenB, poolAB)
	g.AddPool(tokenB, tokenA, poolAB)

	assert.Equal(t, 2, g.Len())
	path, err := g.ShortestPath(tokenA, tokenB)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{tokenA, tokenB}, path)
}
