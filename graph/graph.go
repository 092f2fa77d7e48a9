// Package graph maintains the token-to-token connectivity induced by the
// registered pools, stored as index-mapped adjacency slices for
// cache-friendly traversal. Callers that know only two endpoint tokens use
// it to discover a multi-hop swap path.
package graph

import (
	"errors"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Web3Horizon/dex-contracts-v2/bitset"
)

var (
	// ErrUnknownToken is returned when a path endpoint has no pool at all.
	ErrUnknownToken = errors.New("token not present in any pool")
	// ErrNoPath is returned when no chain of pools connects the endpoints.
	ErrNoPath = errors.New("no pool path between tokens")
)

// edge is one traversable hop: the target token's index and the pool that
// prices the hop.
type edge struct {
	to   int
	pool common.Address
}

// Graph is a symmetric token adjacency structure. It only ever grows;
// pools are never destroyed, so edges are never removed.
type Graph struct {
	mu           sync.RWMutex
	tokenToIndex map[common.Address]int
	tokens       []common.Address
	adjacency    [][]edge
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{tokenToIndex: make(map[common.Address]int)}
}

// AddPool records a pool connecting the two tokens, in both directions.
// Registering the same pool twice is a no-op.
func (g *Graph) AddPool(tokenA, tokenB, pool common.Address) {
	g.mu.Lock()
	defer g.mu.Unlock()

	a := g.index(tokenA)
	b := g.index(tokenB)
	g.addEdge(a, b, pool)
	g.addEdge(b, a, pool)
}

// index returns the slot for a token, appending it if new. Callers must
// hold g.mu.
func (g *Graph) index(t common.Address) int {
	if i, ok := g.tokenToIndex[t]; ok {
		return i
	}
	i := len(g.tokens)
	g.tokens = append(g.tokens, t)
	g.adjacency = append(g.adjacency, nil)
	g.tokenToIndex[t] = i
	return i
}

func (g *Graph) addEdge(from, to int, pool common.Address) {
	for _, e := range g.adjacency[from] {
		if e.to == to && e.pool == pool {
			return
		}
	}
	g.adjacency[from] = append(g.adjacency[from], edge{to: to, pool: pool})
}

// ShortestPath returns the fewest-hop token path from tokenIn to tokenOut,
// endpoints included, suitable for the router's multi-hop swaps. Ties are
// broken by insertion order, so results are deterministic.
func (g *Graph) ShortestPath(tokenIn, tokenOut common.Address) ([]common.Address, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	from, ok := g.tokenToIndex[tokenIn]
	if !ok {
		return nil, ErrUnknownToken
	}
	to, ok := g.tokenToIndex[tokenOut]
	if !ok {
		return nil, ErrUnknownToken
	}
	if from == to {
		return []common.Address{tokenIn}, nil
	}

	visited := bitset.New(uint64(len(g.tokens)))
	visited.Set(uint64(from))
	parent := make([]int, len(g.tokens))
	for i := range parent {
		parent[i] = -1
	}

	queue := []int{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, e := range g.adjacency[current] {
			if visited.IsSet(uint64(e.to)) {
				continue
			}
			visited.Set(uint64(e.to))
			parent[e.to] = current
			if e.to == to {
				return g.assemblePath(parent, from, to), nil
			}
			queue = append(queue, e.to)
		}
	}
	return nil, ErrNoPath
}

// assemblePath walks the parent links back from the target and reverses the
// result into token order.
func (g *Graph) assemblePath(parent []int, from, to int) []common.Address {
	var reversed []int
	for i := to; i != -1; i = parent[i] {
		reversed = append(reversed, i)
		if i == from {
			break
		}
	}
	path := make([]common.Address, len(reversed))
	for i, idx := range reversed {
		path[len(reversed)-1-i] = g.tokens[idx]
	}
	return path
}

// Len returns the number of distinct tokens in the graph.
func (g *Graph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.tokens)
}
