// Package registry maps each unordered token pair to exactly one pool. Pool
// addresses are derived, not stored, so any caller holding the registry's
// identity can locate a pool without a lookup; the registry's own maps exist
// for duplicate prevention and enumeration.
package registry

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Web3Horizon/dex-contracts-v2/events"
	"github.com/Web3Horizon/dex-contracts-v2/graph"
	"github.com/Web3Horizon/dex-contracts-v2/pool"
	"github.com/Web3Horizon/dex-contracts-v2/quoter"
	"github.com/Web3Horizon/dex-contracts-v2/token"
)

var (
	// ErrExistingPair is returned when a pool for the unordered pair already exists.
	ErrExistingPair = errors.New("pair already has a pool")
	// ErrUnknownPool is returned when no pool lives at a queried address.
	ErrUnknownPool = errors.New("unknown pool address")
)

// Config collects the registry's dependencies.
type Config struct {
	// Address is the registry's identity, an input to pool address derivation.
	Address common.Address
	// Ledger is the token collaborator handed to every created pool.
	Ledger token.Ledger
	// Feed receives PoolCreated and all pool events. Optional.
	Feed *events.Feed
	// Graph, when set, learns every created pool's token edge. Optional.
	Graph *graph.Graph
}

func (c *Config) validate() error {
	if c.Address == (common.Address{}) {
		return errors.New("registry address is required")
	}
	if c.Ledger == nil {
		return errors.New("token ledger is required")
	}
	return nil
}

// Registry creates and indexes pools. Entries are never removed.
type Registry struct {
	addr   common.Address
	ledger token.Ledger
	feed   *events.Feed
	graph  *graph.Graph

	mu     sync.RWMutex
	pairs  map[common.Address]map[common.Address]*pool.Pool
	byAddr map[common.Address]*pool.Pool
	all    []*pool.Pool
}

// New returns an empty registry.
func New(cfg Config) (*Registry, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid registry configuration: %w", err)
	}
	return &Registry{
		addr:   cfg.Address,
		ledger: cfg.Ledger,
		feed:   cfg.Feed,
		graph:  cfg.Graph,
		pairs:  make(map[common.Address]map[common.Address]*pool.Pool),
		byAddr: make(map[common.Address]*pool.Pool),
	}, nil
}

// CreatePool instantiates the pool for a token pair at its derived address,
// binds its tokens once and records the pair symmetrically. It fails on
// identical tokens, a zero token, or an already-registered pair.
func (r *Registry) CreatePool(tokenX, tokenY common.Address) (*pool.Pool, error) {
	token0, token1, err := quoter.SortTokens(tokenX, tokenY)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.pairs[token0][token1]; exists {
		return nil, ErrExistingPair
	}

	addr, err := quoter.PoolFor(r.addr, token0, token1)
	if err != nil {
		return nil, err
	}

	p := pool.New(addr, r.addr, r.ledger, r.feed)
	if err := p.Initialize(r.addr, token0, token1); err != nil {
		return nil, fmt.Errorf("binding tokens of pool %s: %w", addr.Hex(), err)
	}

	r.record(token0, token1, p)
	r.record(token1, token0, p)
	r.byAddr[addr] = p
	r.all = append(r.all, p)

	if r.graph != nil {
		r.graph.AddPool(token0, token1, addr)
	}
	r.feed.Publish(events.PoolCreated{
		Token0:  token0,
		Token1:  token1,
		Pool:    addr,
		Ordinal: len(r.all) - 1,
	})
	return p, nil
}

// record stores one direction of the pair mapping. Callers must hold r.mu.
func (r *Registry) record(a, b common.Address, p *pool.Pool) {
	inner, ok := r.pairs[a]
	if !ok {
		inner = make(map[common.Address]*pool.Pool)
		r.pairs[a] = inner
	}
	inner[b] = p
}

// PoolFor resolves the pool for an unordered pair.
func (r *Registry) PoolFor(tokenA, tokenB common.Address) (*pool.Pool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pairs[tokenA][tokenB]
	return p, ok
}

// PoolAt resolves the pool living at a derived address.
func (r *Registry) PoolAt(addr common.Address) (*pool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.byAddr[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPool, addr.Hex())
	}
	return p, nil
}

// ReservesAt reads the reserves of the pool at a derived address, in
// canonical slot order. Its signature matches quoter.ReservesFunc so quoting
// needs no pair-level registry round-trip.
func (r *Registry) ReservesAt(addr common.Address) (reserve0, reserve1 *big.Int, err error) {
	p, err := r.PoolAt(addr)
	if err != nil {
		return nil, nil, err
	}
	reserve0, reserve1 = p.Reserves()
	return reserve0, reserve1, nil
}

// AllPools returns the pools in creation order.
func (r *Registry) AllPools() []*pool.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pool.Pool, len(r.all))
	copy(out, r.all)
	return out
}

// Len returns the number of created pools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.all)
}

// Address returns the registry's identity used in address derivation.
func (r *Registry) Address() common.Address { return r.addr }
