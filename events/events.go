// Package events carries the typed notifications the exchange emits for
// external consumers. Events are informational only: no component of the
// core reads them back as control flow.
package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is implemented by every notification published on a Feed.
type Event interface {
	// Name returns the event's canonical name, e.g. "Swap".
	Name() string
}

// Mint records a liquidity deposit: the surplus amounts consumed and the
// shares recipient.
type Mint struct {
	Pool    common.Address
	Sender  common.Address
	Amount0 *big.Int
	Amount1 *big.Int
	To      common.Address
}

func (Mint) Name() string { return "Mint" }

// Burn records a liquidity withdrawal paid out to To.
type Burn struct {
	Pool    common.Address
	Sender  common.Address
	Amount0 *big.Int
	Amount1 *big.Int
	To      common.Address
}

func (Burn) Name() string { return "Burn" }

// Swap records a trade against a single pool.
type Swap struct {
	Pool       common.Address
	Sender     common.Address
	Amount0In  *big.Int
	Amount1In  *big.Int
	Amount0Out *big.Int
	Amount1Out *big.Int
	To         common.Address
}

func (Swap) Name() string { return "Swap" }

// Sync records a reserve resynchronization. One Sync follows every Mint,
// Burn and Swap.
type Sync struct {
	Pool     common.Address
	Reserve0 *big.Int
	Reserve1 *big.Int
}

func (Sync) Name() string { return "Sync" }

// PoolCreated records a new pool registered for a canonical token pair.
// Ordinal is the pool's position in the registry's append-only list.
type PoolCreated struct {
	Token0  common.Address
	Token1  common.Address
	Pool    common.Address
	Ordinal int
}

func (PoolCreated) Name() string { return "PoolCreated" }
