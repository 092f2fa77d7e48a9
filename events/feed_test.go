package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var poolAddr = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func TestFeed_DeliversInOrder(t *testing.T) {
	f := NewFeed()
	sub, cancel := f.Subscribe(8)
	defer cancel()

	f.Publish(Sync{Pool: poolAddr, Reserve0: big.NewInt(1), Reserve1: big.NewInt(2)})
	f.Publish(Swap{Pool: poolAddr})
	f.Publish(PoolCreated{Pool: poolAddr, Ordinal: 0})

	require.Len(t, sub, 3)
	assert.Equal(t, "Sync", (<-sub).Name())
	assert.Equal(t, "Swap", (<-sub).Name())
	assert.Equal(t, "PoolCreated", (<-sub).Name())
}

func TestFeed_MultipleSubscribers(t *testing.T) {
	f := NewFeed()
	first, cancelFirst := f.Subscribe(4)
	defer cancelFirst()
	second, cancelSecond := f.Subscribe(4)
	defer cancelSecond()

	f.Publish(Mint{Pool: poolAddr})

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestFeed_FullSubscriberDropsNotBlocks(t *testing.T) {
	f := NewFeed()
	sub, cancel := f.Subscribe(1)
	defer cancel()

	f.Publish(Mint{Pool: poolAddr})
	f.Publish(Burn{Pool: poolAddr}) // dropped, buffer is full

	require.Len(t, sub, 1)
	assert.Equal(t, "Mint", (<-sub).Name())
}

func TestFeed_Cancel(t *testing.T) {
	f := NewFeed()
	sub, cancel := f.Subscribe(4)

	cancel()
	// Cancel is idempotent and closes the channel.
	cancel()
	_, open := <-sub
	assert.False(t, open)

	// Publishing after cancel reaches nobody and does not panic.
	f.Publish(Mint{Pool: poolAddr})
}

func TestFeed_NilFeedPublishes(t *testing.T) {
	var f *Feed
	f.Publish(Mint{Pool: poolAddr}) // no-op
}
