package wallet

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeChain implements ChainReader and Broadcaster for tests.
type fakeChain struct {
	mu         sync.Mutex
	balanceWei *big.Int
	balanceErr error
	calls      int
}

func (c *fakeChain) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.balanceErr != nil {
		return nil, c.balanceErr
	}
	return new(big.Int).Set(c.balanceWei), nil
}

func (c *fakeChain) setBalance(wei *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balanceWei = wei
}

func (c *fakeChain) queryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// fakePrice implements PriceFeed.
type fakePrice struct {
	price string
	err   error
}

func (p *fakePrice) BNBPriceUSD(context.Context) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return p.price, nil
}

func oneBNB() *big.Int {
	wei, _ := new(big.Int).SetString("1000000000000000000", 10)
	return wei
}

func TestRefreshPublishesSnapshot(t *testing.T) {
	chain := &fakeChain{balanceWei: oneBNB()}
	svc := NewBalanceService(chain, &fakePrice{price: "616.45"}, zap.NewNop())

	snap := svc.Refresh(context.Background(), "0xABCD")
	require.NotNil(t, snap)
	assert.Equal(t, "0xABCD", snap.Address)
	assert.Equal(t, "1.0000", snap.Native)
	assert.Equal(t, "616.45", snap.PriceUSD)
	assert.Equal(t, "616.45", snap.FiatUSD)
	assert.Same(t, snap, svc.Snapshot())
}

func TestRefreshFailsSoftKeepingPreviousSnapshot(t *testing.T) {
	chain := &fakeChain{balanceWei: oneBNB()}
	svc := NewBalanceService(chain, &fakePrice{price: "616.45"}, zap.NewNop())

	first := svc.Refresh(context.Background(), "0xABCD")
	require.NotNil(t, first)

	chain.balanceErr = errors.New("rpc timeout")
	second := svc.Refresh(context.Background(), "0xABCD")
	assert.Same(t, first, second, "query failure must keep the previous snapshot")
	assert.Same(t, first, svc.Snapshot())
}

func TestRefreshBeforeAnySuccessReturnsNil(t *testing.T) {
	chain := &fakeChain{balanceErr: errors.New("rpc down")}
	svc := NewBalanceService(chain, &fakePrice{price: "616.45"}, zap.NewNop())

	assert.Nil(t, svc.Refresh(context.Background(), "0xABCD"))
	assert.Nil(t, svc.Snapshot())
}

func TestRefreshReusesLastQuoteOnPriceFailure(t *testing.T) {
	chain := &fakeChain{balanceWei: oneBNB()}
	price := &fakePrice{price: "616.45"}
	svc := NewBalanceService(chain, price, zap.NewNop())

	svc.Refresh(context.Background(), "0xABCD")

	price.err = errors.New("feed down")
	chain.setBalance(new(big.Int).Mul(oneBNB(), big.NewInt(2)))
	snap := svc.Refresh(context.Background(), "0xABCD")
	require.NotNil(t, snap)
	assert.Equal(t, "2.0000", snap.Native)
	assert.Equal(t, "616.45", snap.PriceUSD)
	assert.Equal(t, "1232.90", snap.FiatUSD)
}

func TestStaticPriceFeed(t *testing.T) {
	feed := StaticPriceFeed{PriceUSD: "616.45"}
	price, err := feed.BNBPriceUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "616.45", price)
}
