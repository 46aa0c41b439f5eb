package wallet

import (
	"context"
	"math/big"
	"sync"

	"bnbw/internal/common"

	"go.uber.org/zap"
)

// ChainReader is the balance-query side of the chain collaborator.
type ChainReader interface {
	GetBalance(ctx context.Context, address string) (*big.Int, error)
}

// PriceFeed quotes the native asset in USD.
type PriceFeed interface {
	BNBPriceUSD(ctx context.Context) (string, error)
}

// StaticPriceFeed serves a fixed quote. The testnet asset has no market, so
// this is the default feed.
type StaticPriceFeed struct {
	PriceUSD string
}

// BNBPriceUSD returns the configured static quote.
func (f StaticPriceFeed) BNBPriceUSD(context.Context) (string, error) {
	return f.PriceUSD, nil
}

// Snapshot is the most recently fetched balance/price pair. It becomes stale
// immediately after an outgoing transaction until the next Refresh. Treated as
// immutable once published.
type Snapshot struct {
	Address  string
	Wei      *big.Int
	Native   string // 4 fractional digits
	PriceUSD string // 2 fractional digits
	FiatUSD  string // Native * PriceUSD, 2 fractional digits
}

// BalanceService queries and caches the displayed balance for the active
// address. Refresh fails softly: a query error keeps the previous snapshot in
// place and never propagates into a fatal state.
type BalanceService struct {
	chain ChainReader
	price PriceFeed
	log   *zap.Logger

	mu   sync.Mutex
	last *Snapshot
}

// NewBalanceService creates a BalanceService over the given collaborators.
func NewBalanceService(chain ChainReader, price PriceFeed, log *zap.Logger) *BalanceService {
	return &BalanceService{chain: chain, price: price, log: log}
}

// Refresh queries the chain and price collaborators and publishes a new
// snapshot. On a balance query error the previous snapshot is returned
// unchanged; on a price error the last known quote is reused. Computation
// stays in wei, rounding happens at the display boundary only.
func (s *BalanceService) Refresh(ctx context.Context, address string) *Snapshot {
	wei, err := s.chain.GetBalance(ctx, address)
	if err != nil {
		s.log.Warn("balance query failed, keeping previous snapshot",
			zap.String("address", address), zap.Error(err))
		return s.Snapshot()
	}

	quote, err := s.price.BNBPriceUSD(ctx)
	if err != nil {
		s.log.Warn("price query failed, reusing last quote", zap.Error(err))
		quote = s.lastQuote()
	}

	fiat, err := common.MulPriceUSD(wei, quote)
	if err != nil {
		s.log.Warn("bad price quote", zap.String("quote", quote), zap.Error(err))
		quote = "0.00"
		fiat = "0.00"
	}

	snap := &Snapshot{
		Address:  address,
		Wei:      wei,
		Native:   common.FormatBNB(wei),
		PriceUSD: quote,
		FiatUSD:  fiat,
	}

	s.mu.Lock()
	s.last = snap
	s.mu.Unlock()
	return snap
}

// Snapshot returns the last published snapshot, or nil before the first
// successful Refresh.
func (s *BalanceService) Snapshot() *Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *BalanceService) lastQuote() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return "0.00"
	}
	return s.last.PriceUSD
}
