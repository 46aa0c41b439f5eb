package handler

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bnbw/internal/model"
	"bnbw/wallet"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubChain struct {
	balanceWei *big.Int
	err        error
}

func (c *stubChain) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if c.err != nil {
		return nil, c.err
	}
	return new(big.Int).Set(c.balanceWei), nil
}

type stubSender struct {
	hash  string
	err   error
	calls int
}

func (s *stubSender) Send(ctx context.Context, toAddress, amount string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.hash, nil
}

const stubRecipient = "0x8ba1f109551bD432803012645Ac136ddd64DBA72"

// newSendHandler wires a handler around a real flow and balance service; only
// the chain and the broadcast path are stubbed.
func newSendHandler(chain *stubChain, sender *stubSender) *WalletHandler {
	balance := wallet.NewBalanceService(chain, &staticPrice{"616.45"}, zap.NewNop())
	flow := wallet.NewSendFlow(sender, balance, "https://testnet.bscscan.com")
	return NewWalletHandler(nil, balance, flow, nil)
}

type staticPrice struct{ price string }

func (p *staticPrice) BNBPriceUSD(ctx context.Context) (string, error) {
	return p.price, nil
}

func postSend(t *testing.T, h *WalletHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/wallet/send", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Send(rec, req)
	return rec
}

func TestSendMaxBeforeBalanceKnown(t *testing.T) {
	chain := &stubChain{err: errors.New("rpc down")}
	sender := &stubSender{hash: "0xHASH"}
	h := newSendHandler(chain, sender)

	rec := postSend(t, h, `{"toAddress":"`+stubRecipient+`","max":true}`)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "balance not available yet", resp.Error)
	assert.Equal(t, 0, sender.calls, "a max send without a balance must not broadcast")
}

func TestSendMaxUsesFetchedBalance(t *testing.T) {
	chain := &stubChain{balanceWei: big.NewInt(0).Mul(big.NewInt(2), big.NewInt(1e18))}
	sender := &stubSender{hash: "0xHASH"}
	h := newSendHandler(chain, sender)
	h.balance.Refresh(context.Background(), stubRecipient)

	rec := postSend(t, h, `{"toAddress":"`+stubRecipient+`","max":true}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp model.SendResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "0xHASH", resp.TxHash)
	assert.Equal(t, "https://testnet.bscscan.com/tx/0xHASH", resp.ExplorerURL)
	assert.Equal(t, 1, sender.calls)
}

func TestSendMissingFields(t *testing.T) {
	h := newSendHandler(&stubChain{balanceWei: big.NewInt(1e18)}, &stubSender{hash: "0xHASH"})

	rec := postSend(t, h, `{"toAddress":"","amount":""}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "toAddress and amount are required", resp.Error)
}
