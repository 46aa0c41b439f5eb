package wallet

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionFixture struct {
	path     string
	chain    *fakeChain
	balance  *BalanceService
	sessions *SessionManager
}

func newSessionFixture(t *testing.T, path string) *sessionFixture {
	t.Helper()
	chain := &fakeChain{balanceWei: oneBNB()}
	balance := NewBalanceService(chain, &fakePrice{price: "616.45"}, zap.NewNop())
	keys := NewKeyStore(path, testPassword)
	return &sessionFixture{
		path:     path,
		chain:    chain,
		balance:  balance,
		sessions: NewSessionManager(keys, balance, zap.NewNop()),
	}
}

func TestFreshInstallInitializesToNoWallet(t *testing.T) {
	f := newSessionFixture(t, filepath.Join(t.TempDir(), "wallet.wlt"))

	assert.Equal(t, StateLoading, f.sessions.State())
	require.NoError(t, f.sessions.Initialize(context.Background()))
	assert.Equal(t, StateNoWallet, f.sessions.State())
	assert.Empty(t, f.sessions.Address())
	assert.Equal(t, 0, f.chain.queryCount())
}

func TestCreateWalletActivatesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.wlt")
	f := newSessionFixture(t, path)
	require.NoError(t, f.sessions.Initialize(context.Background()))

	session, err := f.sessions.CreateWallet(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateActive, f.sessions.State())
	assert.Equal(t, session.Address, f.sessions.Address())
	assert.Equal(t, 1, f.chain.queryCount())

	_, err = os.Stat(path)
	require.NoError(t, err, "create must persist the session")

	// A new instance over the same storage restores the same address.
	restored := newSessionFixture(t, path)
	require.NoError(t, restored.sessions.Initialize(context.Background()))
	assert.Equal(t, StateActive, restored.sessions.State())
	assert.Equal(t, session.Address, restored.sessions.Address())
}

func TestInitializeIsIdempotent(t *testing.T) {
	f := newSessionFixture(t, filepath.Join(t.TempDir(), "wallet.wlt"))
	require.NoError(t, f.sessions.Initialize(context.Background()))
	_, err := f.sessions.CreateWallet(context.Background())
	require.NoError(t, err)

	before := f.chain.queryCount()
	require.NoError(t, f.sessions.Initialize(context.Background()))
	assert.Equal(t, StateActive, f.sessions.State())
	assert.Equal(t, before, f.chain.queryCount(), "re-initialization must be a no-op")
}

func TestCreateBeforeInitializeIsRejected(t *testing.T) {
	f := newSessionFixture(t, filepath.Join(t.TempDir(), "wallet.wlt"))
	_, err := f.sessions.CreateWallet(context.Background())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestImportInvalidKeyKeepsNoWalletState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.wlt")
	f := newSessionFixture(t, path)
	require.NoError(t, f.sessions.Initialize(context.Background()))

	_, err := f.sessions.ImportWallet(context.Background(), "abc")
	require.ErrorIs(t, err, ErrInvalidKeyFormat)
	assert.Equal(t, StateNoWallet, f.sessions.State())
	assert.Equal(t, 0, f.chain.queryCount())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "failed import must not touch storage")
}

func TestImportWalletActivates(t *testing.T) {
	f := newSessionFixture(t, filepath.Join(t.TempDir(), "wallet.wlt"))
	require.NoError(t, f.sessions.Initialize(context.Background()))

	session, err := f.sessions.ImportWallet(context.Background(), testKeyHex)
	require.NoError(t, err)
	assert.Equal(t, StateActive, f.sessions.State())
	assert.Equal(t, session.Address, f.sessions.Address())
}

func TestRefreshIsNoOpOutsideActive(t *testing.T) {
	f := newSessionFixture(t, filepath.Join(t.TempDir(), "wallet.wlt"))
	require.NoError(t, f.sessions.Initialize(context.Background()))

	f.sessions.Refresh(context.Background())
	assert.Equal(t, 0, f.chain.queryCount())
}

func TestFailedRefreshNeverDemotesActive(t *testing.T) {
	f := newSessionFixture(t, filepath.Join(t.TempDir(), "wallet.wlt"))
	require.NoError(t, f.sessions.Initialize(context.Background()))
	_, err := f.sessions.CreateWallet(context.Background())
	require.NoError(t, err)

	f.chain.balanceErr = assert.AnError
	f.sessions.Refresh(context.Background())
	assert.Equal(t, StateActive, f.sessions.State())
}

func TestRemoveWalletReturnsToNoWallet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wallet.wlt")
	f := newSessionFixture(t, path)
	require.NoError(t, f.sessions.Initialize(context.Background()))
	_, err := f.sessions.CreateWallet(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.sessions.RemoveWallet())
	assert.Equal(t, StateNoWallet, f.sessions.State())
	assert.Empty(t, f.sessions.Address())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
