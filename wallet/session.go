package wallet

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// State is the wallet-presence state.
type State string

const (
	StateLoading  State = "loading"
	StateNoWallet State = "no_wallet"
	StateActive   State = "active"
)

// ErrNotInitialized reports a user-triggered operation arriving before
// Initialize has completed. The loading state gates the UI.
var ErrNotInitialized = errors.New("session manager not initialized")

// SessionManager owns the wallet-presence state machine and the active
// session. It is the sole writer of persisted key storage and must be passed
// explicitly to dependents, never held as ambient global state. All methods
// are safe for concurrent use; the mutex makes the single-writer policy
// explicit for callers that are not a single UI event loop.
type SessionManager struct {
	keys    *KeyStore
	balance *BalanceService
	log     *zap.Logger

	mu          sync.Mutex
	state       State
	session     *Session
	initialized bool
}

// NewSessionManager creates a SessionManager in the loading state.
func NewSessionManager(keys *KeyStore, balance *BalanceService, log *zap.Logger) *SessionManager {
	return &SessionManager{
		keys:    keys,
		balance: balance,
		log:     log,
		state:   StateLoading,
	}
}

// Initialize loads the persisted session if any and settles the state to
// Active or NoWallet. Calling it again is a no-op, so UI re-entry cannot
// double-initialize.
func (m *SessionManager) Initialize(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.initialized {
		return nil
	}

	m.state = StateLoading
	session, err := m.keys.Load()
	if err != nil {
		return err
	}
	m.initialized = true

	if session == nil {
		m.state = StateNoWallet
		m.log.Info("no persisted wallet found")
		return nil
	}

	m.session = session
	m.state = StateActive
	m.log.Info("wallet session restored", zap.String("address", session.Address))
	m.balance.Refresh(ctx, session.Address)
	return nil
}

// CreateWallet generates and activates a fresh session. On failure the state
// is unchanged and the error propagates to the caller.
func (m *SessionManager) CreateWallet(ctx context.Context) (*Session, error) {
	return m.activate(ctx, func() (*Session, error) { return m.keys.Generate() })
}

// ImportWallet activates a session for the given raw key. KeyStore failures
// (ErrInvalidKeyFormat among them) propagate and leave the state unchanged.
func (m *SessionManager) ImportWallet(ctx context.Context, rawKey string) (*Session, error) {
	return m.activate(ctx, func() (*Session, error) { return m.keys.Import(rawKey) })
}

func (m *SessionManager) activate(ctx context.Context, produce func() (*Session, error)) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return nil, ErrNotInitialized
	}

	session, err := produce()
	if err != nil {
		return nil, err
	}

	m.session = session
	m.state = StateActive
	m.log.Info("wallet session activated", zap.String("address", session.Address))
	m.balance.Refresh(ctx, session.Address)
	return session, nil
}

// RemoveWallet clears the persisted session and returns to NoWallet.
func (m *SessionManager) RemoveWallet() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.initialized {
		return ErrNotInitialized
	}
	if err := m.keys.Clear(); err != nil {
		return err
	}
	m.session = nil
	m.state = StateNoWallet
	m.log.Info("wallet session removed")
	return nil
}

// Refresh re-fetches the balance for the active session. No-op in any other
// state; a failed refresh never demotes Active.
func (m *SessionManager) Refresh(ctx context.Context) {
	m.mu.Lock()
	if m.state != StateActive {
		m.mu.Unlock()
		return
	}
	address := m.session.Address
	m.mu.Unlock()

	m.balance.Refresh(ctx, address)
}

// State returns the current wallet-presence state.
func (m *SessionManager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Session returns the active session, or nil outside the Active state.
// Callers use it for the duration of one operation and must not retain it.
func (m *SessionManager) Session() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Address returns the active address or the empty string.
func (m *SessionManager) Address() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.Address
}
