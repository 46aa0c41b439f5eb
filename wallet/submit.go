package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"bnbw/internal/common"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// Broadcaster is the transaction side of the chain collaborator.
type Broadcaster interface {
	SendTransaction(ctx context.Context, key *ecdsa.PrivateKey, toAddress string, amountWei *big.Int) (string, error)
}

var (
	// ErrNoActiveSession reports a send attempt without a persisted key.
	ErrNoActiveSession = errors.New("no active wallet session")
	// ErrInvalidAmount reports an amount that cannot be parsed into wei.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidRecipient reports a recipient that is not a hex address.
	ErrInvalidRecipient = errors.New("invalid recipient address")
	// ErrInsufficientBalance reports an amount exceeding the last-fetched
	// balance. This is a soft check; the chain enforces the hard one.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// BroadcastError wraps a failure from the chain collaborator. Send-time errors
// are always surfaced to the user, never swallowed.
type BroadcastError struct {
	Err error
}

func (e *BroadcastError) Error() string {
	return fmt.Sprintf("broadcast failed: %v", e.Err)
}

func (e *BroadcastError) Unwrap() error {
	return e.Err
}

// Submitter signs with the active key and broadcasts native transfers.
type Submitter struct {
	sessions *SessionManager
	chain    Broadcaster
	balance  *BalanceService
	log      *zap.Logger
}

// NewSubmitter creates a Submitter over the given collaborators.
func NewSubmitter(sessions *SessionManager, chain Broadcaster, balance *BalanceService, log *zap.Logger) *Submitter {
	return &Submitter{sessions: sessions, chain: chain, balance: balance, log: log}
}

// Send signs and broadcasts a transfer of amount (decimal BNB string) to the
// recipient and returns the transaction hash. After a successful broadcast the
// balance is refreshed; the refreshed value reflects the chain's view, which
// may not yet include the just-sent transaction.
func (t *Submitter) Send(ctx context.Context, toAddress, amount string) (string, error) {
	session := t.sessions.Session()
	if session == nil {
		return "", ErrNoActiveSession
	}

	if !ethcommon.IsHexAddress(toAddress) {
		return "", ErrInvalidRecipient
	}

	amountWei, err := common.BNBToWei(amount)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	if amountWei.Sign() <= 0 {
		return "", fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
	}

	// Check sufficiency against the displayed amount, so a max send always
	// passes. Skipped when no snapshot was fetched yet.
	if snap := t.balance.Snapshot(); snap != nil {
		limitWei, limitErr := common.BNBToWei(snap.Native)
		if limitErr == nil && amountWei.Cmp(limitWei) > 0 {
			return "", fmt.Errorf("%w: have %s BNB", ErrInsufficientBalance, snap.Native)
		}
	}

	hash, err := t.chain.SendTransaction(ctx, session.PrivateKey, toAddress, amountWei)
	if err != nil {
		return "", &BroadcastError{Err: err}
	}

	t.log.Info("transaction broadcast",
		zap.String("to", toAddress), zap.String("amount", amount), zap.String("hash", hash))

	// The displayed balance is eventually consistent with the chain.
	t.balance.Refresh(ctx, session.Address)
	return hash, nil
}
