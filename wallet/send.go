package wallet

import (
	"context"
	"sync"
)

// FlowState is the send-flow state.
type FlowState string

const (
	FlowIdle       FlowState = "idle"
	FlowEditing    FlowState = "editing"
	FlowSubmitting FlowState = "submitting"
	FlowSucceeded  FlowState = "succeeded"
	FlowFailed     FlowState = "failed"
)

// Sender submits a transfer and returns its transaction hash.
type Sender interface {
	Send(ctx context.Context, toAddress, amount string) (string, error)
}

// SendFlow collects recipient and amount, submits via a Sender and tracks the
// in-flight/success/error state of one send interaction. A succeeded flow arms
// a one-shot confirmation that Confirm releases once the input form has
// reported closed, so the confirmation view never races the closing dialog.
type SendFlow struct {
	sender      Sender
	balance     *BalanceService
	explorerURL string

	mu           sync.Mutex
	state        FlowState
	recipient    string
	amount       string
	txHash       string
	lastErr      string
	confirmArmed bool
}

// NewSendFlow creates an idle flow. explorerURL is the block-explorer base the
// confirmation link is built on.
func NewSendFlow(sender Sender, balance *BalanceService, explorerURL string) *SendFlow {
	return &SendFlow{
		sender:      sender,
		balance:     balance,
		explorerURL: explorerURL,
		state:       FlowIdle,
	}
}

// Open resets the flow to Editing with optional prefilled fields ("send to
// this address" invocations).
func (f *SendFlow) Open(prefillRecipient, prefillAmount string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FlowEditing
	f.recipient = prefillRecipient
	f.amount = prefillAmount
	f.txHash = ""
	f.lastErr = ""
	f.confirmArmed = false
}

// SetRecipient updates the recipient field.
func (f *SendFlow) SetRecipient(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recipient = text
}

// SetAmount updates the amount field.
func (f *SendFlow) SetAmount(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amount = text
}

// SetMax sets the amount to exactly the last-fetched snapshot's native amount.
// No fee reservation is applied; the chain may reject a full-balance transfer
// once gas is due from the same asset. No-op before the first snapshot.
func (f *SendFlow) SetMax() {
	snap := f.balance.Snapshot()
	if snap == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.amount = snap.Native
}

// Submit sends the collected transfer. It is a guarded no-op unless the flow
// is editable and both fields are set. On success the flow transitions to
// Succeeded with the hash recorded and the confirmation armed; on failure it
// transitions to Failed keeping the field values so the user can retry.
// Closing the flow mid-submit only suppresses the outcome, the broadcast
// itself is not revocable.
func (f *SendFlow) Submit(ctx context.Context) error {
	f.mu.Lock()
	if f.state != FlowEditing && f.state != FlowFailed {
		f.mu.Unlock()
		return nil
	}
	if f.recipient == "" || f.amount == "" {
		f.mu.Unlock()
		return nil
	}
	f.state = FlowSubmitting
	recipient, amount := f.recipient, f.amount
	f.mu.Unlock()

	hash, err := f.sender.Send(ctx, recipient, amount)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FlowSubmitting {
		// Flow was closed while the broadcast was in flight.
		return err
	}
	if err != nil {
		f.state = FlowFailed
		f.lastErr = err.Error()
		return err
	}
	f.state = FlowSucceeded
	f.txHash = hash
	f.confirmArmed = true
	return nil
}

// Confirm releases the armed confirmation exactly once, returning the
// transaction hash. The caller invokes it when the input form has finished
// closing; before that, or on any repeat call, ok is false.
func (f *SendFlow) Confirm() (hash string, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != FlowSucceeded || !f.confirmArmed {
		return "", false
	}
	f.confirmArmed = false
	return f.txHash, true
}

// ExplorerURL builds the block-explorer link for a transaction hash.
func (f *SendFlow) ExplorerURL(hash string) string {
	return f.explorerURL + "/tx/" + hash
}

// Close discards all in-progress field state and returns the flow to Idle.
func (f *SendFlow) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = FlowIdle
	f.recipient = ""
	f.amount = ""
	f.txHash = ""
	f.lastErr = ""
	f.confirmArmed = false
}

// State returns the current flow state.
func (f *SendFlow) State() FlowState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Recipient returns the current recipient field value.
func (f *SendFlow) Recipient() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recipient
}

// Amount returns the current amount field value.
func (f *SendFlow) Amount() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.amount
}

// Err returns the message of the last submit failure, empty otherwise.
func (f *SendFlow) Err() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}
