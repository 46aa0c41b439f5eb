package handler

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"sync"

	"bnbw/internal/capture"
	"bnbw/internal/model"
	"bnbw/wallet"
)

// WalletHandler serves the wallet HTTP surface.
type WalletHandler struct {
	sessions *wallet.SessionManager
	balance  *wallet.BalanceService
	flow     *wallet.SendFlow
	keys     *wallet.KeyStore
	scanner  *capture.Scanner

	// sendMu serializes send interactions: the flow models one interaction
	// at a time, the broadcast itself is never aborted.
	sendMu sync.Mutex
}

// NewWalletHandler creates a WalletHandler over explicitly owned components.
func NewWalletHandler(sessions *wallet.SessionManager, balance *wallet.BalanceService, flow *wallet.SendFlow, keys *wallet.KeyStore) *WalletHandler {
	return &WalletHandler{
		sessions: sessions,
		balance:  balance,
		flow:     flow,
		keys:     keys,
		scanner:  capture.NewScanner(),
	}
}

// Generate handles POST /wallet/generate
// @Summary      Generate new wallet
// @Description  Generates a new wallet, persists it encrypted and activates the session
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Success      200  {object}  model.GenerateResponse
// @Router       /wallet/generate [post]
func (h *WalletHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	session, err := h.sessions.CreateWallet(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.GenerateResponse{
		Success: true,
		Message: "Wallet generated successfully",
		Address: session.Address,
	})
}

// Import handles POST /wallet/import
// @Summary      Import wallet
// @Description  Imports a private key, persists it encrypted and activates the session
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.ImportRequest  true  "Private key"
// @Success      200      {object}  model.GenerateResponse
// @Router       /wallet/import [post]
func (h *WalletHandler) Import(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}

	session, err := h.sessions.ImportWallet(r.Context(), req.PrivateKey)
	if err != nil {
		if errors.Is(err, wallet.ErrInvalidKeyFormat) {
			writeError(w, http.StatusBadRequest, "INVALID_KEY_FORMAT", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.GenerateResponse{
		Success: true,
		Message: "Wallet imported successfully",
		Address: session.Address,
	})
}

// Session handles GET /wallet/session
// @Summary      Get session state
// @Description  Reports wallet presence and the active address
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.SessionResponse
// @Router       /wallet/session [get]
func (h *WalletHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	address := h.sessions.Address()
	writeJSON(w, http.StatusOK, model.SessionResponse{
		State:        string(h.sessions.State()),
		Address:      address,
		ShortAddress: wallet.ShortAddress(address),
	})
}

// Balance handles GET /wallet/balance
// @Summary      Get wallet balance
// @Description  Refreshes and returns the native balance with its USD value
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.BalanceResponse
// @Router       /wallet/balance [get]
func (h *WalletHandler) Balance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	if h.sessions.State() != wallet.StateActive {
		writeError(w, http.StatusBadRequest, "NO_ACTIVE_SESSION", "no active wallet session")
		return
	}

	h.sessions.Refresh(r.Context())
	snap := h.balance.Snapshot()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "", "balance not available yet")
		return
	}

	writeJSON(w, http.StatusOK, model.BalanceResponse{
		Address:  snap.Address,
		BNB:      snap.Native,
		PriceUSD: snap.PriceUSD,
		USD:      snap.FiatUSD,
	})
}

// Receive handles GET /wallet/receive
// @Summary      Get receive info
// @Description  Returns the active address and its QR code (base64 PNG)
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.ReceiveResponse
// @Router       /wallet/receive [get]
func (h *WalletHandler) Receive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed. Should be GET", http.StatusMethodNotAllowed)
		return
	}

	if h.sessions.State() != wallet.StateActive {
		writeError(w, http.StatusBadRequest, "NO_ACTIVE_SESSION", "no active wallet session")
		return
	}

	qr, err := h.keys.ReceiveQR()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.ReceiveResponse{
		Address: h.sessions.Address(),
		QR:      qr,
	})
}

// Send handles POST /wallet/send
// @Summary      Send BNB
// @Description  Submits a native transfer; with max=true the full last-fetched balance is sent
// @Tags         wallet
// @Accept       json
// @Produce      json
// @Param        request  body      model.SendRequest  true  "Transfer data"
// @Success      200      {object}  model.SendResponse
// @Router       /wallet/send [post]
func (h *WalletHandler) Send(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	var req model.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}

	h.sendMu.Lock()
	defer h.sendMu.Unlock()

	h.flow.Open(req.ToAddress, req.Amount)
	defer h.flow.Close()
	if req.Max {
		h.flow.SetMax()
		if h.flow.Amount() == "" {
			writeError(w, http.StatusServiceUnavailable, "", "balance not available yet")
			return
		}
	}

	if err := h.flow.Submit(r.Context()); err != nil {
		status, code := sendErrorStatus(err)
		writeError(w, status, code, err.Error())
		return
	}

	hash, ok := h.flow.Confirm()
	if !ok {
		// Submit was a guarded no-op: a field was empty.
		writeError(w, http.StatusBadRequest, "", "toAddress and amount are required")
		return
	}

	writeJSON(w, http.StatusOK, model.SendResponse{
		TxHash:      hash,
		ExplorerURL: h.flow.ExplorerURL(hash),
	})
}

// Remove handles DELETE /wallet
// @Summary      Remove wallet
// @Description  Clears the persisted session and returns to the no-wallet state
// @Tags         wallet
// @Produce      json
// @Success      200  {object}  model.GenerateResponse
// @Router       /wallet [delete]
func (h *WalletHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "Method not allowed. Should be DELETE", http.StatusMethodNotAllowed)
		return
	}

	if err := h.sessions.RemoveWallet(); err != nil {
		writeError(w, http.StatusInternalServerError, "", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, model.GenerateResponse{
		Success: true,
		Message: "Wallet removed",
	})
}

// ScanAddress handles POST /wallet/scan
// @Summary      Decode recipient QR
// @Description  Decodes a recipient address from an uploaded camera frame (PNG or JPEG)
// @Tags         wallet
// @Accept       octet-stream
// @Produce      json
// @Success      200  {object}  model.SendRequest
// @Router       /wallet/scan [post]
func (h *WalletHandler) ScanAddress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed. Should be POST", http.StatusMethodNotAllowed)
		return
	}

	frame, _, err := image.Decode(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", "body must be a PNG or JPEG frame")
		return
	}

	text, err := h.scanner.Scan(r.Context(), &singleFrame{frame: frame})
	if err != nil {
		// No code in this frame: the client keeps streaming frames.
		writeError(w, http.StatusUnprocessableEntity, "NO_CODE_FOUND", "no scannable code in frame")
		return
	}

	writeJSON(w, http.StatusOK, model.SendRequest{ToAddress: text})
}

// singleFrame adapts one uploaded image to the capture.FrameSource contract:
// it yields the frame once, then reports the feed closed.
type singleFrame struct {
	frame image.Image
	done  bool
}

func (s *singleFrame) NextFrame(ctx context.Context) (image.Image, error) {
	if s.done {
		return nil, io.EOF
	}
	s.done = true
	return s.frame, nil
}

func sendErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, wallet.ErrNoActiveSession):
		return http.StatusBadRequest, "NO_ACTIVE_SESSION"
	case errors.Is(err, wallet.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, wallet.ErrInvalidRecipient):
		return http.StatusBadRequest, "INVALID_RECIPIENT"
	case errors.Is(err, wallet.ErrInsufficientBalance):
		return http.StatusBadRequest, "INSUFFICIENT_BALANCE"
	default:
		return http.StatusInternalServerError, "BROADCAST_FAILED"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, model.ErrorResponse{Error: message, Code: code})
}
