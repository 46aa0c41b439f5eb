package model

// BalanceResponse represents response for GET /wallet/balance
type BalanceResponse struct {
	Address  string `json:"address"`
	BNB      string `json:"bnb"`
	PriceUSD string `json:"price_usd"`
	USD      string `json:"usd"`
}

// SessionResponse represents response for GET /wallet/session
type SessionResponse struct {
	State        string `json:"state"`
	Address      string `json:"address,omitempty"`
	ShortAddress string `json:"shortAddress,omitempty"`
}

// ReceiveResponse represents response for GET /wallet/receive
type ReceiveResponse struct {
	Address string `json:"address"`
	QR      string `json:"qr"` // base64 PNG
}
