package model

// SendRequest represents request for POST /wallet/send.
// Max overrides Amount with the full last-fetched balance.
type SendRequest struct {
	ToAddress string `json:"toAddress" binding:"required"`
	Amount    string `json:"amount"`
	Max       bool   `json:"max"`
}

// SendResponse represents response for POST /wallet/send
type SendResponse struct {
	TxHash      string `json:"txHash"`
	ExplorerURL string `json:"explorerUrl"`
}
