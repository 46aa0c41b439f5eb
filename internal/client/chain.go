package client

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"bnbw/internal/config"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// transferGasLimit is the fixed gas cost of a native-asset transfer.
const transferGasLimit = 21000

// ChainClient is a client for the chain JSON-RPC endpoint
type ChainClient struct {
	eth     *ethclient.Client
	rpcURL  string
	chainID *big.Int
}

// NewChainClient dials the configured RPC endpoint.
func NewChainClient() (*ChainClient, error) {
	rpcURL := config.GetRPCURL()
	eth, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	return &ChainClient{
		eth:     eth,
		rpcURL:  rpcURL,
		chainID: big.NewInt(config.GetChainID()),
	}, nil
}

// GetBalance gets the native balance in wei for the given address
func (c *ChainClient) GetBalance(ctx context.Context, address string) (*big.Int, error) {
	if !ethcommon.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid address: %s", address)
	}

	wei, err := c.eth.BalanceAt(ctx, ethcommon.HexToAddress(address), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return wei, nil
}

// SendTransaction signs a native transfer with the given key and broadcasts it.
// Returns the transaction hash.
func (c *ChainClient) SendTransaction(ctx context.Context, key *ecdsa.PrivateKey, toAddress string, amountWei *big.Int) (string, error) {
	if !ethcommon.IsHexAddress(toAddress) {
		return "", fmt.Errorf("invalid recipient address: %s", toAddress)
	}
	to := ethcommon.HexToAddress(toAddress)
	from := ethcrypto.PubkeyToAddress(key.PublicKey)

	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      transferGasLimit,
		To:       &to,
		Value:    amountWei,
	})

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := c.eth.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to broadcast transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

// Close releases the underlying RPC connection.
func (c *ChainClient) Close() {
	c.eth.Close()
}
