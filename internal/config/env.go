package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// Config contains all configuration parameters for the application.
// Note: Password is prompted at runtime and stored in memory - use GetWalletPasswordBytes()
type Config struct {
	Port              string `envconfig:"PORT" default:"8080"`
	WalletFilePath    string `envconfig:"WALLET_FILE_PATH" required:"true"`
	RPCURL            string `envconfig:"RPC_URL" default:"https://data-seed-prebsc-1-s1.binance.org:8545"`
	ChainID           int64  `envconfig:"CHAIN_ID" default:"97"`
	ExplorerURL       string `envconfig:"EXPLORER_URL" default:"https://testnet.bscscan.com"`
	PriceFeed         string `envconfig:"PRICE_FEED" default:"static"`
	StaticBNBPriceUSD string `envconfig:"STATIC_BNB_PRICE_USD" default:"616.45"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
func Init() error {
	cfg = &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to process config: %w", err)
	}
	if cfg.PriceFeed != "static" && cfg.PriceFeed != "coingecko" {
		return fmt.Errorf("PRICE_FEED must be static or coingecko, got %q", cfg.PriceFeed)
	}
	return nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// GetPort returns port from configuration
func GetPort() string {
	return Get().Port
}

// GetWalletFilePath returns path to the .wlt file from configuration
func GetWalletFilePath() string {
	return Get().WalletFilePath
}

// GetRPCURL returns the chain RPC URL from configuration
func GetRPCURL() string {
	return Get().RPCURL
}

// GetChainID returns the chain id transactions are signed for
func GetChainID() int64 {
	return Get().ChainID
}

// GetExplorerURL returns the block-explorer base URL
func GetExplorerURL() string {
	return Get().ExplorerURL
}

var passwordBytes []byte

// PromptForPassword prompts the user for the wallet password in the terminal.
// The password is read without echoing (hidden input) and stored in memory.
// Call this at startup before the server begins handling requests.
func PromptForPassword() error {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("stdin is not a terminal: run the app interactively to enter password")
	}
	fmt.Fprint(os.Stderr, "Enter wallet password: ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return errors.New("password cannot be empty")
	}

	passwordBytes = make([]byte, len(raw))
	copy(passwordBytes, raw)
	clear(raw)
	return nil
}

// GetWalletPasswordBytes returns the password stored in memory (from PromptForPassword).
// Returns an error if the password was not set.
// Caller must zero the returned slice after use for security.
func GetWalletPasswordBytes() ([]byte, error) {
	if len(passwordBytes) == 0 {
		return nil, errors.New("password not set: call PromptForPassword at startup")
	}
	out := make([]byte, len(passwordBytes))
	copy(out, passwordBytes)
	return out, nil
}
