// bnbw is a single-account BNB testnet wallet served over a local HTTP API.
package main

import (
	"context"
	"net/http"
	"os"

	"bnbw/internal/api"
	"bnbw/internal/client"
	"bnbw/internal/config"
	"bnbw/internal/handler"
	"bnbw/wallet"

	_ "bnbw/docs"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync()

	if err := config.Init(); err != nil {
		log.Error("config init failed", zap.Error(err))
		return err
	}
	if err := config.PromptForPassword(); err != nil {
		log.Error("password prompt failed", zap.Error(err))
		return err
	}

	chain, err := client.NewChainClient()
	if err != nil {
		log.Error("chain client init failed", zap.Error(err))
		return err
	}
	defer chain.Close()

	var price wallet.PriceFeed
	if config.Get().PriceFeed == "coingecko" {
		price = client.NewCoinGeckoClient()
	} else {
		price = wallet.StaticPriceFeed{PriceUSD: config.Get().StaticBNBPriceUSD}
	}

	keys := wallet.NewKeyStore(config.GetWalletFilePath(), config.GetWalletPasswordBytes)
	balance := wallet.NewBalanceService(chain, price, log)
	sessions := wallet.NewSessionManager(keys, balance, log)
	submitter := wallet.NewSubmitter(sessions, chain, balance, log)
	flow := wallet.NewSendFlow(submitter, balance, config.GetExplorerURL())

	if err := sessions.Initialize(context.Background()); err != nil {
		log.Error("session initialization failed", zap.Error(err))
		return err
	}
	log.Info("wallet session initialized", zap.String("state", string(sessions.State())))

	walletHandler := handler.NewWalletHandler(sessions, balance, flow, keys)
	router := api.SetupRouter(walletHandler)

	addr := ":" + config.GetPort()
	log.Info("listening", zap.String("addr", addr))
	if err := http.ListenAndServe(addr, router); err != nil {
		log.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}
