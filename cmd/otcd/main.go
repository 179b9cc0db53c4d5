package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"

	"github.com/404-LAB/otcledger/params"
	"github.com/404-LAB/otcledger/pkg/api"
	"github.com/404-LAB/otcledger/pkg/ledger"
	"github.com/404-LAB/otcledger/pkg/storage"
	"github.com/404-LAB/otcledger/pkg/token"
	"github.com/404-LAB/otcledger/pkg/util"
)

// exchangeIdentity is the spender address sellers approve on the vault so the
// ledger can move their assets at fill time.
var exchangeIdentity = common.HexToAddress("0x4200000000000000000000000000000000000001")

// devnetAsset is the asset minted to devnet accounts at startup.
var devnetAsset = common.HexToAddress("0x4200000000000000000000000000000000000A55")

func main() {
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLoggerWithFile(cfg.Log.File)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Log.File)

	// ---- External services: asset vault and payment bank ----
	vault := token.NewVault(exchangeIdentity)
	bank := token.NewBank()

	for _, hex := range cfg.Devnet.Accounts {
		if !common.IsHexAddress(hex) {
			sugar.Warnw("devnet_account_invalid", "addr", hex)
			continue
		}
		addr := common.HexToAddress(hex)
		if err := bank.Deposit(addr, cfg.Devnet.GenesisBalance); err != nil {
			sugar.Fatalw("devnet_fund_failed", "addr", hex, "err", err)
		}
		if err := vault.Mint(devnetAsset, addr, cfg.Devnet.GenesisBalance); err != nil {
			sugar.Fatalw("devnet_mint_failed", "addr", hex, "err", err)
		}
	}
	sugar.Infow("devnet_funded",
		"accounts", len(cfg.Devnet.Accounts),
		"balance", cfg.Devnet.GenesisBalance,
		"asset", devnetAsset.Hex())

	// ---- Ledger ----
	l := ledger.New(vault, bank)
	l.Logger = sugar

	if cfg.Storage.Path != "" {
		journal, err := storage.Open(cfg.Storage.Path)
		if err != nil {
			sugar.Fatalw("journal_open_failed", "path", cfg.Storage.Path, "err", err)
		}
		defer journal.Close()
		l.Journal = journal

		lastSeq, err := journal.LastSeq()
		if err != nil {
			sugar.Fatalw("journal_read_failed", "err", err)
		}
		sugar.Infow("journal_opened", "path", cfg.Storage.Path, "last_seq", lastSeq)
	} else {
		sugar.Info("journal_disabled")
	}

	// ---- API server ----
	server := api.NewServer(l, sugar, cfg.API.AllowedOrigins)
	l.OnEvent = server.BroadcastEvent

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := server.Start(cfg.API.Addr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	sugar.Infow("node_started", "api_addr", cfg.API.Addr)
	<-ctx.Done()
	sugar.Info("node_stopping")
}
