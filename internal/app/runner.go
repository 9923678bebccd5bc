package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gustavo/swapdesk/internal/aggregator"
	"github.com/gustavo/swapdesk/internal/approvals"
	"github.com/gustavo/swapdesk/internal/cache"
	"github.com/gustavo/swapdesk/internal/chains"
	"github.com/gustavo/swapdesk/internal/config"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/httpx"
	"github.com/gustavo/swapdesk/internal/logger"
	"github.com/gustavo/swapdesk/internal/metadata"
	"github.com/gustavo/swapdesk/internal/nonce"
	"github.com/gustavo/swapdesk/internal/orchestrate"
	"github.com/gustavo/swapdesk/internal/registry"
	"github.com/gustavo/swapdesk/internal/store"
	"github.com/gustavo/swapdesk/internal/ton"
	"github.com/gustavo/swapdesk/internal/vault"
	"github.com/gustavo/swapdesk/internal/version"
	"github.com/gustavo/swapdesk/internal/wallet"
)

// Runner wires configuration into the trading core and exposes it as a CLI.
type Runner struct {
	stdout io.Writer
	stderr io.Writer
}

func NewRunner() *Runner {
	return &Runner{stdout: os.Stdout, stderr: os.Stderr}
}

type runtimeState struct {
	runner *Runner
	cfg    config.Config
	log    *logger.Logger

	vault   *vault.Vault
	cache   cache.Cache
	http    *httpx.Client
	pool    *chains.Pool
	quotes  *aggregator.Client
	nonces  *nonce.Sequencer
	locker  *wallet.Locker
	store   *store.Store
	moralis *metadata.MoralisClient
	tonapi  *metadata.TonAPIClient
	orch    *orchestrate.Orchestrator
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	if state.store != nil {
		state.store.Close()
	}
	if err == nil {
		return 0
	}
	fmt.Fprintf(r.stderr, "error: %v\n", err)
	return swaperr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     version.CLIName,
		Short:   "Custodial multi-chain trading desk",
		Version: version.Long(),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			return s.initialize(cmd.Context())
		},
	}

	cmd.AddCommand(
		s.newSwapCommand(),
		s.newLimitCommand(),
		s.newBridgeCommand(),
		s.newWithdrawCommand(),
		s.newBalancesCommand(),
		s.newWalletCommand(),
		s.newTonCommand(),
	)
	return cmd
}

func (s *runtimeState) initialize(ctx context.Context) error {
	cfg := config.LoadFromEnv()
	s.cfg = *cfg
	s.log = logger.New(cfg.Env)

	var err error
	s.vault, err = vault.New(cfg.VaultKeys)
	if err != nil {
		return err
	}

	switch {
	case cfg.RedisURL != "":
		s.cache, err = cache.NewRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
	case cfg.CachePath != "":
		s.cache, err = cache.OpenFileCache(cfg.CachePath, cfg.CacheLockPath)
		if err != nil {
			return err
		}
	default:
		s.cache = cache.NewMemory()
	}

	s.http = httpx.New(cfg.HTTPTimeout, cfg.HTTPRetries)
	s.pool = chains.NewPool(nil, s.cache)
	if err := registry.ApplyRPCOverrides(cfg.ChainOverridePath); err != nil {
		return err
	}
	s.quotes = aggregator.New(s.http, cfg.Aggregator)
	s.nonces = nonce.NewSequencer(s.http, s.pool)
	s.locker = wallet.NewLocker()
	s.moralis = metadata.NewMoralisClient(s.http, cfg.MoralisAPIKey, s.cache, s.log)
	s.tonapi = metadata.NewTonAPIClient(s.http, cfg.TonAPIKey)

	if cfg.DatabaseURL != "" {
		s.store, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		if err := s.store.Bootstrap(ctx); err != nil {
			return err
		}
	}

	approver := approvals.NewManager(s.quotes, s.pool, s.nonces, s.log)
	deps := orchestrate.Deps{
		Vault:    s.vault,
		Pool:     s.pool,
		Quotes:   s.quotes,
		Approver: approver,
		Nonces:   s.nonces,
		Locker:   s.locker,
		Log:      s.log,
		Now:      time.Now,
	}
	if s.store != nil {
		deps.Swaps = s.store.Swaps()
		deps.LimitOrders = s.store.LimitOrders()
		deps.Bridges = s.store.CrosschainSwaps()
	}
	s.orch = orchestrate.New(deps)
	return nil
}

// requireStore guards commands that persist or read records.
func (s *runtimeState) requireStore() error {
	if s.store == nil {
		return swaperr.New(swaperr.CodeUsage, "DATABASE_URL is required for this command")
	}
	return nil
}

// evmWallet loads a user's EVM wallet from the store.
func (s *runtimeState) evmWallet(ctx context.Context, externalID string) (store.Wallet, error) {
	user, ok, err := s.store.Users().ByExternalID(ctx, externalID)
	if err != nil {
		return store.Wallet{}, err
	}
	if !ok {
		return store.Wallet{}, swaperr.New(swaperr.CodeUsage, "unknown user")
	}
	w, ok, err := s.store.Wallets().ByUser(ctx, user.ID, store.WalletEVM)
	if err != nil {
		return store.Wallet{}, err
	}
	if !ok {
		return store.Wallet{}, swaperr.New(swaperr.CodeUsage, "user has no evm wallet")
	}
	return w, nil
}

// tonWallet loads a user's TON wallet from the store.
func (s *runtimeState) tonWallet(ctx context.Context, externalID string) (store.Wallet, error) {
	user, ok, err := s.store.Users().ByExternalID(ctx, externalID)
	if err != nil {
		return store.Wallet{}, err
	}
	if !ok {
		return store.Wallet{}, swaperr.New(swaperr.CodeUsage, "unknown user")
	}
	w, ok, err := s.store.Wallets().ByUser(ctx, user.ID, store.WalletTON)
	if err != nil {
		return store.Wallet{}, err
	}
	if !ok {
		return store.Wallet{}, swaperr.New(swaperr.CodeUsage, "user has no ton wallet")
	}
	return w, nil
}

func (s *runtimeState) tonTrader(ctx context.Context) (*ton.Trader, error) {
	api, err := ton.Connect(ctx)
	if err != nil {
		return nil, err
	}
	stonfi := ton.NewStonfiClient(s.http)
	xrare := ton.NewXRareClient(s.http)
	return ton.NewTrader(api, stonfi, s.tonapi, xrare, s.log), nil
}

// emit prints a command result as a single JSON document.
func (s *runtimeState) emit(v any) error {
	enc := json.NewEncoder(s.runner.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// resultError converts a failed pipeline result into the command error.
func resultError(res orchestrate.Result) error {
	if res.OK {
		return nil
	}
	if res.Err != nil {
		return res.Err
	}
	return swaperr.New(swaperr.CodeInternal, res.Message)
}
