package app

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gustavo/swapdesk/internal/amounts"
	"github.com/gustavo/swapdesk/internal/chains"
	"github.com/gustavo/swapdesk/internal/metadata"
	"github.com/gustavo/swapdesk/internal/store"
	"github.com/gustavo/swapdesk/internal/walletgen"
)

func (s *runtimeState) newWalletCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wallet",
		Short: "Manage custodial wallets",
	}
	cmd.AddCommand(s.newWalletNewCommand())
	return cmd
}

func (s *runtimeState) newWalletNewCommand() *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "new",
		Short: "Create EVM and TON wallets for a user",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			u, err := s.store.Users().Ensure(ctx, user)
			if err != nil {
				return err
			}

			evm, err := walletgen.NewEVM(s.vault)
			if err != nil {
				return err
			}
			if _, err := s.store.Wallets().Create(ctx, store.Wallet{
				UserID:          u.ID,
				Kind:            store.WalletEVM,
				Address:         evm.Address,
				EncryptedSecret: evm.EncryptedKey,
			}); err != nil {
				return err
			}

			tonWallet, err := walletgen.NewTON(s.vault)
			if err != nil {
				return err
			}
			if _, err := s.store.Wallets().Create(ctx, store.Wallet{
				UserID:          u.ID,
				Kind:            store.WalletTON,
				Address:         tonWallet.Address,
				EncryptedSecret: tonWallet.EncryptedMnemonic,
			}); err != nil {
				return err
			}

			s.log.WithField("user", user).Infof("wallets created")
			return s.emit(map[string]string{
				"evm_address": evm.Address,
				"ton_address": tonWallet.Address,
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

type balanceReport struct {
	Chain   string           `json:"chain"`
	Native  string           `json:"native"`
	Tokens  []metadata.Token `json:"tokens,omitempty"`
	Warning string           `json:"warning,omitempty"`
}

func (s *runtimeState) newBalancesCommand() *cobra.Command {
	var (
		user    string
		chainID int64
	)
	cmd := &cobra.Command{
		Use:   "balances",
		Short: "Show a wallet's native and token balances on a chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w, err := s.evmWallet(ctx, user)
			if err != nil {
				return err
			}

			native, err := s.pool.NativeBalance(ctx, chainID, w.Address)
			if err != nil {
				return err
			}
			report := balanceReport{
				Chain:  strconv.FormatInt(chainID, 10),
				Native: amounts.Descale(native, chains.NativeDecimals),
			}

			tokens, err := s.moralis.Tokens(ctx, chainID, w.Address)
			if err != nil {
				// The native balance is still worth showing when the
				// token index is down.
				report.Warning = err.Error()
			} else {
				report.Tokens = tokens
			}
			return s.emit(report)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().Int64Var(&chainID, "chain", 1, "chain id")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
