package app

import (
	"github.com/spf13/cobra"
	"github.com/xssnick/tonutils-go/tlb"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/ton"
)

func (s *runtimeState) newTonCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ton",
		Short: "Trade on the TON network",
	}
	cmd.AddCommand(
		s.newTonSwapCommand(),
		s.newTonWithdrawCommand(),
		s.newTonNFTBuyCommand(),
	)
	return cmd
}

func (s *runtimeState) newTonSwapCommand() *cobra.Command {
	var (
		user       string
		fromJetton string
		toJetton   string
		amount     string
	)
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap TON or jettons through the DEX",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w, err := s.tonWallet(ctx, user)
			if err != nil {
				return err
			}
			mnemonic, err := s.vault.DecryptMnemonic(w.EncryptedSecret)
			if err != nil {
				return err
			}
			units, err := tlb.FromTON(amount)
			if err != nil {
				return swaperr.Wrap(swaperr.CodeUsage, "parse amount", err)
			}
			trader, err := s.tonTrader(ctx)
			if err != nil {
				return err
			}
			outcome, err := trader.Swap(ctx, ton.SwapParams{
				Mnemonic:   mnemonic,
				FromJetton: fromJetton,
				ToJetton:   toJetton,
				Amount:     units.Nano(),
			})
			if err != nil {
				return err
			}
			return s.emit(map[string]string{
				"wallet":  outcome.Wallet,
				"router":  outcome.Router,
				"quoted":  outcome.QuotedAsk.String(),
				"min_out": outcome.MinAskUnits.String(),
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().StringVar(&fromJetton, "from", ton.TonProxyAddress, "jetton master to sell (defaults to native TON)")
	cmd.Flags().StringVar(&toJetton, "to", "", "jetton master to buy")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to sell, in whole coins")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newTonWithdrawCommand() *cobra.Command {
	var (
		user   string
		jetton string
		to     string
		amount string
	)
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Send TON or jettons to an external address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w, err := s.tonWallet(ctx, user)
			if err != nil {
				return err
			}
			mnemonic, err := s.vault.DecryptMnemonic(w.EncryptedSecret)
			if err != nil {
				return err
			}
			units, err := tlb.FromTON(amount)
			if err != nil {
				return swaperr.Wrap(swaperr.CodeUsage, "parse amount", err)
			}
			trader, err := s.tonTrader(ctx)
			if err != nil {
				return err
			}
			if jetton == "" {
				err = trader.WithdrawNative(ctx, mnemonic, to, units.Nano())
			} else {
				err = trader.WithdrawJetton(ctx, mnemonic, jetton, to, units.Nano())
			}
			if err != nil {
				return err
			}
			return s.emit(map[string]string{"sent": amount, "to": to})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().StringVar(&jetton, "jetton", "", "jetton master to send (empty for native TON)")
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&amount, "amount", "", "amount to send, in whole coins")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newTonNFTBuyCommand() *cobra.Command {
	var (
		user       string
		collection string
		maxPrice   string
	)
	cmd := &cobra.Command{
		Use:   "nft-buy",
		Short: "Buy the cheapest listed NFT from a collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w, err := s.tonWallet(ctx, user)
			if err != nil {
				return err
			}
			mnemonic, err := s.vault.DecryptMnemonic(w.EncryptedSecret)
			if err != nil {
				return err
			}
			limit, err := tlb.FromTON(maxPrice)
			if err != nil {
				return swaperr.Wrap(swaperr.CodeUsage, "parse max price", err)
			}
			trader, err := s.tonTrader(ctx)
			if err != nil {
				return err
			}
			listing, err := trader.BuyNFT(ctx, mnemonic, collection, limit.Nano())
			if err != nil {
				return err
			}
			return s.emit(map[string]string{
				"nft":   listing.NFTAddress,
				"sale":  listing.SaleAddress,
				"price": tlb.FromNanoTON(listing.PriceNano).String(),
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().StringVar(&collection, "collection", "", "NFT collection address")
	cmd.Flags().StringVar(&maxPrice, "max-price", "", "highest acceptable price in TON")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("collection")
	_ = cmd.MarkFlagRequired("max-price")
	return cmd
}
