package app

import (
	"github.com/spf13/cobra"

	"github.com/gustavo/swapdesk/internal/orchestrate"
)

func (s *runtimeState) newSwapCommand() *cobra.Command {
	var (
		user        string
		chainID     int64
		fromToken   string
		toToken     string
		amount      string
		slippage    float64
		priceImpact float64
	)
	cmd := &cobra.Command{
		Use:   "swap",
		Short: "Swap tokens on a single chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w, err := s.evmWallet(ctx, user)
			if err != nil {
				return err
			}
			res := s.orch.Swap(ctx, orchestrate.SwapParams{
				UserID:          w.UserID,
				ChainID:         chainID,
				Wallet:          w.Address,
				EncryptedKey:    w.EncryptedSecret,
				FromToken:       fromToken,
				ToToken:         toToken,
				Amount:          amount,
				SlippagePercent: slippage,
				PriceImpactPct:  priceImpact,
			})
			if err := resultError(res); err != nil {
				return err
			}
			return s.emit(res)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().Int64Var(&chainID, "chain", 1, "chain id")
	cmd.Flags().StringVar(&fromToken, "from", "", "token to sell")
	cmd.Flags().StringVar(&toToken, "to", "", "token to buy")
	cmd.Flags().StringVar(&amount, "amount", "", "human-readable amount to sell")
	cmd.Flags().Float64Var(&slippage, "slippage", 1, "slippage tolerance in percent")
	cmd.Flags().Float64Var(&priceImpact, "price-impact", 5, "price impact protection in percent")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func (s *runtimeState) newLimitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "limit",
		Short: "Manage limit orders",
	}
	cmd.AddCommand(s.newLimitCreateCommand())
	return cmd
}

func (s *runtimeState) newLimitCreateCommand() *cobra.Command {
	var (
		user          string
		chainID       int64
		makerToken    string
		takerToken    string
		makingAmount  string
		takingAmount  string
		minReturn     string
		hours         int
		partiallyAble bool
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create and submit a signed limit order",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w, err := s.evmWallet(ctx, user)
			if err != nil {
				return err
			}
			res := s.orch.LimitOrder(ctx, orchestrate.LimitOrderParams{
				UserID:        w.UserID,
				ChainID:       chainID,
				Wallet:        w.Address,
				EncryptedKey:  w.EncryptedSecret,
				MakerToken:    makerToken,
				TakerToken:    takerToken,
				MakingAmount:  makingAmount,
				TakingAmount:  takingAmount,
				MinReturn:     minReturn,
				Hours:         hours,
				PartiallyAble: partiallyAble,
			})
			if err := resultError(res); err != nil {
				return err
			}
			return s.emit(res)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().Int64Var(&chainID, "chain", 1, "chain id")
	cmd.Flags().StringVar(&makerToken, "maker-token", "", "token offered")
	cmd.Flags().StringVar(&takerToken, "taker-token", "", "token wanted")
	cmd.Flags().StringVar(&makingAmount, "making", "", "human-readable amount offered")
	cmd.Flags().StringVar(&takingAmount, "taking", "", "human-readable amount wanted")
	cmd.Flags().StringVar(&minReturn, "min-return", "", "minimum acceptable return")
	cmd.Flags().IntVar(&hours, "hours", 24, "order lifetime in hours")
	cmd.Flags().BoolVar(&partiallyAble, "partial", false, "allow partial fills")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("maker-token")
	_ = cmd.MarkFlagRequired("taker-token")
	_ = cmd.MarkFlagRequired("making")
	_ = cmd.MarkFlagRequired("taking")
	_ = cmd.MarkFlagRequired("min-return")
	return cmd
}

func (s *runtimeState) newBridgeCommand() *cobra.Command {
	var (
		user        string
		fromChain   int64
		toChain     int64
		fromToken   string
		toToken     string
		amount      string
		slippage    float64
		priceImpact float64
		statusHash  string
	)
	cmd := &cobra.Command{
		Use:   "bridge",
		Short: "Swap tokens across chains",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()

			if statusHash != "" {
				state, err := s.orch.SettleBridge(ctx, statusHash)
				if err != nil {
					return err
				}
				return s.emit(map[string]string{"source_tx": statusHash, "status": string(state)})
			}

			w, err := s.evmWallet(ctx, user)
			if err != nil {
				return err
			}
			res := s.orch.Crosschain(ctx, orchestrate.CrosschainParams{
				UserID:          w.UserID,
				FromChainID:     fromChain,
				ToChainID:       toChain,
				Wallet:          w.Address,
				EncryptedKey:    w.EncryptedSecret,
				FromToken:       fromToken,
				ToToken:         toToken,
				Amount:          amount,
				SlippagePercent: slippage,
				PriceImpactPct:  priceImpact,
			})
			if err := resultError(res); err != nil {
				return err
			}
			return s.emit(res)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().Int64Var(&fromChain, "from-chain", 1, "source chain id")
	cmd.Flags().Int64Var(&toChain, "to-chain", 0, "destination chain id")
	cmd.Flags().StringVar(&fromToken, "from", "", "token to sell on the source chain")
	cmd.Flags().StringVar(&toToken, "to", "", "token to receive on the destination chain")
	cmd.Flags().StringVar(&amount, "amount", "", "human-readable amount to bridge")
	cmd.Flags().Float64Var(&slippage, "slippage", 1, "slippage tolerance in percent")
	cmd.Flags().Float64Var(&priceImpact, "price-impact", 5, "price impact protection in percent")
	cmd.Flags().StringVar(&statusHash, "status", "", "poll settlement for a source tx hash instead of bridging")
	return cmd
}

func (s *runtimeState) newWithdrawCommand() *cobra.Command {
	var (
		user    string
		chainID int64
		token   string
		to      string
		amount  string
	)
	cmd := &cobra.Command{
		Use:   "withdraw",
		Short: "Send tokens out of a custodial wallet",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.requireStore(); err != nil {
				return err
			}
			ctx := cmd.Context()
			w, err := s.evmWallet(ctx, user)
			if err != nil {
				return err
			}
			res := s.orch.Withdraw(ctx, orchestrate.WithdrawParams{
				UserID:       w.UserID,
				ChainID:      chainID,
				Wallet:       w.Address,
				EncryptedKey: w.EncryptedSecret,
				Token:        token,
				To:           to,
				Amount:       amount,
			})
			if err := resultError(res); err != nil {
				return err
			}
			return s.emit(res)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "external user id")
	cmd.Flags().Int64Var(&chainID, "chain", 1, "chain id")
	cmd.Flags().StringVar(&token, "token", "", "token to send (native sentinel for the chain coin)")
	cmd.Flags().StringVar(&to, "to", "", "recipient address")
	cmd.Flags().StringVar(&amount, "amount", "", "human-readable amount")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("token")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}
