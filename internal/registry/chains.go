package registry

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	swaperr "github.com/gustavo/swapdesk/internal/errors"
)

// NativeCoin is the sentinel address aggregators use for a chain's native
// coin. Balance and metadata lookups resolve it without touching a contract.
const NativeCoin = "0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"

// ZeroAddress is used as the open allowedSender in limit orders.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// Profile is the static, read-only configuration for one supported chain.
type Profile struct {
	ChainID            int64
	Name               string
	NativeCoinName     string
	RPCURL             string
	ExplorerTxURL      string
	SwapApprovalTarget string
	SwapRouter         string
	LimitApproval      string
	LimitVerifier      string
	CrosschainApproval string
	CrosschainRouter   string
	XBridge            string
}

func (p Profile) ExplorerTx(hash string) string {
	return p.ExplorerTxURL + hash
}

var profiles = map[int64]Profile{
	1: {
		ChainID:            1,
		Name:               "eth",
		NativeCoinName:     "ETH",
		RPCURL:             "https://eth.drpc.org",
		ExplorerTxURL:      "https://etherscan.io/tx/",
		SwapApprovalTarget: "0x40aA958dd87FC8305b97f2BA922CDdCa374bcD7f",
		SwapRouter:         "0x7D0CcAa3Fac1e5A943c5168b6CEd828691b46B36",
		LimitApproval:      "0x40aA958dd87FC8305b97f2BA922CDdCa374bcD7f",
		LimitVerifier:      "0x2ae8947FB81f0AAd5955Baeff9Dcc7779A3e49F2",
		CrosschainApproval: "0x40aA958dd87FC8305b97f2BA922CDdCa374bcD7f",
		CrosschainRouter:   "0x3b3ae790Df4F312e745D270119c6052904FB6790",
		XBridge:            "0xFc99f58A8974A4bc36e60E2d490Bb8D72899ee9f",
	},
	10: {
		ChainID:            10,
		Name:               "optimism",
		NativeCoinName:     "ETH",
		RPCURL:             "https://optimism.drpc.org",
		ExplorerTxURL:      "https://optimistic.etherscan.io/tx/",
		SwapApprovalTarget: "0x68D6B739D2020067D1e2F713b999dA97E4d54812",
		SwapRouter:         "0xf332761c673b59B21fF6dfa8adA44d78c12dEF09",
		LimitApproval:      "0x68D6B739D2020067D1e2F713b999dA97E4d54812",
		LimitVerifier:      "0x2ae8947FB81f0AAd5955Baeff9Dcc7779A3e49F2",
		CrosschainApproval: "0x68D6B739D2020067D1e2F713b999dA97E4d54812",
		CrosschainRouter:   "0xf332761c673b59B21fF6dfa8adA44d78c12dEF09",
		XBridge:            "0xf956D9FA19656D8e5219fd6fa8bA6cb198094138",
	},
	56: {
		ChainID:            56,
		Name:               "bsc",
		NativeCoinName:     "BNB",
		RPCURL:             "https://bsc.drpc.org",
		ExplorerTxURL:      "https://bscscan.com/tx/",
		SwapApprovalTarget: "0x2c34A2Fb1d0b4f55de51E1d0bDEfaDDce6b7cDD6",
		SwapRouter:         "0x9333C74BDd1E118634fE5664ACA7a9710b108Bab",
		LimitApproval:      "0x2c34A2Fb1d0b4f55de51E1d0bDEfaDDce6b7cDD6",
		LimitVerifier:      "0x2ae8947FB81f0AAd5955Baeff9Dcc7779A3e49F2",
		CrosschainApproval: "0x2c34A2Fb1d0b4f55de51E1d0bDEfaDDce6b7cDD6",
		CrosschainRouter:   "0x9333C74BDd1E118634fE5664ACA7a9710b108Bab",
		XBridge:            "0xFc99f58A8974A4bc36e60E2d490Bb8D72899ee9f",
	},
	137: {
		ChainID:            137,
		Name:               "polygon",
		NativeCoinName:     "MATIC",
		RPCURL:             "https://polygon.drpc.org",
		ExplorerTxURL:      "https://polygonscan.com/tx/",
		SwapApprovalTarget: "0x3B86917369B83a6892f553609F3c2F439C184e31",
		SwapRouter:         "0xA748D6573acA135aF68F2635BE60CB80278bd855",
		LimitApproval:      "0x3B86917369B83a6892f553609F3c2F439C184e31",
		LimitVerifier:      "0x2ae8947FB81f0AAd5955Baeff9Dcc7779A3e49F2",
		CrosschainApproval: "0x3B86917369B83a6892f553609F3c2F439C184e31",
		CrosschainRouter:   "0xA748D6573acA135aF68F2635BE60CB80278bd855",
		XBridge:            "0x89f423567c2648BB828c3997f60c47b54f57Fa6e",
	},
	8453: {
		ChainID:            8453,
		Name:               "base",
		NativeCoinName:     "ETH",
		RPCURL:             "https://base.drpc.org",
		ExplorerTxURL:      "https://basescan.org/tx/",
		SwapApprovalTarget: "0x57df6092665eb6058DE53939612413ff4B09114E",
		SwapRouter:         "0x6b2C0c7be2048Daa9b5527982C29f48062B34D58",
		CrosschainApproval: "0x57df6092665eb6058DE53939612413ff4B09114E",
		CrosschainRouter:   "0x6b2C0c7be2048Daa9b5527982C29f48062B34D58",
		XBridge:            "0x5965851f21DAE82eA7C62f87fb7C57172E9F2adD",
	},
	42161: {
		ChainID:            42161,
		Name:               "arbitrum",
		NativeCoinName:     "ETH",
		RPCURL:             "https://arbitrum.drpc.org",
		ExplorerTxURL:      "https://arbiscan.io/tx/",
		SwapApprovalTarget: "0x70cBb871E8f30Fc8Ce23609E9E0Ea87B6b222F58",
		SwapRouter:         "0xf332761c673b59B21fF6dfa8adA44d78c12dEF09",
		LimitApproval:      "0x70cBb871E8f30Fc8Ce23609E9E0Ea87B6b222F58",
		LimitVerifier:      "0x2ae8947FB81f0AAd5955Baeff9Dcc7779A3e49F2",
		CrosschainApproval: "0x70cBb871E8f30Fc8Ce23609E9E0Ea87B6b222F58",
		CrosschainRouter:   "0xf332761c673b59B21fF6dfa8adA44d78c12dEF09",
		XBridge:            "0xFc99f58A8974A4bc36e60E2d490Bb8D72899ee9f",
	},
	43114: {
		ChainID:            43114,
		Name:               "avalanche",
		NativeCoinName:     "AVAX",
		RPCURL:             "https://avalanche.drpc.org",
		ExplorerTxURL:      "https://snowtrace.io/tx/",
		SwapApprovalTarget: "0x40aA958dd87FC8305b97f2BA922CDdCa374bcD7f",
		SwapRouter:         "0x1daC23e41Fc8ce857E86fD8C1AE5b6121C67D96d",
		LimitApproval:      "0x40aA958dd87FC8305b97f2BA922CDdCa374bcD7f",
		LimitVerifier:      "0x2ae8947FB81f0AAd5955Baeff9Dcc7779A3e49F2",
		CrosschainApproval: "0x40aA958dd87FC8305b97f2BA922CDdCa374bcD7f",
		CrosschainRouter:   "0x1daC23e41Fc8ce857E86fD8C1AE5b6121C67D96d",
		XBridge:            "0xf956D9FA19656D8e5219fd6fa8bA6cb198094138",
	},
}

// Chain resolves the profile for a chain id.
func Chain(chainID int64) (Profile, error) {
	p, ok := profiles[chainID]
	if !ok {
		return Profile{}, swaperr.New(swaperr.CodeUsage, fmt.Sprintf("unsupported chain id %d", chainID))
	}
	return p, nil
}

// Chains returns all supported profiles keyed by chain id.
func Chains() map[int64]Profile {
	out := make(map[int64]Profile, len(profiles))
	for id, p := range profiles {
		out[id] = p
	}
	return out
}

// IsNativeCoin reports whether token is the native-coin sentinel.
func IsNativeCoin(token string) bool {
	return strings.EqualFold(strings.TrimSpace(token), NativeCoin)
}

type rpcOverrideFile struct {
	Chains map[int64]struct {
		RPCURL string `yaml:"rpc_url"`
	} `yaml:"chains"`
}

// ApplyRPCOverrides replaces RPC endpoints from a YAML file. Contract
// addresses are deliberately not overridable; they are part of the trading
// product, not deployment configuration.
func ApplyRPCOverrides(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return swaperr.Wrap(swaperr.CodeUsage, "read chain override file", err)
	}
	var file rpcOverrideFile
	if err := yaml.Unmarshal(buf, &file); err != nil {
		return swaperr.Wrap(swaperr.CodeUsage, "parse chain override file", err)
	}
	for id, override := range file.Chains {
		p, ok := profiles[id]
		if !ok {
			return swaperr.New(swaperr.CodeUsage, fmt.Sprintf("override references unsupported chain id %d", id))
		}
		if strings.TrimSpace(override.RPCURL) != "" {
			p.RPCURL = strings.TrimSpace(override.RPCURL)
			profiles[id] = p
		}
	}
	return nil
}
