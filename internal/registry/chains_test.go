package registry

import (
	"os"
	"path/filepath"
	"testing"
)

func TestChainResolvesKnownProfiles(t *testing.T) {
	cases := []struct {
		chainID  int64
		name     string
		coin     string
		hasLimit bool
	}{
		{1, "eth", "ETH", true},
		{56, "bsc", "BNB", true},
		{137, "polygon", "MATIC", true},
		{8453, "base", "ETH", false},
	}
	for _, tc := range cases {
		p, err := Chain(tc.chainID)
		if err != nil {
			t.Fatalf("Chain(%d) failed: %v", tc.chainID, err)
		}
		if p.Name != tc.name {
			t.Fatalf("chain %d: unexpected name %s", tc.chainID, p.Name)
		}
		if p.NativeCoinName != tc.coin {
			t.Fatalf("chain %d: unexpected native coin %s", tc.chainID, p.NativeCoinName)
		}
		if (p.LimitVerifier != "") != tc.hasLimit {
			t.Fatalf("chain %d: limit verifier presence mismatch", tc.chainID)
		}
		if p.RPCURL == "" || p.ExplorerTxURL == "" {
			t.Fatalf("chain %d: incomplete profile", tc.chainID)
		}
	}
}

func TestChainRejectsUnknownID(t *testing.T) {
	if _, err := Chain(999999); err == nil {
		t.Fatal("expected error for unsupported chain id")
	}
}

func TestIsNativeCoin(t *testing.T) {
	if !IsNativeCoin("0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE") {
		t.Fatal("sentinel comparison must be case-insensitive")
	}
	if IsNativeCoin(ZeroAddress) {
		t.Fatal("zero address is not the native sentinel")
	}
}

func TestApplyRPCOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	content := "chains:\n  137:\n    rpc_url: http://localhost:8545\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	orig, _ := Chain(137)
	t.Cleanup(func() {
		profiles[137] = orig
	})

	if err := ApplyRPCOverrides(path); err != nil {
		t.Fatalf("ApplyRPCOverrides failed: %v", err)
	}
	p, _ := Chain(137)
	if p.RPCURL != "http://localhost:8545" {
		t.Fatalf("override not applied, got %s", p.RPCURL)
	}
	if p.SwapRouter != orig.SwapRouter {
		t.Fatal("override must not touch contract addresses")
	}
}

func TestApplyRPCOverridesUnknownChain(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chains.yaml")
	if err := os.WriteFile(path, []byte("chains:\n  31337:\n    rpc_url: http://x\n"), 0o600); err != nil {
		t.Fatalf("write override: %v", err)
	}
	if err := ApplyRPCOverrides(path); err == nil {
		t.Fatal("expected error for unsupported chain id in override file")
	}
}
