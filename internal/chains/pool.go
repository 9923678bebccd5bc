package chains

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"github.com/gustavo/swapdesk/internal/cache"
	swaperr "github.com/gustavo/swapdesk/internal/errors"
	"github.com/gustavo/swapdesk/internal/registry"
)

const (
	readAttempts    = 3
	readBackoffBase = 200 * time.Millisecond
)

// NativeDecimals is the decimal count of every supported chain's native coin.
const NativeDecimals = 18

// Pool manages one Backend per chain and answers balance and token-metadata
// queries cache-first. It is safe for concurrent use.
type Pool struct {
	mu       sync.Mutex
	backends map[int64]Backend
	dial     Dialer
	cache    cache.Cache
}

func NewPool(dial Dialer, c cache.Cache) *Pool {
	if dial == nil {
		dial = DialEthclient
	}
	if c == nil {
		c = cache.NewMemory()
	}
	return &Pool{backends: map[int64]Backend{}, dial: dial, cache: c}
}

// Backend returns the pooled client for a chain, dialing on first use.
func (p *Pool) Backend(ctx context.Context, chainID int64) (Backend, error) {
	p.mu.Lock()
	if b, ok := p.backends[chainID]; ok {
		p.mu.Unlock()
		return b, nil
	}
	p.mu.Unlock()

	profile, err := registry.Chain(chainID)
	if err != nil {
		return nil, err
	}
	b, err := p.dial(ctx, profile.RPCURL)
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeChainUnavailable, fmt.Sprintf("connect chain %d rpc", chainID), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.backends[chainID]; ok {
		return existing, nil
	}
	p.backends[chainID] = b
	return b, nil
}

// IsConnected reports whether the chain's node answers a chain-id query.
func (p *Pool) IsConnected(ctx context.Context, chainID int64) bool {
	b, err := p.Backend(ctx, chainID)
	if err != nil {
		return false
	}
	_, err = b.ChainID(ctx)
	return err == nil
}

// NativeBalance returns the native-coin balance in wei, cache-first.
func (p *Pool) NativeBalance(ctx context.Context, chainID int64, wallet string) (*big.Int, error) {
	return p.balance(ctx, chainID, wallet, registry.NativeCoin)
}

// TokenBalance returns a token balance in minor units, resolving the native
// sentinel to the raw chain balance.
func (p *Pool) TokenBalance(ctx context.Context, chainID int64, wallet, token string) (*big.Int, error) {
	return p.balance(ctx, chainID, wallet, token)
}

func (p *Pool) balance(ctx context.Context, chainID int64, wallet, token string) (*big.Int, error) {
	key := fmt.Sprintf("balance:%d:%s:%s", chainID, strings.ToLower(wallet), strings.ToLower(token))
	if cached, ok, _ := p.cache.Get(ctx, key); ok {
		if v, ok := new(big.Int).SetString(cached, 10); ok {
			return v, nil
		}
	}

	b, err := p.Backend(ctx, chainID)
	if err != nil {
		return nil, err
	}

	var balance *big.Int
	if registry.IsNativeCoin(token) {
		balance, err = withRetry(ctx, func() (*big.Int, error) {
			return b.BalanceAt(ctx, common.HexToAddress(wallet), nil)
		})
	} else {
		balance, err = withRetry(ctx, func() (*big.Int, error) {
			return p.erc20Uint256(ctx, b, token, "balanceOf", common.HexToAddress(wallet))
		})
	}
	if err != nil {
		return nil, swaperr.Wrap(swaperr.CodeChainUnavailable, fmt.Sprintf("read balance on chain %d", chainID), err)
	}

	_ = p.cache.Set(ctx, key, balance.String(), cache.BalanceTTL)
	return balance, nil
}

// TokenDecimals returns a token's decimal count. The native sentinel is
// always 18 and never touches the chain.
func (p *Pool) TokenDecimals(ctx context.Context, chainID int64, token string) (int, error) {
	if registry.IsNativeCoin(token) {
		return NativeDecimals, nil
	}

	key := fmt.Sprintf("decimals:%d:%s", chainID, strings.ToLower(token))
	if cached, ok, _ := p.cache.Get(ctx, key); ok {
		if v, err := strconv.Atoi(cached); err == nil {
			return v, nil
		}
	}

	b, err := p.Backend(ctx, chainID)
	if err != nil {
		return 0, err
	}
	value, err := withRetry(ctx, func() (*big.Int, error) {
		return p.erc20Uint256(ctx, b, token, "decimals")
	})
	if err != nil {
		return 0, swaperr.Wrap(swaperr.CodeChainUnavailable, fmt.Sprintf("read decimals on chain %d", chainID), err)
	}

	decimals := int(value.Int64())
	_ = p.cache.Set(ctx, key, strconv.Itoa(decimals), cache.DecimalsTTL)
	return decimals, nil
}

// TokenName returns a token's display name; native coins resolve from the
// chain profile.
func (p *Pool) TokenName(ctx context.Context, chainID int64, token string) (string, error) {
	if registry.IsNativeCoin(token) {
		profile, err := registry.Chain(chainID)
		if err != nil {
			return "", err
		}
		return profile.NativeCoinName, nil
	}

	key := fmt.Sprintf("name:%d:%s", chainID, strings.ToLower(token))
	if cached, ok, _ := p.cache.Get(ctx, key); ok {
		return cached, nil
	}

	b, err := p.Backend(ctx, chainID)
	if err != nil {
		return "", err
	}
	name, err := withRetry(ctx, func() (string, error) {
		data, err := registry.ERC20.Pack("name")
		if err != nil {
			return "", err
		}
		to := common.HexToAddress(token)
		raw, err := b.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return "", err
		}
		out, err := registry.ERC20.Unpack("name", raw)
		if err != nil || len(out) == 0 {
			return "", fmt.Errorf("unpack token name: %w", err)
		}
		name, ok := out[0].(string)
		if !ok {
			return "", fmt.Errorf("token name is not a string")
		}
		return name, nil
	})
	if err != nil {
		return "", swaperr.Wrap(swaperr.CodeChainUnavailable, fmt.Sprintf("read token name on chain %d", chainID), err)
	}

	_ = p.cache.Set(ctx, key, name, cache.NameTTL)
	return name, nil
}

func (p *Pool) erc20Uint256(ctx context.Context, b Backend, token, method string, args ...interface{}) (*big.Int, error) {
	data, err := registry.ERC20.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	to := common.HexToAddress(token)
	raw, err := b.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	out, err := registry.ERC20.Unpack(method, raw)
	if err != nil || len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	switch v := out[0].(type) {
	case *big.Int:
		return v, nil
	case uint8:
		return big.NewInt(int64(v)), nil
	default:
		return nil, fmt.Errorf("unexpected %s return type %T", method, out[0])
	}
}

// withRetry runs an idempotent read with bounded exponential backoff.
// Broadcasts never go through this path.
func withRetry[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	for attempt := 0; attempt < readAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(readBackoffBase << uint(attempt-1)):
			}
		}
		v, err := fn()
		if err == nil {
			return v, nil
		}
		lastErr = err
	}
	return zero, lastErr
}
