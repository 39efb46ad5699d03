package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"

	"monad-deathmatch-backend/internal/common/config"
	"monad-deathmatch-backend/internal/common/logger"
)

// Backend is the subset of an EVM JSON-RPC client the service uses.
// *ethclient.Client satisfies it.
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Client throttles every RPC through a shared token bucket so polling,
// confirmations and user-triggered reads cannot exhaust the endpoint quota.
type Client struct {
	backend Backend
	limiter *rate.Limiter
	chainID *big.Int
	closer  func()
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimit sets requests per second and burst.
func WithRateLimit(rps, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// NewClient wraps an existing backend.
func NewClient(backend Backend, chainID *big.Int, opts ...Option) *Client {
	c := &Client{
		backend: backend,
		limiter: rate.NewLimiter(rate.Limit(10), 5),
		chainID: chainID,
		closer:  func() {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dial connects to the configured RPC endpoint and checks the chain id.
func Dial(cfg *config.Config) (*Client, error) {
	ec, err := ethclient.Dial(cfg.Chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc %s: %w", cfg.Chain.RPCURL, err)
	}

	c := NewClient(ec, big.NewInt(cfg.Chain.ChainID), WithRateLimit(cfg.Chain.RPCRateLimit, cfg.Chain.RPCBurst))
	c.closer = ec.Close

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	remote, err := c.ChainID(ctx)
	if err != nil {
		ec.Close()
		return nil, fmt.Errorf("query chain id: %w", err)
	}
	if remote.Cmp(c.chainID) != 0 {
		ec.Close()
		return nil, fmt.Errorf("rpc %s serves chain %s, expected %s", cfg.Chain.RPCURL, remote, c.chainID)
	}

	logger.Info().
		Str("rpc", cfg.Chain.RPCURL).
		Str("chain_id", remote.String()).
		Int("rps", cfg.Chain.RPCRateLimit).
		Msg("Chain client initialized")

	return c, nil
}

// ConfiguredChainID is the chain id transactions are signed for.
func (c *Client) ConfiguredChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

func (c *Client) Close() {
	c.closer()
}

// HealthCheck verifies the endpoint answers.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.ChainID(ctx)
	return err
}

func (c *Client) wait(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rpc rate limit: %w", err)
	}
	return nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.backend.ChainID(ctx)
}

func (c *Client) CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.backend.CallContract(ctx, call, blockNumber)
}

func (c *Client) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.backend.BalanceAt(ctx, account, blockNumber)
}

func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.backend.PendingNonceAt(ctx, account)
}

func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.backend.SuggestGasPrice(ctx)
}

func (c *Client) EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error) {
	if err := c.wait(ctx); err != nil {
		return 0, err
	}
	return c.backend.EstimateGas(ctx, call)
}

func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	if err := c.wait(ctx); err != nil {
		return err
	}
	return c.backend.SendTransaction(ctx, tx)
}

func (c *Client) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.backend.TransactionReceipt(ctx, txHash)
}
