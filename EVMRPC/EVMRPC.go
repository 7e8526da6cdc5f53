package EVMRPC

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"gotokenbridge/config"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hashicorp/go-hclog"
)

// ChainClient is the chain-facing side of the bridge. SourceChainClient and
// TargetChainClient are selected from the configured role.
type ChainClient interface {
	Name() string
	Role() config.ChainRole
	Config() *config.ChainConfig
	BlockNumber(ctx context.Context) (uint64, error)
	SubscribeNewHead(ctx context.Context, ch chan<- *ethtypes.Header) (ethereum.Subscription, error)
	TransactionReceipt(ctx context.Context, hash common.Hash) (*TxReceipt, error)
	Bind(address common.Address, meta *bind.MetaData, signer *Signer) (Contract, error)
	Signer(address string) (*Signer, error)
	Master() *Signer
	Close()
}

type SourceChainClient struct {
	*evmClient
}

type TargetChainClient struct {
	*evmClient
}

var (
	_ ChainClient = (*SourceChainClient)(nil)
	_ ChainClient = (*TargetChainClient)(nil)
)

func (c *SourceChainClient) Role() config.ChainRole { return config.RoleSource }

func (c *TargetChainClient) Role() config.ChainRole { return config.RoleTarget }

// Options not present in the chain config itself.
type Options struct {
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
}

func NewChainClient(cfg *config.ChainConfig, opts Options, logger hclog.Logger) (ChainClient, error) {
	base, err := newEvmClient(cfg, opts, logger)
	if err != nil {
		return nil, err
	}

	switch cfg.Role {
	case config.RoleSource:
		return &SourceChainClient{base}, nil
	case config.RoleTarget:
		return &TargetChainClient{base}, nil
	}

	return nil, fmt.Errorf("chain %s: unknown role %q", cfg.Name, cfg.Role)
}

type evmClient struct {
	cfg     *config.ChainConfig
	opts    Options
	logger  hclog.Logger
	chainID *big.Int

	master  *Signer
	signers map[common.Address]*Signer

	lock    sync.Mutex
	clients map[string]*ethclient.Client
}

func newEvmClient(cfg *config.ChainConfig, opts Options, logger hclog.Logger) (*evmClient, error) {
	if opts.ReceiptPollInterval == 0 {
		opts.ReceiptPollInterval = config.DefaultReceiptPollInterval
	}

	if opts.ReceiptTimeout == 0 {
		opts.ReceiptTimeout = config.DefaultReceiptTimeout
	}

	c := &evmClient{
		cfg:     cfg,
		opts:    opts,
		logger:  logger.Named(cfg.Name),
		chainID: big.NewInt(cfg.ChainID),
		signers: map[common.Address]*Signer{},
		clients: map[string]*ethclient.Client{},
	}

	master, err := NewSigner(cfg.MasterKey, c.chainID, cfg)
	if err != nil {
		return nil, fmt.Errorf("chain %s: invalid master key: %w", cfg.Name, err)
	}

	c.master = master
	c.signers[master.Address()] = master

	for i, pk := range cfg.AccountKeys {
		s, err := NewSigner(pk, c.chainID, cfg)
		if err != nil {
			return nil, fmt.Errorf("chain %s: invalid account key #%d: %w", cfg.Name, i, err)
		}

		// one signer per address, otherwise nonces are no longer serialised
		if _, ok := c.signers[s.Address()]; ok {
			continue
		}

		c.signers[s.Address()] = s
	}

	return c, nil
}

func (c *evmClient) Name() string { return c.cfg.Name }

func (c *evmClient) Config() *config.ChainConfig { return c.cfg }

func (c *evmClient) Master() *Signer { return c.master }

// Signer returns the signer holding the key of address.
func (c *evmClient) Signer(address string) (*Signer, error) {
	s, ok := c.signers[common.HexToAddress(address)]
	if !ok {
		return nil, fmt.Errorf("chain %s: no key configured for %s", c.cfg.Name, address)
	}

	return s, nil
}

func (c *evmClient) endpoints() []string {
	if len(c.cfg.RPCList) > 0 {
		return c.cfg.RPCList
	}

	return []string{c.cfg.WSURL}
}

func (c *evmClient) dial(ctx context.Context, url string) (*ethclient.Client, error) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if cl, ok := c.clients[url]; ok {
		return cl, nil
	}

	cl, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}

	c.clients[url] = cl

	return cl, nil
}

func (c *evmClient) drop(url string) {
	c.lock.Lock()
	defer c.lock.Unlock()

	if cl, ok := c.clients[url]; ok {
		cl.Close()
		delete(c.clients, url)
	}
}

func (c *evmClient) Close() {
	c.lock.Lock()
	defer c.lock.Unlock()

	for url, cl := range c.clients {
		cl.Close()
		delete(c.clients, url)
	}
}

// WithClient runs f against the configured endpoints in order until one succeeds.
// Errors that come from the chain itself (reverts, not found) are returned
// immediately, transport errors move on to the next endpoint.
func WithClient[T any](ctx context.Context, c *evmClient, f func(client *ethclient.Client) (T, error)) (res T, err error) {
	for _, url := range c.endpoints() {
		var client *ethclient.Client

		client, err = c.dial(ctx, url)
		if err != nil {
			c.logger.Warn("error connecting to rpc", "url", url, "err", err)

			continue
		}

		res, err = f(client)
		if err == nil || !IsTransportError(err) {
			return res, err
		}

		c.logger.Warn("rpc call failed, trying next endpoint", "url", url, "err", err)
		c.drop(url)
	}

	if err == nil {
		err = errors.New("no rpc endpoint configured")
	}

	return res, err
}

// IsTransportError reports whether err came from reaching the node rather than
// from the node rejecting the request.
func IsTransportError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, ethereum.NotFound) {
		return false
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "eof", "timeout", "no such host", "503", "502", "429", "closed"} {
		if strings.Contains(msg, s) {
			return true
		}
	}

	return false
}

func (c *evmClient) BlockNumber(ctx context.Context) (uint64, error) {
	return WithClient(ctx, c, func(client *ethclient.Client) (uint64, error) {
		return client.BlockNumber(ctx)
	})
}

func (c *evmClient) TransactionReceipt(ctx context.Context, hash common.Hash) (*TxReceipt, error) {
	receipt, err := WithClient(ctx, c, func(client *ethclient.Client) (*ethtypes.Receipt, error) {
		return client.TransactionReceipt(ctx, hash)
	})
	if err != nil {
		return nil, err
	}

	return newTxReceipt(receipt), nil
}

func (c *evmClient) Bind(address common.Address, meta *bind.MetaData, signer *Signer) (Contract, error) {
	parsed, err := meta.GetAbi()
	if err != nil {
		return nil, err
	}

	return &boundContract{
		address: address,
		abi:     *parsed,
		client:  c,
		signer:  signer,
	}, nil
}
