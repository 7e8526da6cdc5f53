// Package ledgertest is an in-memory EVM-like ledger used by tests. It hosts
// token and manager contracts, mines one block per transaction and implements
// EVMRPC.ChainClient so the bridge can be driven end to end without a node.
package ledgertest

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"gotokenbridge/EVMRPC"
	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
)

var errRevert = errors.New("execution reverted")

func revert(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errRevert, fmt.Sprintf(format, args...))
}

type contract interface {
	invoke(l *Ledger, from common.Address, method string, args []interface{}) ([]interface{}, error)
}

// Ledger is one chain. All state is guarded by mu.
type Ledger struct {
	cfg     *config.ChainConfig
	chainID *big.Int

	mu        sync.Mutex
	height    uint64
	nonce     uint64
	contracts map[common.Address]contract
	receipts  map[common.Hash]*EVMRPC.TxReceipt
	signers   map[common.Address]*EVMRPC.Signer
	master    *EVMRPC.Signer
	calls     map[string]int
	failNext  map[string]error
	revertOn  map[string]int

	sendMu sync.Mutex
	heads  event.Feed
}

var _ EVMRPC.ChainClient = (*Ledger)(nil)

var chainIDs = struct {
	sync.Mutex
	next int64
}{next: 1000}

// New creates an empty ledger with a freshly generated master key.
func New(name string, role config.ChainRole) *Ledger {
	chainIDs.Lock()
	chainIDs.next++
	id := chainIDs.next
	chainIDs.Unlock()

	l := &Ledger{
		cfg: &config.ChainConfig{
			Name:             name,
			Role:             role,
			ChainID:          id,
			GasFeeMultiplier: config.DefaultGasFeeMultiplier,
			DefaultGasLimit:  config.DefaultGasLimit,
			Confirmations:    2,
			PollInterval:     time.Millisecond,
			Contracts:        map[types.TransferSemantics]config.ContractSet{},
		},
		chainID:   big.NewInt(id),
		contracts: map[common.Address]contract{},
		receipts:  map[common.Hash]*EVMRPC.TxReceipt{},
		signers:   map[common.Address]*EVMRPC.Signer{},
		calls:     map[string]int{},
		failNext:  map[string]error{},
		revertOn:  map[string]int{},
	}

	key := newKey()
	l.cfg.MasterKey = key
	l.master = l.addSigner(key)

	return l
}

func newKey() string {
	pk, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}

	return hex.EncodeToString(crypto.FromECDSA(pk))
}

func (l *Ledger) addSigner(key string) *EVMRPC.Signer {
	s, err := EVMRPC.NewSigner(key, l.chainID, l.cfg)
	if err != nil {
		panic(err)
	}

	l.signers[s.Address()] = s

	return s
}

// NewAccount creates a key the ledger can sign with and returns its address.
func (l *Ledger) NewAccount() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := newKey()
	l.cfg.AccountKeys = append(l.cfg.AccountKeys, key)

	return l.addSigner(key).Address().Hex()
}

// Address returns an address with no key behind it, useful as a recipient.
func Address() string {
	pk, err := crypto.GenerateKey()
	if err != nil {
		panic(err)
	}

	return crypto.PubkeyToAddress(pk.PublicKey).Hex()
}

func (l *Ledger) Name() string { return l.cfg.Name }

func (l *Ledger) Role() config.ChainRole { return l.cfg.Role }

func (l *Ledger) Config() *config.ChainConfig { return l.cfg }

func (l *Ledger) Master() *EVMRPC.Signer { return l.master }

func (l *Ledger) Close() {}

func (l *Ledger) Signer(address string) (*EVMRPC.Signer, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.signers[common.HexToAddress(address)]
	if !ok {
		return nil, fmt.Errorf("chain %s: no key configured for %s", l.cfg.Name, address)
	}

	return s, nil
}

func (l *Ledger) BlockNumber(context.Context) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls["eth_blockNumber"]++

	return l.height, nil
}

func (l *Ledger) SubscribeNewHead(_ context.Context, ch chan<- *ethtypes.Header) (ethereum.Subscription, error) {
	return l.heads.Subscribe(ch), nil
}

func (l *Ledger) TransactionReceipt(_ context.Context, hash common.Hash) (*EVMRPC.TxReceipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, ok := l.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}

	cp := *r

	return &cp, nil
}

func (l *Ledger) Bind(address common.Address, meta *bind.MetaData, signer *EVMRPC.Signer) (EVMRPC.Contract, error) {
	parsed, err := meta.GetAbi()
	if err != nil {
		return nil, err
	}

	b := &boundContract{ledger: l, address: address, abi: parsed}
	if signer != nil {
		b.from = signer.Address()
		b.signed = true
	}

	return b, nil
}

// Mine appends n empty blocks.
func (l *Ledger) Mine(n int) {
	for i := 0; i < n; i++ {
		l.mu.Lock()
		l.height++
		h := l.height
		l.mu.Unlock()

		l.publish(h)
	}
}

// MineEvery keeps mining until ctx is done.
func (l *Ledger) MineEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Mine(1)
		}
	}
}

func (l *Ledger) publish(height uint64) {
	l.sendMu.Lock()
	defer l.sendMu.Unlock()

	l.heads.Send(&ethtypes.Header{Number: new(big.Int).SetUint64(height)})
}

// Calls is the total number of contract calls and transactions seen.
func (l *Ledger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := 0

	for m, n := range l.calls {
		if m != "eth_blockNumber" {
			total += n
		}
	}

	return total
}

// CallCount is the number of calls of one contract method.
func (l *Ledger) CallCount(method string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.calls[method]
}

// FailNext makes the next submission or call of method return err without
// touching state.
func (l *Ledger) FailNext(method string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.failNext[method] = err
}

// RevertNext makes the next transaction of method get mined with failed status.
func (l *Ledger) RevertNext(method string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.revertOn[method]++
}

func (l *Ledger) deploy(c contract) common.Address {
	addr := crypto.CreateAddress(l.master.Address(), l.nonce)
	l.nonce++
	l.contracts[addr] = c

	return addr
}

func (l *Ledger) lookup(addr common.Address) (contract, error) {
	c, ok := l.contracts[addr]
	if !ok {
		return nil, revert("no contract at %s", addr)
	}

	return c, nil
}

type boundContract struct {
	ledger  *Ledger
	address common.Address
	abi     *abi.ABI
	from    common.Address
	signed  bool
}

func (b *boundContract) Address() common.Address { return b.address }

func (b *boundContract) method(name string, params []interface{}) (abi.Method, error) {
	m, ok := b.abi.Methods[name]
	if !ok {
		return abi.Method{}, fmt.Errorf("method '%s' not found", name)
	}

	if _, err := b.abi.Pack(name, params...); err != nil {
		return abi.Method{}, err
	}

	return m, nil
}

func (b *boundContract) Call(_ context.Context, method string, params ...interface{}) ([]interface{}, error) {
	l := b.ledger

	l.mu.Lock()
	defer l.mu.Unlock()

	l.calls[method]++

	if err := l.failNext[method]; err != nil {
		delete(l.failNext, method)

		return nil, err
	}

	m, err := b.method(method, params)
	if err != nil {
		return nil, err
	}

	if !m.IsConstant() {
		return nil, fmt.Errorf("%s is not a view method", method)
	}

	c, err := l.lookup(b.address)
	if err != nil {
		return nil, err
	}

	out, err := c.invoke(l, b.from, method, params)
	if err != nil {
		return nil, err
	}

	// round trip through the codec so results have the types a node would produce
	data, err := m.Outputs.Pack(out...)
	if err != nil {
		return nil, err
	}

	return m.Outputs.Unpack(data)
}

func (b *boundContract) Transact(
	_ context.Context, opts *types.TransactionOptions, method string, params ...interface{},
) (EVMRPC.Tx, error) {
	if !b.signed {
		return nil, EVMRPC.ErrReadOnly
	}

	if err := opts.Validate(); err != nil {
		return nil, err
	}

	l := b.ledger

	l.mu.Lock()

	l.calls[method]++

	if err := l.failNext[method]; err != nil {
		delete(l.failNext, method)
		l.mu.Unlock()

		return nil, err
	}

	m, err := b.method(method, params)
	if err != nil {
		l.mu.Unlock()

		return nil, err
	}

	if m.IsConstant() {
		l.mu.Unlock()

		return nil, fmt.Errorf("%s is a view method", method)
	}

	l.nonce++
	hash := crypto.Keccak256Hash(l.chainID.Bytes(), new(big.Int).SetUint64(l.nonce).Bytes())

	if opts != nil && opts.BeforeSend != nil {
		l.mu.Unlock()

		if err := opts.BeforeSend(hash.Hex()); err != nil {
			return nil, err
		}

		l.mu.Lock()
	}

	status := EVMRPC.TxConfirmed

	if l.revertOn[method] > 0 {
		l.revertOn[method]--
		status = EVMRPC.TxFailed
	} else if c, err := l.lookup(b.address); err != nil {
		status = EVMRPC.TxFailed
	} else if _, err := c.invoke(l, b.from, method, params); err != nil {
		status = EVMRPC.TxFailed
	}

	l.height++

	receipt := &EVMRPC.TxReceipt{
		Hash:        hash,
		Status:      status,
		BlockNumber: l.height,
	}
	l.receipts[receipt.Hash] = receipt

	height := l.height
	l.mu.Unlock()

	l.publish(height)

	return &minedTx{receipt: *receipt}, nil
}

type minedTx struct {
	receipt EVMRPC.TxReceipt
}

func (t *minedTx) Hash() common.Hash { return t.receipt.Hash }

func (t *minedTx) Wait(context.Context) (*EVMRPC.TxReceipt, error) {
	r := t.receipt

	return &r, nil
}
