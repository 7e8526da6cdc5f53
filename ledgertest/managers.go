package ledgertest

import (
	"math/big"

	"gotokenbridge/config"
	"gotokenbridge/types"

	"github.com/ethereum/go-ethereum/common"
)

type tokenManager struct {
	wards map[common.Address]bool
}

func (t *tokenManager) invoke(_ *Ledger, from common.Address, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "wards":
		if t.wards[argAddress(args[0])] {
			return []interface{}{big.NewInt(1)}, nil
		}

		return []interface{}{big.NewInt(0)}, nil
	case "rely", "deny":
		if !t.wards[from] {
			return nil, revert("TokenManager/not-authorized")
		}

		t.wards[argAddress(args[0])] = method == "rely"

		return nil, nil
	}

	return nil, revert("token manager: unknown method %s", method)
}

type manager struct {
	semantics    types.TransferSemantics
	self         common.Address
	tokenManager common.Address
	wards        map[common.Address]bool
	mappings     map[common.Address]common.Address
	wrapped      map[common.Address]bool
	used         map[common.Hash]bool
}

func (m *manager) auth(from common.Address) error {
	if !m.wards[from] {
		return revert("Manager/not-authorized")
	}

	return nil
}

func (m *manager) consume(receipt common.Hash) error {
	if m.used[receipt] {
		return revert("Manager/the burn event was already processed")
	}

	m.used[receipt] = true

	return nil
}

func erc20At(l *Ledger, addr common.Address) (*erc20, error) {
	c, err := l.lookup(addr)
	if err != nil {
		return nil, err
	}

	t, ok := c.(*erc20)
	if !ok {
		return nil, revert("%s is not an erc20 token", addr)
	}

	return t, nil
}

func erc721At(l *Ledger, addr common.Address) (*erc721, error) {
	c, err := l.lookup(addr)
	if err != nil {
		return nil, err
	}

	t, ok := c.(*erc721)
	if !ok {
		return nil, revert("%s is not an erc721 token", addr)
	}

	return t, nil
}

func erc1155At(l *Ledger, addr common.Address) (*erc1155, error) {
	c, err := l.lookup(addr)
	if err != nil {
		return nil, err
	}

	t, ok := c.(*erc1155)
	if !ok {
		return nil, revert("%s is not an erc1155 token", addr)
	}

	return t, nil
}

func (m *manager) wrappedToken(token common.Address) error {
	if !m.wrapped[token] {
		return revert("Manager/token is not bridged by this manager")
	}

	return nil
}

func (m *manager) addToken(l *Ledger, from common.Address, args []interface{}) error {
	if err := m.auth(from); err != nil {
		return err
	}

	tmAddr, origin := argAddress(args[0]), argAddress(args[1])
	if tmAddr != m.tokenManager {
		return revert("Manager/unknown token manager")
	}

	c, err := l.lookup(tmAddr)
	if err != nil {
		return err
	}

	if tm, ok := c.(*tokenManager); !ok || !tm.wards[m.self] {
		return revert("TokenManager/not-authorized")
	}

	if m.mappings[origin] != (common.Address{}) {
		return revert("Manager/token already mapped")
	}

	name, symbol := args[2].(string), args[3].(string)

	var wrapped common.Address

	switch m.semantics {
	case types.Fungible:
		wrapped = l.deploy(newERC20(name, symbol, args[4].(uint8)))
	case types.NonFungible:
		wrapped = l.deploy(newERC721(name, symbol, args[4].(string)))
	case types.SemiFungible:
		wrapped = l.deploy(newERC1155(name, symbol, args[4].(string)))
	}

	m.mappings[origin] = wrapped
	m.wrapped[wrapped] = true

	return nil
}

func (m *manager) removeToken(from common.Address, args []interface{}) error {
	if err := m.auth(from); err != nil {
		return err
	}

	origin := argAddress(args[1])

	wrapped, ok := m.mappings[origin]
	if !ok {
		return revert("Manager/token not mapped")
	}

	delete(m.mappings, origin)
	delete(m.wrapped, wrapped)

	return nil
}

func (m *manager) invoke(l *Ledger, from common.Address, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "mappings":
		return []interface{}{m.mappings[argAddress(args[0])]}, nil
	case "usedEvents_":
		return []interface{}{m.used[argHash(args[0])]}, nil
	case "addToken":
		return nil, m.addToken(l, from, args)
	case "removeToken":
		return nil, m.removeToken(from, args)
	}

	switch m.semantics {
	case types.Fungible:
		return nil, m.invokeFungible(l, from, method, args)
	case types.NonFungible:
		return nil, m.invokeNonFungible(l, from, method, args)
	default:
		return nil, m.invokeSemiFungible(l, from, method, args)
	}
}

func (m *manager) invokeFungible(l *Ledger, from common.Address, method string, args []interface{}) error {
	token, err := erc20At(l, argAddress(args[0]))
	if err != nil {
		return err
	}

	amount, recipient := argBig(args[1]), argAddress(args[2])
	if amount.Sign() <= 0 {
		return revert("Manager/amount must be positive")
	}

	switch method {
	case "lockToken":
		return token.transferFrom(m.self, from, m.self, amount)
	case "burnToken":
		if err := m.wrappedToken(argAddress(args[0])); err != nil {
			return err
		}

		if bigOrZero(token.balances[from]).Cmp(amount) < 0 {
			return revert("ERC20: burn amount exceeds balance")
		}

		if err := token.spend(from, m.self, amount); err != nil {
			return err
		}

		return token.burn(from, amount)
	case "unlockToken":
		if err := m.auth(from); err != nil {
			return err
		}

		if bigOrZero(token.balances[m.self]).Cmp(amount) < 0 {
			return revert("ERC20: transfer amount exceeds balance")
		}

		if err := m.consume(argHash(args[3])); err != nil {
			return err
		}

		return token.transfer(m.self, recipient, amount)
	case "mintToken":
		if err := m.auth(from); err != nil {
			return err
		}

		if err := m.wrappedToken(argAddress(args[0])); err != nil {
			return err
		}

		if err := m.consume(argHash(args[3])); err != nil {
			return err
		}

		token.mint(recipient, amount)

		return nil
	}

	return revert("fungible manager: unknown method %s", method)
}

func (m *manager) invokeNonFungible(l *Ledger, from common.Address, method string, args []interface{}) error {
	token, err := erc721At(l, argAddress(args[0]))
	if err != nil {
		return err
	}

	var ids []*big.Int

	switch method {
	case "lockNFT721Token", "unlockTokens", "mintTokens", "burnTokens":
		ids = argBigs(args[1])
	default:
		ids = []*big.Int{argBig(args[1])}
	}

	recipient := argAddress(args[2])

	switch method {
	case "lockNFT721Token":
		for _, id := range ids {
			if err := token.canMove(m.self, from, id); err != nil {
				return err
			}
		}

		for _, id := range ids {
			token.move(from, m.self, id)
		}

		return nil
	case "burnToken", "burnTokens":
		if err := m.wrappedToken(argAddress(args[0])); err != nil {
			return err
		}

		for _, id := range ids {
			if err := token.canMove(m.self, from, id); err != nil {
				return err
			}
		}

		for _, id := range ids {
			token.burn(id)
		}

		return nil
	case "unlockToken", "unlockTokens":
		if err := m.auth(from); err != nil {
			return err
		}

		for _, id := range ids {
			if owner, err := token.ownerOf(id); err != nil || owner != m.self {
				return revert("Manager/token %s is not locked", id)
			}
		}

		if err := m.consume(argHash(args[3])); err != nil {
			return err
		}

		for _, id := range ids {
			token.move(m.self, recipient, id)
		}

		return nil
	case "mintToken", "mintTokens":
		if err := m.auth(from); err != nil {
			return err
		}

		if err := m.wrappedToken(argAddress(args[0])); err != nil {
			return err
		}

		for _, id := range ids {
			if _, err := token.ownerOf(id); err == nil {
				return revert("ERC721: token already minted")
			}
		}

		if err := m.consume(argHash(args[3])); err != nil {
			return err
		}

		for _, id := range ids {
			_ = token.mint(recipient, id, "")
		}

		return nil
	}

	return revert("non-fungible manager: unknown method %s", method)
}

func (m *manager) invokeSemiFungible(l *Ledger, from common.Address, method string, args []interface{}) error {
	token, err := erc1155At(l, argAddress(args[0]))
	if err != nil {
		return err
	}

	recipient := argAddress(args[2])

	var ids, amounts []*big.Int

	switch method {
	case "lockHRC1155Token", "burnToken":
		ids, amounts = []*big.Int{argBig(args[1])}, []*big.Int{argBig(args[3])}
	case "lockHRC1155Tokens", "burnTokens":
		ids, amounts = argBigs(args[1]), argBigs(args[3])
	case "unlockHRC1155Token", "mintToken":
		ids, amounts = []*big.Int{argBig(args[1])}, []*big.Int{argBig(args[4])}
	case "unlockHRC1155Tokens", "mintTokens":
		ids, amounts = argBigs(args[1]), argBigs(args[4])
	default:
		return revert("semi-fungible manager: unknown method %s", method)
	}

	if len(ids) != len(amounts) {
		return revert("Manager/ids and amounts length mismatch")
	}

	switch method {
	case "lockHRC1155Token", "lockHRC1155Tokens":
		return token.move(m.self, from, m.self, ids, amounts)
	case "burnToken", "burnTokens":
		if err := m.wrappedToken(argAddress(args[0])); err != nil {
			return err
		}

		if from != m.self && !token.operators[from][m.self] {
			return revert("ERC1155: caller is not token owner or approved")
		}

		return token.burn(from, ids, amounts)
	case "unlockHRC1155Token", "unlockHRC1155Tokens":
		if err := m.auth(from); err != nil {
			return err
		}

		if err := token.checkBalances(m.self, ids, amounts); err != nil {
			return err
		}

		if err := m.consume(argHash(args[3])); err != nil {
			return err
		}

		return token.move(m.self, m.self, recipient, ids, amounts)
	default:
		if err := m.auth(from); err != nil {
			return err
		}

		if err := m.wrappedToken(argAddress(args[0])); err != nil {
			return err
		}

		if err := m.consume(argHash(args[3])); err != nil {
			return err
		}

		for i, id := range ids {
			token.mint(recipient, id, amounts[i])
		}

		return nil
	}
}

// DeployERC20 deploys a fungible token and returns its address.
func (l *Ledger) DeployERC20(name, symbol string, decimals uint8) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deploy(newERC20(name, symbol, decimals)).Hex()
}

func (l *Ledger) DeployERC721(name, symbol, baseURI string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deploy(newERC721(name, symbol, baseURI)).Hex()
}

func (l *Ledger) DeployERC1155(name, symbol, uri string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.deploy(newERC1155(name, symbol, uri)).Hex()
}

// DeployManager deploys a token manager and a manager for semantics owned by the
// master key, relies the manager on the token manager and records both in the
// chain config.
func (l *Ledger) DeployManager(semantics types.TransferSemantics) config.ContractSet {
	l.mu.Lock()
	defer l.mu.Unlock()

	tm := &tokenManager{wards: map[common.Address]bool{l.master.Address(): true}}
	tmAddr := l.deploy(tm)

	m := &manager{
		semantics:    semantics,
		tokenManager: tmAddr,
		wards:        map[common.Address]bool{l.master.Address(): true},
		mappings:     map[common.Address]common.Address{},
		wrapped:      map[common.Address]bool{},
		used:         map[common.Hash]bool{},
	}
	m.self = l.deploy(m)
	tm.wards[m.self] = true

	set := config.ContractSet{Manager: m.self.Hex(), TokenManager: tmAddr.Hex()}
	l.cfg.Contracts[semantics] = set

	return set
}

func (l *Ledger) MintERC20(token, to string, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := erc20At(l, common.HexToAddress(token))
	if err != nil {
		panic(err)
	}

	t.mint(common.HexToAddress(to), big.NewInt(amount))
}

func (l *Ledger) MintERC721(token, to string, id int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := erc721At(l, common.HexToAddress(token))
	if err != nil {
		panic(err)
	}

	if err := t.mint(common.HexToAddress(to), big.NewInt(id), ""); err != nil {
		panic(err)
	}
}

func (l *Ledger) MintERC1155(token, to string, id, amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := erc1155At(l, common.HexToAddress(token))
	if err != nil {
		panic(err)
	}

	t.mint(common.HexToAddress(to), big.NewInt(id), big.NewInt(amount))
}

// Balance reads balances straight from state without counting as a call. For
// non-fungible tokens a non-nil id yields 1 when owner holds it.
func (l *Ledger) Balance(token, owner string, id *big.Int) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.lookup(common.HexToAddress(token))
	if err != nil {
		return new(big.Int)
	}

	addr := common.HexToAddress(owner)

	switch t := c.(type) {
	case *erc20:
		return bigOrZero(t.balances[addr])
	case *erc721:
		if id == nil {
			return t.balanceOf(addr)
		}

		if o, err := t.ownerOf(id); err == nil && o == addr {
			return big.NewInt(1)
		}

		return new(big.Int)
	case *erc1155:
		return t.balanceOf(addr, id)
	}

	return new(big.Int)
}

// Mapping returns the wrapped token registered for origin, or "" if none.
func (l *Ledger) Mapping(managerAddr, origin string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, err := l.lookup(common.HexToAddress(managerAddr))
	if err != nil {
		return ""
	}

	m, ok := c.(*manager)
	if !ok {
		return ""
	}

	wrapped, ok := m.mappings[common.HexToAddress(origin)]
	if !ok {
		return ""
	}

	return wrapped.Hex()
}
