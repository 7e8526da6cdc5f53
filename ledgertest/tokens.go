package ledgertest

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

func argAddress(v interface{}) common.Address {
	return v.(common.Address)
}

func argBig(v interface{}) *big.Int {
	return new(big.Int).Set(v.(*big.Int))
}

func argBigs(v interface{}) []*big.Int {
	in := v.([]*big.Int)
	out := make([]*big.Int, len(in))

	for i := range in {
		out[i] = new(big.Int).Set(in[i])
	}

	return out
}

func argHash(v interface{}) common.Hash {
	switch h := v.(type) {
	case [32]byte:
		return h
	case common.Hash:
		return h
	}

	panic(fmt.Sprintf("unexpected bytes32 argument %T", v))
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}

	return new(big.Int).Set(v)
}

type erc20 struct {
	name, symbol string
	decimals     uint8
	supply       *big.Int
	balances     map[common.Address]*big.Int
	allowances   map[common.Address]map[common.Address]*big.Int
}

func newERC20(name, symbol string, decimals uint8) *erc20 {
	return &erc20{
		name:       name,
		symbol:     symbol,
		decimals:   decimals,
		supply:     new(big.Int),
		balances:   map[common.Address]*big.Int{},
		allowances: map[common.Address]map[common.Address]*big.Int{},
	}
}

func (t *erc20) allowance(owner, spender common.Address) *big.Int {
	return bigOrZero(t.allowances[owner][spender])
}

func (t *erc20) mint(to common.Address, amount *big.Int) {
	t.balances[to] = new(big.Int).Add(bigOrZero(t.balances[to]), amount)
	t.supply.Add(t.supply, amount)
}

func (t *erc20) burn(from common.Address, amount *big.Int) error {
	if bigOrZero(t.balances[from]).Cmp(amount) < 0 {
		return revert("ERC20: burn amount exceeds balance")
	}

	t.balances[from] = new(big.Int).Sub(t.balances[from], amount)
	t.supply.Sub(t.supply, amount)

	return nil
}

func (t *erc20) transfer(from, to common.Address, amount *big.Int) error {
	if bigOrZero(t.balances[from]).Cmp(amount) < 0 {
		return revert("ERC20: transfer amount exceeds balance")
	}

	t.balances[from] = new(big.Int).Sub(t.balances[from], amount)
	t.balances[to] = new(big.Int).Add(bigOrZero(t.balances[to]), amount)

	return nil
}

// spend consumes allowance of spender over owner unless they are the same account.
func (t *erc20) spend(owner, spender common.Address, amount *big.Int) error {
	if owner == spender || amount.Sign() == 0 {
		return nil
	}

	allowed := t.allowance(owner, spender)
	if allowed.Cmp(amount) < 0 {
		return revert("ERC20: insufficient allowance")
	}

	t.allowances[owner][spender] = allowed.Sub(allowed, amount)

	return nil
}

func (t *erc20) transferFrom(spender, from, to common.Address, amount *big.Int) error {
	if bigOrZero(t.balances[from]).Cmp(amount) < 0 {
		return revert("ERC20: transfer amount exceeds balance")
	}

	if err := t.spend(from, spender, amount); err != nil {
		return err
	}

	return t.transfer(from, to, amount)
}

func (t *erc20) invoke(_ *Ledger, from common.Address, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "name":
		return []interface{}{t.name}, nil
	case "symbol":
		return []interface{}{t.symbol}, nil
	case "decimals":
		return []interface{}{t.decimals}, nil
	case "totalSupply":
		return []interface{}{new(big.Int).Set(t.supply)}, nil
	case "balanceOf":
		return []interface{}{bigOrZero(t.balances[argAddress(args[0])])}, nil
	case "allowance":
		return []interface{}{t.allowance(argAddress(args[0]), argAddress(args[1]))}, nil
	case "approve":
		if t.allowances[from] == nil {
			t.allowances[from] = map[common.Address]*big.Int{}
		}

		t.allowances[from][argAddress(args[0])] = argBig(args[1])

		return []interface{}{true}, nil
	case "transfer":
		return []interface{}{true}, t.transfer(from, argAddress(args[0]), argBig(args[1]))
	case "transferFrom":
		return []interface{}{true}, t.transferFrom(from, argAddress(args[0]), argAddress(args[1]), argBig(args[2]))
	}

	return nil, revert("erc20: unknown method %s", method)
}

type erc721 struct {
	name, symbol string
	baseURI      string
	owners       map[string]common.Address
	uris         map[string]string
	approvals    map[string]common.Address
	operators    map[common.Address]map[common.Address]bool
}

func newERC721(name, symbol, baseURI string) *erc721 {
	return &erc721{
		name:      name,
		symbol:    symbol,
		baseURI:   baseURI,
		owners:    map[string]common.Address{},
		uris:      map[string]string{},
		approvals: map[string]common.Address{},
		operators: map[common.Address]map[common.Address]bool{},
	}
}

func (t *erc721) balanceOf(owner common.Address) *big.Int {
	n := 0

	for _, o := range t.owners {
		if o == owner {
			n++
		}
	}

	return big.NewInt(int64(n))
}

func (t *erc721) ownerOf(id *big.Int) (common.Address, error) {
	owner, ok := t.owners[id.String()]
	if !ok {
		return common.Address{}, revert("ERC721: invalid token ID")
	}

	return owner, nil
}

func (t *erc721) mint(to common.Address, id *big.Int, uri string) error {
	if _, ok := t.owners[id.String()]; ok {
		return revert("ERC721: token already minted")
	}

	if uri == "" {
		uri = t.baseURI + id.String()
	}

	t.owners[id.String()] = to
	t.uris[id.String()] = uri

	return nil
}

func (t *erc721) burn(id *big.Int) {
	delete(t.owners, id.String())
	delete(t.approvals, id.String())
	delete(t.uris, id.String())
}

func (t *erc721) canMove(spender, from common.Address, id *big.Int) error {
	owner, err := t.ownerOf(id)
	if err != nil {
		return err
	}

	if owner != from {
		return revert("ERC721: transfer from incorrect owner")
	}

	if spender != owner && t.approvals[id.String()] != spender && !t.operators[owner][spender] {
		return revert("ERC721: caller is not token owner or approved")
	}

	return nil
}

func (t *erc721) move(from, to common.Address, id *big.Int) {
	delete(t.approvals, id.String())
	t.owners[id.String()] = to
}

func (t *erc721) invoke(_ *Ledger, from common.Address, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "name":
		return []interface{}{t.name}, nil
	case "symbol":
		return []interface{}{t.symbol}, nil
	case "totalSupply":
		return []interface{}{big.NewInt(int64(len(t.owners)))}, nil
	case "balanceOf":
		return []interface{}{t.balanceOf(argAddress(args[0]))}, nil
	case "ownerOf":
		owner, err := t.ownerOf(argBig(args[0]))

		return []interface{}{owner}, err
	case "tokenURI":
		id := argBig(args[0])
		if _, err := t.ownerOf(id); err != nil {
			return nil, err
		}

		return []interface{}{t.uris[id.String()]}, nil
	case "getApproved":
		return []interface{}{t.approvals[argBig(args[0]).String()]}, nil
	case "isApprovedForAll":
		return []interface{}{t.operators[argAddress(args[0])][argAddress(args[1])]}, nil
	case "approve":
		id := argBig(args[1])

		owner, err := t.ownerOf(id)
		if err != nil {
			return nil, err
		}

		if owner != from && !t.operators[owner][from] {
			return nil, revert("ERC721: approve caller is not token owner or approved for all")
		}

		t.approvals[id.String()] = argAddress(args[0])

		return nil, nil
	case "setApprovalForAll":
		if t.operators[from] == nil {
			t.operators[from] = map[common.Address]bool{}
		}

		t.operators[from][argAddress(args[0])] = args[1].(bool)

		return nil, nil
	case "transferFrom", "safeTransferFrom":
		owner, to, id := argAddress(args[0]), argAddress(args[1]), argBig(args[2])
		if err := t.canMove(from, owner, id); err != nil {
			return nil, err
		}

		t.move(owner, to, id)

		return nil, nil
	}

	return nil, revert("erc721: unknown method %s", method)
}

type erc1155 struct {
	name, symbol string
	uri          string
	balances     map[string]map[common.Address]*big.Int
	operators    map[common.Address]map[common.Address]bool
}

func newERC1155(name, symbol, uri string) *erc1155 {
	return &erc1155{
		name:      name,
		symbol:    symbol,
		uri:       uri,
		balances:  map[string]map[common.Address]*big.Int{},
		operators: map[common.Address]map[common.Address]bool{},
	}
}

func (t *erc1155) balanceOf(owner common.Address, id *big.Int) *big.Int {
	return bigOrZero(t.balances[id.String()][owner])
}

func (t *erc1155) supply(id *big.Int) *big.Int {
	total := new(big.Int)
	for _, b := range t.balances[id.String()] {
		total.Add(total, b)
	}

	return total
}

func (t *erc1155) mint(to common.Address, id, amount *big.Int) {
	if t.balances[id.String()] == nil {
		t.balances[id.String()] = map[common.Address]*big.Int{}
	}

	t.balances[id.String()][to] = new(big.Int).Add(t.balanceOf(to, id), amount)
}

func (t *erc1155) checkBalances(owner common.Address, ids, amounts []*big.Int) error {
	if len(ids) != len(amounts) {
		return revert("ERC1155: ids and amounts length mismatch")
	}

	need := map[string]*big.Int{}

	for i, id := range ids {
		n := bigOrZero(need[id.String()])
		need[id.String()] = n.Add(n, amounts[i])

		if t.balanceOf(owner, id).Cmp(need[id.String()]) < 0 {
			return revert("ERC1155: insufficient balance for transfer")
		}
	}

	return nil
}

func (t *erc1155) burn(from common.Address, ids, amounts []*big.Int) error {
	if err := t.checkBalances(from, ids, amounts); err != nil {
		return err
	}

	for i, id := range ids {
		t.balances[id.String()][from] = new(big.Int).Sub(t.balanceOf(from, id), amounts[i])
	}

	return nil
}

func (t *erc1155) move(spender, from, to common.Address, ids, amounts []*big.Int) error {
	if spender != from && !t.operators[from][spender] {
		return revert("ERC1155: caller is not token owner or approved")
	}

	if err := t.burn(from, ids, amounts); err != nil {
		return err
	}

	for i, id := range ids {
		t.mint(to, id, amounts[i])
	}

	return nil
}

func (t *erc1155) invoke(_ *Ledger, from common.Address, method string, args []interface{}) ([]interface{}, error) {
	switch method {
	case "name":
		return []interface{}{t.name}, nil
	case "symbol":
		return []interface{}{t.symbol}, nil
	case "uri":
		return []interface{}{t.uri}, nil
	case "totalSupply":
		return []interface{}{t.supply(argBig(args[0]))}, nil
	case "balanceOf":
		return []interface{}{t.balanceOf(argAddress(args[0]), argBig(args[1]))}, nil
	case "balanceOfBatch":
		owners, ids := args[0].([]common.Address), argBigs(args[1])
		if len(owners) != len(ids) {
			return nil, revert("ERC1155: accounts and ids length mismatch")
		}

		res := make([]*big.Int, len(ids))
		for i := range ids {
			res[i] = t.balanceOf(owners[i], ids[i])
		}

		return []interface{}{res}, nil
	case "isApprovedForAll":
		return []interface{}{t.operators[argAddress(args[0])][argAddress(args[1])]}, nil
	case "setApprovalForAll":
		if t.operators[from] == nil {
			t.operators[from] = map[common.Address]bool{}
		}

		t.operators[from][argAddress(args[0])] = args[1].(bool)

		return nil, nil
	case "safeTransferFrom":
		return nil, t.move(from, argAddress(args[0]), argAddress(args[1]),
			[]*big.Int{argBig(args[2])}, []*big.Int{argBig(args[3])})
	case "safeBatchTransferFrom":
		return nil, t.move(from, argAddress(args[0]), argAddress(args[1]), argBigs(args[2]), argBigs(args[3]))
	}

	return nil, revert("erc1155: unknown method %s", method)
}
