package abis

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

func TestABIs(t *testing.T) {
	cases := map[string]struct {
		meta    *bind.MetaData
		methods []string
	}{
		"erc20":         {ERC20MetaData, []string{"balanceOf", "approve", "transferFrom", "decimals", "totalSupply"}},
		"erc721":        {ERC721MetaData, []string{"ownerOf", "setApprovalForAll", "isApprovedForAll", "tokenURI", "safeTransferFrom"}},
		"erc1155":       {ERC1155MetaData, []string{"balanceOfBatch", "safeBatchTransferFrom", "uri"}},
		"token manager": {TokenManagerMetaData, []string{"rely", "deny"}},
		"fungible manager": {FungibleManagerMetaData, []string{
			"lockToken", "unlockToken", "mintToken", "burnToken", "addToken", "removeToken", "mappings", "usedEvents_"}},
		"nft manager": {NonFungibleManagerMetaData, []string{
			"lockNFT721Token", "unlockTokens", "mintTokens", "burnTokens", "addToken"}},
		"semi manager": {SemiFungibleManagerMetaData, []string{
			"lockHRC1155Tokens", "unlockHRC1155Tokens", "mintTokens", "burnTokens", "addToken"}},
	}

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			parsed, err := c.meta.GetAbi()
			require.NoError(t, err)

			for _, m := range c.methods {
				_, ok := parsed.Methods[m]
				require.True(t, ok, m)
			}
		})
	}

	t.Run("pack mint", func(t *testing.T) {
		parsed, err := FungibleManagerMetaData.GetAbi()
		require.NoError(t, err)

		data, err := parsed.Pack("mappings", common.Address{1})
		require.NoError(t, err)
		require.Len(t, data, 4+32)
	})
}
