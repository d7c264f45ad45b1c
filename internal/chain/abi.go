package chain

import (
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const registryABIJSON = `[
  {"inputs": [{"internalType": "bytes32", "name": "contractName", "type": "bytes32"}], "name": "addressOf", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

const protectionABIJSON = `[
  {"inputs": [], "name": "settings", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "store", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

const settingsABIJSON = `[
  {"inputs": [], "name": "networkToken", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "govToken", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "minNetworkTokenLiquidityForMinting", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "defaultNetworkTokenMintingLimit", "outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "averageRateMaxDeviation", "outputs": [{"internalType": "uint32", "name": "", "type": "uint32"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "poolWhitelist", "outputs": [{"internalType": "address[]", "name": "", "type": "address[]"}], "stateMutability": "view", "type": "function"}
]`

const rewardsABIJSON = `[
  {"inputs": [], "name": "store", "outputs": [{"internalType": "address", "name": "", "type": "address"}], "stateMutability": "view", "type": "function"}
]`

const rewardsStoreABIJSON = `[
  {"inputs": [], "name": "poolPrograms", "outputs": [
    {"internalType": "address[]", "name": "poolTokens", "type": "address[]"},
    {"internalType": "uint256[]", "name": "startTimes", "type": "uint256[]"},
    {"internalType": "uint256[]", "name": "endTimes", "type": "uint256[]"},
    {"internalType": "uint256[]", "name": "rewardRates", "type": "uint256[]"}
  ], "stateMutability": "view", "type": "function"}
]`

const positionStoreABIJSON = `[
  {"inputs": [{"internalType": "address", "name": "provider", "type": "address"}], "name": "protectedLiquidityIds", "outputs": [{"internalType": "uint256[]", "name": "", "type": "uint256[]"}], "stateMutability": "view", "type": "function"},
  {"inputs": [{"internalType": "uint256", "name": "id", "type": "uint256"}], "name": "protectedLiquidity", "outputs": [
    {"internalType": "address", "name": "provider", "type": "address"},
    {"internalType": "address", "name": "poolToken", "type": "address"},
    {"internalType": "address", "name": "reserveToken", "type": "address"},
    {"internalType": "uint256", "name": "poolAmount", "type": "uint256"},
    {"internalType": "uint256", "name": "reserveAmount", "type": "uint256"},
    {"internalType": "uint256", "name": "reserveRateN", "type": "uint256"},
    {"internalType": "uint256", "name": "reserveRateD", "type": "uint256"},
    {"internalType": "uint256", "name": "timestamp", "type": "uint256"}
  ], "stateMutability": "view", "type": "function"}
]`

const erc20MetaABIJSON = `[
  {"inputs": [], "name": "symbol", "outputs": [{"internalType": "string", "name": "", "type": "string"}], "stateMutability": "view", "type": "function"},
  {"inputs": [], "name": "decimals", "outputs": [{"internalType": "uint8", "name": "", "type": "uint8"}], "stateMutability": "view", "type": "function"}
]`

type abiSet struct {
	registry      abi.ABI
	protection    abi.ABI
	settings      abi.ABI
	rewards       abi.ABI
	rewardsStore  abi.ABI
	positionStore abi.ABI
	erc20         abi.ABI
}

var (
	abisOnce sync.Once
	abis     abiSet
	abisErr  error
)

func contractABIs() (abiSet, error) {
	abisOnce.Do(func() {
		parse := func(raw string) abi.ABI {
			if abisErr != nil {
				return abi.ABI{}
			}
			parsed, err := abi.JSON(strings.NewReader(raw))
			if err != nil {
				abisErr = err
				return abi.ABI{}
			}
			return parsed
		}
		abis.registry = parse(registryABIJSON)
		abis.protection = parse(protectionABIJSON)
		abis.settings = parse(settingsABIJSON)
		abis.rewards = parse(rewardsABIJSON)
		abis.rewardsStore = parse(rewardsStoreABIJSON)
		abis.positionStore = parse(positionStoreABIJSON)
		abis.erc20 = parse(erc20MetaABIJSON)
	})
	return abis, abisErr
}
