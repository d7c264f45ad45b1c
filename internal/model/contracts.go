package model

// Logical contract names resolved through the on-chain registry. They double
// as cache keys in the key-value store.
const (
	ContractLiquidityProtection = "LiquidityProtection"
	ContractStakingRewards      = "StakingRewards"
	ContractConverterRegistry   = "BancorConverterRegistry"
	ContractNetworkToken        = "BNTToken"
)

// RegistryContracts lists the names fetched per network version.
var RegistryContracts = []string{
	ContractLiquidityProtection,
	ContractStakingRewards,
	ContractConverterRegistry,
	ContractNetworkToken,
}

// ContractAddressSet maps a logical contract name to its address. It is an
// immutable snapshot per network version.
type ContractAddressSet map[string]string

// Equal reports whether both sets contain the same name/address pairs.
func (s ContractAddressSet) Equal(other ContractAddressSet) bool {
	if len(s) != len(other) {
		return false
	}
	for name, addr := range s {
		if other[name] != addr {
			return false
		}
	}
	return true
}
