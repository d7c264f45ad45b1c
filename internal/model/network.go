package model

import "fmt"

// NetworkVersion identifies the active blockchain network. Changing it
// invalidates every derived stream downstream of address resolution.
type NetworkVersion int

const (
	NetworkMainnet NetworkVersion = 1
	NetworkRopsten NetworkVersion = 3
)

func (n NetworkVersion) String() string {
	switch n {
	case NetworkMainnet:
		return "mainnet"
	case NetworkRopsten:
		return "ropsten"
	default:
		return fmt.Sprintf("network(%d)", int(n))
	}
}

// ParseNetworkVersion maps a config value to a NetworkVersion.
func ParseNetworkVersion(input string) (NetworkVersion, error) {
	switch input {
	case "mainnet", "1":
		return NetworkMainnet, nil
	case "ropsten", "3":
		return NetworkRopsten, nil
	default:
		return 0, fmt.Errorf("unknown network: %s", input)
	}
}
