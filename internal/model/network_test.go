package model

import "testing"

func TestParseNetworkVersion(t *testing.T) {
	cases := []struct {
		input string
		want  NetworkVersion
	}{
		{"mainnet", NetworkMainnet},
		{"1", NetworkMainnet},
		{"ropsten", NetworkRopsten},
		{"3", NetworkRopsten},
	}
	for _, tc := range cases {
		got, err := ParseNetworkVersion(tc.input)
		if err != nil {
			t.Fatalf("ParseNetworkVersion(%q): %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseNetworkVersion(%q): got %v, want %v", tc.input, got, tc.want)
		}
	}

	if _, err := ParseNetworkVersion("goerli"); err == nil {
		t.Fatalf("expected error for unknown network")
	}
}

func TestNetworkVersionString(t *testing.T) {
	if NetworkMainnet.String() != "mainnet" {
		t.Fatalf("mainnet: got %q", NetworkMainnet.String())
	}
	if NetworkRopsten.String() != "ropsten" {
		t.Fatalf("ropsten: got %q", NetworkRopsten.String())
	}
	if NetworkVersion(42).String() != "network(42)" {
		t.Fatalf("unknown: got %q", NetworkVersion(42).String())
	}
}

func TestContractAddressSetEqual(t *testing.T) {
	a := ContractAddressSet{"LiquidityProtection": "0xA", "StakingRewards": "0xB"}
	b := ContractAddressSet{"StakingRewards": "0xB", "LiquidityProtection": "0xA"}
	if !a.Equal(b) {
		t.Fatalf("identical sets compared unequal")
	}

	c := ContractAddressSet{"LiquidityProtection": "0xA", "StakingRewards": "0xC"}
	if a.Equal(c) {
		t.Fatalf("different addresses compared equal")
	}

	d := ContractAddressSet{"LiquidityProtection": "0xA"}
	if a.Equal(d) {
		t.Fatalf("different sizes compared equal")
	}
}
