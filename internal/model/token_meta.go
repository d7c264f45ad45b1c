package model

// TokenMeta captures ERC20 metadata served by the hosted token list.
type TokenMeta struct {
	Address  string `json:"contract"`
	Decimals uint8  `json:"precision"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
}
