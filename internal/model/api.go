package model

import "github.com/shopspring/decimal"

// APIReserve is one pool reserve as reported by the hosted API.
type APIReserve struct {
	Address string          `json:"dlt_id"`
	Symbol  string          `json:"symbol"`
	Balance decimal.Decimal `json:"balance"`
}

// APIPool is pool metadata plus reserve balances from the hosted API.
type APIPool struct {
	PoolID   string       `json:"pool_dlt_id"`
	Name     string       `json:"name"`
	Reserves []APIReserve `json:"reserves"`
}

// APITokenRate carries a token's quoted USD price.
type APITokenRate struct {
	USD decimal.Decimal `json:"usd"`
}

// APIToken is one token price entry from the hosted API.
type APIToken struct {
	Address  string       `json:"dlt_id"`
	Symbol   string       `json:"symbol"`
	Decimals uint8        `json:"decimals"`
	Rate     APITokenRate `json:"rate"`
}

// APISnapshot is the welcome-data payload: the token and pool price list.
type APISnapshot struct {
	Pools  []APIPool  `json:"pools"`
	Tokens []APIToken `json:"tokens"`
}
