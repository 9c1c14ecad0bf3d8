package models

import "github.com/shopspring/decimal"

func init() {
	// Money is rendered as JSON numbers rather than quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Order{},
		&OrderResponse{},
		&Chat{},
		&Message{},
		&WalletTransaction{},
		&Freelancer{},
		&Review{},
	}
}
