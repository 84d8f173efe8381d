package blockchain

import "github.com/shopspring/decimal"

// Payloads shared by the node services

type nodeError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type sourceAmount struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
}

type balanceResponse struct {
	Amount decimal.Decimal `json:"amount"`
}
