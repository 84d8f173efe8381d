// Package blockchain holds the blockchain backends behind one capability interface.
package blockchain

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/settlepay/settlement_service/internal/domain/entities"
)

// Client is implemented once per blockchain
type Client interface {
	Blockchain() entities.BlockchainType
	CreateAddress(ctx context.Context) (string, error)
	ValidateAddress(ctx context.Context, address string) (bool, error)
	// Transfer issues one backend call per destination and returns one result per destination
	Transfer(ctx context.Context, cmd *entities.TransferCommand) (*entities.TransferResult, error)
	GetBalance(ctx context.Context, address, assetID string) (decimal.Decimal, error)
}

// AssetLookup resolves asset metadata for backends that move tokens
type AssetLookup interface {
	GetAsset(ctx context.Context, id string) (*entities.Asset, error)
}

// AddressOutcome is a node's answer to an address creation call: either an
// address or a failure reason, never both.
type AddressOutcome struct {
	Address string
	Failure string
}

// Created reports whether the node returned an address
func (o AddressOutcome) Created() bool {
	return o.Failure == "" && o.Address != ""
}

// TransferOutcome is a node's answer to a transfer call
type TransferOutcome struct {
	Identity string
	Failure  string
}

// Accepted reports whether the node accepted the transfer
func (o TransferOutcome) Accepted() bool {
	return o.Failure == ""
}

// destinationGroup collects the legs sharing a destination, in first-seen order
type destinationGroup struct {
	destination string
	legs        []entities.TransferAmount
}

func groupByDestination(amounts []entities.TransferAmount) []destinationGroup {
	index := make(map[string]int)
	var groups []destinationGroup
	for _, a := range amounts {
		i, ok := index[a.Destination]
		if !ok {
			i = len(groups)
			index[a.Destination] = i
			groups = append(groups, destinationGroup{destination: a.Destination})
		}
		groups[i].legs = append(groups[i].legs, a)
	}
	return groups
}

// nodeTransactionID names the node transaction for one destination. The same
// operation always yields the same id, so a resent transfer is deduplicated by the node.
func nodeTransactionID(operationID, destination string) string {
	if operationID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(operationID+":"+destination)).String()
}
