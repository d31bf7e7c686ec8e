// Package wallet abstracts the signing account. The server-side provider
// signs with a configured key; address helpers validate and convert the
// formats the two chain families use.
package wallet

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/forma-dev/bridge-core/catalog"
)

// AccountInfo describes the active account for one protocol family.
type AccountInfo struct {
	Address string
	Family  catalog.Family
	Ready   bool
}

// Provider exposes the wallet operations the transfer flow needs.
type Provider interface {
	// Account returns the active account for the family, if connected.
	Account(family catalog.Family) (AccountInfo, error)

	// ActiveChainID returns the EVM chain id the wallet currently signs for.
	ActiveChainID(ctx context.Context) (int64, error)

	// SwitchChain asks the wallet to move to the given EVM chain.
	SwitchChain(ctx context.Context, chainID int64) error
}

// ValidateAddress checks an address against the chain's family rules. Cosmos
// chains additionally require the chain's bech32 prefix when one is known.
func ValidateAddress(chain catalog.ChainRecord, address string) error {
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("address is empty")
	}
	switch chain.Family {
	case catalog.FamilyEVM:
		if !common.IsHexAddress(address) {
			return fmt.Errorf("%s is not a valid hex address", address)
		}
		return nil
	case catalog.FamilyCosmos:
		prefix, err := Bech32Prefix(address)
		if err != nil {
			return err
		}
		if chain.Bech32Prefix != "" && prefix != chain.Bech32Prefix {
			return fmt.Errorf("address prefix %s does not match chain prefix %s", prefix, chain.Bech32Prefix)
		}
		return nil
	default:
		return fmt.Errorf("unknown chain family %q", chain.Family)
	}
}
