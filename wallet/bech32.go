package wallet

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// Bech32Prefix decodes an address and returns its human-readable prefix.
func Bech32Prefix(address string) (string, error) {
	prefix, _, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("failed to decode address: %w", err)
	}
	return prefix, nil
}

// ConvertBech32Address re-encodes a bech32 address under a new prefix. The
// payload is unchanged, so the result addresses the same key on the target
// chain.
func ConvertBech32Address(address, targetPrefix string) (string, error) {
	_, data, err := bech32.Decode(address)
	if err != nil {
		return "", fmt.Errorf("failed to decode address: %w", err)
	}
	converted, err := bech32.Encode(targetPrefix, data)
	if err != nil {
		return "", fmt.Errorf("failed to encode address: %w", err)
	}
	return converted, nil
}
