package catalog

import "context"

// Family is the protocol family of a chain, which decides how addresses are
// validated and which transaction sender can operate on it.
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilyCosmos Family = "cosmos"
)

// ChainRecord identifies one blockchain network reachable by either backend.
// The Name field is the internal normalized name and is the sole join key
// between the static bridge catalog and the aggregator snapshot.
type ChainRecord struct {
	Name           string
	DisplayName    string
	ChainID        string // chain-native identifier ("celestia", "984122", ...)
	EVMChainID     int64  // nonzero for EVM-family chains
	NativeSymbol   string
	NativeDecimals int32
	Family         Family
	Bech32Prefix   string // cosmos-family only

	KnownToBridge     bool
	KnownToAggregator bool
	DepositEnabled    bool
	Disabled          bool
}

// Connection names the counterpart token on another chain. Only the bridge
// backend declares connections; for it, a connection is the only valid path
// to a destination token.
type Connection struct {
	Chain          string
	AddressOrDenom string
}

// TokenRecord identifies a token on a given chain.
type TokenRecord struct {
	Chain          string
	AddressOrDenom string
	Symbol         string
	Name           string
	Decimals       int32
	LogoURI        string
	Featured       bool
	Connections    []Connection
}

// AggregatorChain is one chain as reported by the aggregator's remote API,
// before normalization into the snapshot.
type AggregatorChain struct {
	ID             int64
	Name           string // raw aggregator spelling
	DisplayName    string
	NativeSymbol   string
	NativeDecimals int32
	Disabled       bool
	DepositEnabled bool
}

// AggregatorCurrency is one currency on an aggregator chain.
type AggregatorCurrency struct {
	Address  string
	Symbol   string
	Name     string
	Decimals int32
	LogoURI  string
	Featured bool
}

// AggregatorSource lists the aggregator's chains and per-chain currencies.
// Implemented by relayquery.Client; mocked in tests.
type AggregatorSource interface {
	Chains(ctx context.Context) ([]AggregatorChain, error)
	Currencies(ctx context.Context, chainID int64) ([]AggregatorCurrency, error)
}
