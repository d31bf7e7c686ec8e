package catalog

import (
	"strings"
	"time"
)

// Snapshot is an immutable view of the aggregator catalog. A refresh builds a
// complete new Snapshot off to the side and publishes it in one assignment;
// holders of an older snapshot keep reading consistent (possibly stale) data.
type Snapshot struct {
	chains     map[string]ChainRecord   // internal name -> record
	currencies map[string][]TokenRecord // internal name -> currencies
	fetchedAt  time.Time
}

// EmptySnapshot returns a snapshot that knows no chains. Used before the
// first successful refresh so readers never see a nil snapshot.
func EmptySnapshot() *Snapshot {
	return &Snapshot{
		chains:     map[string]ChainRecord{},
		currencies: map[string][]TokenRecord{},
	}
}

// Knows reports whether the aggregator lists the chain. Disabled chains are
// carried in the snapshot but are not routable.
func (s *Snapshot) Knows(internalName string) bool {
	if s == nil {
		return false
	}
	rec, ok := s.chains[internalName]
	return ok && !rec.Disabled
}

// DepositEnabled reports whether the aggregator accepts deposits on the chain.
func (s *Snapshot) DepositEnabled(internalName string) bool {
	if s == nil {
		return false
	}
	rec, ok := s.chains[internalName]
	return ok && !rec.Disabled && rec.DepositEnabled
}

// Chain returns the aggregator's record for a chain.
func (s *Snapshot) Chain(internalName string) (ChainRecord, bool) {
	if s == nil {
		return ChainRecord{}, false
	}
	rec, ok := s.chains[internalName]
	return rec, ok
}

// ChainID returns the aggregator's numeric chain id for a chain.
func (s *Snapshot) ChainID(internalName string) (int64, bool) {
	rec, ok := s.Chain(internalName)
	if !ok {
		return 0, false
	}
	return rec.EVMChainID, true
}

// Currency resolves a currency on a chain by symbol or address,
// case-insensitively.
func (s *Snapshot) Currency(internalName, symbolOrAddress string) (TokenRecord, bool) {
	if s == nil {
		return TokenRecord{}, false
	}
	want := strings.ToLower(symbolOrAddress)
	for _, cur := range s.currencies[internalName] {
		if strings.ToLower(cur.Symbol) == want || strings.ToLower(cur.AddressOrDenom) == want {
			return cur, true
		}
	}
	return TokenRecord{}, false
}

// Currencies returns every currency the aggregator lists on a chain.
func (s *Snapshot) Currencies(internalName string) []TokenRecord {
	if s == nil {
		return nil
	}
	return s.currencies[internalName]
}

// FeaturedCurrencies returns the currencies the aggregator flags as featured
// on a chain, preserving the aggregator's ordering.
func (s *Snapshot) FeaturedCurrencies(internalName string) []TokenRecord {
	var out []TokenRecord
	for _, cur := range s.Currencies(internalName) {
		if cur.Featured {
			out = append(out, cur)
		}
	}
	return out
}

// Chains returns every chain in the snapshot.
func (s *Snapshot) Chains() []ChainRecord {
	if s == nil {
		return nil
	}
	out := make([]ChainRecord, 0, len(s.chains))
	for _, rec := range s.chains {
		out = append(out, rec)
	}
	return out
}

// FetchedAt reports when this snapshot was built. Zero for EmptySnapshot.
func (s *Snapshot) FetchedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	return s.fetchedAt
}
