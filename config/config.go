// Package config loads the service configuration and converts the chain and
// token declarations into the catalog's record types.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/forma-dev/bridge-core/catalog"
	"github.com/pelletier/go-toml/v2"
)

// Config is the full service configuration.
type Config struct {
	Server     ServerConfig     `toml:"server" json:"server"`
	HomeChains []string         `toml:"home_chains" json:"home_chains"`
	Bridge     BridgeConfig     `toml:"bridge" json:"bridge"`
	Aggregator AggregatorConfig `toml:"aggregator" json:"aggregator"`
	Registry   RegistryConfig   `toml:"registry" json:"registry"`
	Wallet     WalletConfig     `toml:"wallet" json:"wallet"`
	Chains     []ChainConfig    `toml:"chains" json:"chains"`
	Tokens     []TokenConfig    `toml:"tokens" json:"tokens"`
}

// BridgeConfig configures the warp route API client.
type BridgeConfig struct {
	APIURL       string   `toml:"api_url" json:"api_url"`
	ExplorerURL  string   `toml:"explorer_url" json:"explorer_url"`
	PollInterval Duration `toml:"poll_interval" json:"poll_interval"`
}

// RegistryConfig configures the optional warp-route registry download.
type RegistryConfig struct {
	Source string `toml:"source" json:"source"`
	Dir    string `toml:"dir" json:"dir"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr     string   `toml:"listen_addr" json:"listen_addr"`
	AllowedOrigins []string `toml:"allowed_origins" json:"allowed_origins"`
	RateLimit      int      `toml:"rate_limit" json:"rate_limit"`
}

// AggregatorConfig configures the aggregator API client.
type AggregatorConfig struct {
	PrimaryURL      string   `toml:"primary_url" json:"primary_url"`
	BackupURLs      []string `toml:"backup_urls" json:"backup_urls"`
	RefreshInterval Duration `toml:"refresh_interval" json:"refresh_interval"`
	PollInterval    Duration `toml:"poll_interval" json:"poll_interval"`
}

// WalletConfig configures the server-side signer.
type WalletConfig struct {
	// PrivateKeyEnv names the environment variable holding the signing key.
	// The key itself never appears in config files.
	PrivateKeyEnv string            `toml:"private_key_env" json:"private_key_env"`
	RPCURLs       map[string]string `toml:"rpc_urls" json:"rpc_urls"`
}

// ChainConfig declares one bridge chain.
type ChainConfig struct {
	Name           string `toml:"name" json:"name"`
	DisplayName    string `toml:"display_name" json:"display_name"`
	ChainID        string `toml:"chain_id" json:"chain_id"`
	EVMChainID     int64  `toml:"evm_chain_id" json:"evm_chain_id"`
	NativeSymbol   string `toml:"native_symbol" json:"native_symbol"`
	NativeDecimals int32  `toml:"native_decimals" json:"native_decimals"`
	Family         string `toml:"family" json:"family"`
	Bech32Prefix   string `toml:"bech32_prefix" json:"bech32_prefix"`
	Disabled       bool   `toml:"disabled" json:"disabled"`
}

// TokenConfig declares one bridge token with its route connections.
type TokenConfig struct {
	Chain          string             `toml:"chain" json:"chain"`
	AddressOrDenom string             `toml:"address_or_denom" json:"address_or_denom"`
	Symbol         string             `toml:"symbol" json:"symbol"`
	Name           string             `toml:"name" json:"name"`
	Decimals       int32              `toml:"decimals" json:"decimals"`
	LogoURI        string             `toml:"logo_uri" json:"logo_uri"`
	Featured       bool               `toml:"featured" json:"featured"`
	Connections    []ConnectionConfig `toml:"connections" json:"connections"`
}

// ConnectionConfig is a token's counterpart on another chain.
type ConnectionConfig struct {
	Chain          string `toml:"chain" json:"chain"`
	AddressOrDenom string `toml:"address_or_denom" json:"address_or_denom"`
}

// Duration unmarshals "30s" style strings from TOML and JSON.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Or returns the duration, or fallback when unset.
func (d Duration) Or(fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return time.Duration(d)
}

// Load reads a TOML or JSON config file and validates it.
func Load(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if strings.HasSuffix(filePath, ".json") {
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	} else {
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML config: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks internal consistency.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = ":8080"
	}
	if len(c.HomeChains) == 0 {
		return fmt.Errorf("at least one home chain is required")
	}
	if c.Aggregator.PrimaryURL == "" {
		return fmt.Errorf("aggregator primary_url is required")
	}
	if c.Bridge.APIURL == "" {
		return fmt.Errorf("bridge api_url is required")
	}

	seen := make(map[string]bool, len(c.Chains))
	for _, chain := range c.Chains {
		if chain.Name == "" {
			return fmt.Errorf("chain with empty name")
		}
		name := catalog.Normalize(chain.Name)
		if seen[name] {
			return fmt.Errorf("duplicate chain %s", name)
		}
		seen[name] = true
		switch catalog.Family(chain.Family) {
		case catalog.FamilyEVM, catalog.FamilyCosmos:
		default:
			return fmt.Errorf("chain %s has unknown family %q", chain.Name, chain.Family)
		}
	}

	for _, token := range c.Tokens {
		if !seen[catalog.Normalize(token.Chain)] {
			return fmt.Errorf("token %s references unknown chain %s", token.Symbol, token.Chain)
		}
		for _, conn := range token.Connections {
			if !seen[catalog.Normalize(conn.Chain)] {
				return fmt.Errorf("token %s has connection to unknown chain %s", token.Symbol, conn.Chain)
			}
		}
	}
	return nil
}

// CatalogChains converts the chain declarations to catalog records.
func (c *Config) CatalogChains() []catalog.ChainRecord {
	out := make([]catalog.ChainRecord, len(c.Chains))
	for i, chain := range c.Chains {
		out[i] = catalog.ChainRecord{
			Name:           catalog.Normalize(chain.Name),
			DisplayName:    chain.DisplayName,
			ChainID:        chain.ChainID,
			EVMChainID:     chain.EVMChainID,
			NativeSymbol:   chain.NativeSymbol,
			NativeDecimals: chain.NativeDecimals,
			Family:         catalog.Family(chain.Family),
			Bech32Prefix:   chain.Bech32Prefix,
			KnownToBridge:  true,
			Disabled:       chain.Disabled,
		}
	}
	return out
}

// CatalogTokens converts the token declarations to catalog records.
func (c *Config) CatalogTokens() []catalog.TokenRecord {
	out := make([]catalog.TokenRecord, len(c.Tokens))
	for i, token := range c.Tokens {
		rec := catalog.TokenRecord{
			Chain:          catalog.Normalize(token.Chain),
			AddressOrDenom: token.AddressOrDenom,
			Symbol:         token.Symbol,
			Name:           token.Name,
			Decimals:       token.Decimals,
			LogoURI:        token.LogoURI,
			Featured:       token.Featured,
		}
		for _, conn := range token.Connections {
			rec.Connections = append(rec.Connections, catalog.Connection{
				Chain:          catalog.Normalize(conn.Chain),
				AddressOrDenom: conn.AddressOrDenom,
			})
		}
		out[i] = rec
	}
	return out
}
