// Package registry downloads the published warp-route registry and turns its
// token declarations into catalog records. The registry supplements the
// tokens declared in local config.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/forma-dev/bridge-core/catalog"
	"github.com/hashicorp/go-getter"
)

// DefaultSource is the published registry location.
const DefaultSource = "github.com/forma-dev/warp-route-registry//routes"

// Download fetches the registry directory into dst.
func Download(src, dst string) error {
	if src == "" {
		src = DefaultSource
	}
	deadline := time.Now().Add(120 * time.Second)
	ctx, cancel := context.WithDeadline(context.Background(), deadline)
	defer cancel()

	opts := getter.Client{
		Ctx:  ctx,
		Src:  src,
		Dst:  dst,
		Mode: getter.ClientModeDir,
		Detectors: []getter.Detector{
			&getter.GitHubDetector{},
		},
		Getters: map[string]getter.Getter{
			"git": &getter.GitGetter{},
		},
	}
	if err := opts.Get(); err != nil {
		return fmt.Errorf("failed to download route registry: %w", err)
	}
	return nil
}

// routeFile is one registry JSON file: a token and its deployed connections.
type routeFile struct {
	Chain          string `json:"chain"`
	AddressOrDenom string `json:"addressOrDenom"`
	Symbol         string `json:"symbol"`
	Name           string `json:"name"`
	Decimals       int32  `json:"decimals"`
	LogoURI        string `json:"logoURI"`
	Connections    []struct {
		Chain          string `json:"chain"`
		AddressOrDenom string `json:"addressOrDenom"`
	} `json:"connections"`
}

// Process reads every *.json route file under dst and converts them to
// catalog token records. Unknown chains are filtered by the caller; the
// registry itself is trusted for shape only.
func Process(dst string) ([]catalog.TokenRecord, error) {
	paths, err := filepath.Glob(filepath.Join(dst, "*.json"))
	if err != nil {
		return nil, err
	}

	tokens := make([]catalog.TokenRecord, 0, len(paths))
	for _, path := range paths {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read route file %s: %w", path, err)
		}
		var route routeFile
		if err := json.Unmarshal(body, &route); err != nil {
			return nil, fmt.Errorf("failed to unmarshal route file %s: %w", path, err)
		}

		rec := catalog.TokenRecord{
			Chain:          catalog.Normalize(route.Chain),
			AddressOrDenom: route.AddressOrDenom,
			Symbol:         route.Symbol,
			Name:           route.Name,
			Decimals:       route.Decimals,
			LogoURI:        route.LogoURI,
		}
		for _, conn := range route.Connections {
			rec.Connections = append(rec.Connections, catalog.Connection{
				Chain:          catalog.Normalize(conn.Chain),
				AddressOrDenom: conn.AddressOrDenom,
			})
		}
		tokens = append(tokens, rec)
	}
	return tokens, nil
}
