package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/forma-dev/bridge-core/backend"
	"github.com/forma-dev/bridge-core/catalog"
)

// evmTxPayload is the JSON shape the bridge SDK hands over for an EVM
// transaction.
type evmTxPayload struct {
	To       string `json:"to"`
	Value    string `json:"value,omitempty"` // base units, decimal string
	Data     string `json:"data,omitempty"`  // 0x-prefixed calldata
	GasLimit uint64 `json:"gasLimit,omitempty"`
}

// EVMSignerConfig configures one signing connection per EVM chain.
type EVMSignerConfig struct {
	PrivateKeyHex string
	// RPCURLs maps internal chain names to JSON-RPC endpoints.
	RPCURLs map[string]string
	// PollInterval between receipt lookups. Zero means 2 seconds.
	PollInterval time.Duration
}

// EVMSigner signs and submits EVM transactions with a configured key. It
// implements backend.TxSender and Provider for the EVM family.
type EVMSigner struct {
	key      *ecdsa.PrivateKey
	address  common.Address
	rpcURLs  map[string]string
	interval time.Duration

	mu      sync.Mutex
	clients map[string]*ethclient.Client
	active  int64
}

// NewEVMSigner parses the key and prepares lazily dialed per-chain clients.
func NewEVMSigner(cfg EVMSignerConfig) (*EVMSigner, error) {
	hexKey := strings.TrimPrefix(cfg.PrivateKeyHex, "0x")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &EVMSigner{
		key:      key,
		address:  crypto.PubkeyToAddress(key.PublicKey),
		rpcURLs:  cfg.RPCURLs,
		interval: interval,
		clients:  make(map[string]*ethclient.Client),
	}, nil
}

// Account implements Provider for the EVM family.
func (s *EVMSigner) Account(family catalog.Family) (AccountInfo, error) {
	if family != catalog.FamilyEVM {
		return AccountInfo{}, fmt.Errorf("no account for family %q", family)
	}
	return AccountInfo{Address: s.address.Hex(), Family: catalog.FamilyEVM, Ready: true}, nil
}

// ActiveChainID reports the chain the signer last switched to. Zero means no
// chain has been selected yet.
func (s *EVMSigner) ActiveChainID(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active, nil
}

// SwitchChain marks the given chain active. A server-side key signs for any
// chain, so this only records intent; the per-transaction client still dials
// the chain named on the transaction.
func (s *EVMSigner) SwitchChain(ctx context.Context, chainID int64) error {
	s.mu.Lock()
	s.active = chainID
	s.mu.Unlock()
	return nil
}

// Send signs and submits one transaction on the chain it names.
func (s *EVMSigner) Send(ctx context.Context, tx backend.Tx) (backend.PendingTx, error) {
	var payload evmTxPayload
	if err := json.Unmarshal(tx.Data, &payload); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", tx.Category, err)
	}
	if !common.IsHexAddress(payload.To) {
		return nil, fmt.Errorf("invalid recipient contract %q", payload.To)
	}

	cli, err := s.client(ctx, tx.Chain)
	if err != nil {
		return nil, err
	}
	chainID, err := cli.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch chain id: %w", err)
	}
	nonce, err := cli.PendingNonceAt(ctx, s.address)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}
	gasPrice, err := cli.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("suggest gas price: %w", err)
	}

	value := big.NewInt(0)
	if payload.Value != "" {
		parsed, ok := new(big.Int).SetString(payload.Value, 10)
		if !ok {
			return nil, fmt.Errorf("invalid value %q", payload.Value)
		}
		value = parsed
	}
	var data []byte
	if payload.Data != "" {
		data, err = hexutil.Decode(payload.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid calldata: %w", err)
		}
	}
	gasLimit := payload.GasLimit
	if gasLimit == 0 {
		gasLimit = 300_000
	}

	to := common.HexToAddress(payload.To)
	unsigned := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(unsigned, types.LatestSignerForChainID(chainID), s.key)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}
	if err := cli.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send transaction: %w", err)
	}

	return &evmPendingTx{client: cli, tx: signed, interval: s.interval}, nil
}

func (s *EVMSigner) client(ctx context.Context, chain string) (*ethclient.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cli, ok := s.clients[chain]; ok {
		return cli, nil
	}
	url, ok := s.rpcURLs[chain]
	if !ok {
		return nil, fmt.Errorf("no rpc endpoint configured for chain %s", chain)
	}
	cli, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dial rpc for %s: %w", chain, err)
	}
	s.clients[chain] = cli
	return cli, nil
}

type evmPendingTx struct {
	client   *ethclient.Client
	tx       *types.Transaction
	interval time.Duration
}

func (p *evmPendingTx) Hash() string {
	return p.tx.Hash().Hex()
}

// Confirm polls until the transaction is mined or the context is cancelled.
func (p *evmPendingTx) Confirm(ctx context.Context) (*backend.Receipt, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		receipt, err := p.client.TransactionReceipt(ctx, p.tx.Hash())
		if receipt != nil {
			return convertReceipt(receipt), nil
		}
		if err != nil && err.Error() != "not found" {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func convertReceipt(r *types.Receipt) *backend.Receipt {
	out := &backend.Receipt{
		TxHash:      r.TxHash.Hex(),
		BlockNumber: r.BlockNumber.Uint64(),
		Success:     r.Status == types.ReceiptStatusSuccessful,
	}
	for _, log := range r.Logs {
		if encoded, err := log.MarshalJSON(); err == nil {
			out.Logs = append(out.Logs, encoded)
		}
	}
	return out
}
