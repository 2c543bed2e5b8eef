package topology

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/synnergy-chain/bridgeworker/internal/checkpoint"
	"github.com/synnergy-chain/bridgeworker/internal/fetcher"
	"github.com/synnergy-chain/bridgeworker/internal/listener"
	"github.com/synnergy-chain/bridgeworker/internal/metrics"
	"github.com/synnergy-chain/bridgeworker/internal/relayer"
	"github.com/synnergy-chain/bridgeworker/internal/router"
)

// SignerAddresses resolves the on-chain address a keystore-held key signs
// with, so an ethereum-family relayer can report its own balance gauge
// (§6.4). The keystore package is the only intended implementation.
type SignerAddresses interface {
	Address(relayerID string) (common.Address, error)
}

// RPCClients is the factory seam for the collaborators this spec treats as
// external: constructing a live RPC client from a parsed, type-specific
// config subtree. Actual dialing/transport is out of this package's scope.
type RPCClients interface {
	DialEthereumListener(ctx context.Context, cfg EthereumListenerConfig) (fetcher.EthereumRPC, error)
	DialSubstrateListener(ctx context.Context, cfg SubstrateListenerConfig) (fetcher.SubstrateRPC, error)
	DialEthereumRelayer(ctx context.Context, cfg EthereumRelayerConfig) (relayer.EthereumRPC, error)
	DialSubstrateRelayer(ctx context.Context, cfg SubstrateRelayerConfig) (relayer.SubstrateRPC, error)
}

// BuildOptions carries the collaborators and per-run overrides needed to
// turn a validated Document into runnable listener.Contexts.
type BuildOptions struct {
	DataDir             string
	Clients             RPCClients
	Signers             SignerAddresses
	Metrics             *metrics.Registry
	Log                 *logrus.Logger
	StartBlockOverrides map[string]uint64 // listener id -> operator-supplied start block (§4.5 CLI override)
}

// Build validates doc and, for every listener, constructs a fully wired
// listener.Context: its fetcher, its route to the relayer(s) it feeds, and
// its durable checkpoint store. Relayer clients are dialed once per relayer
// id and shared across every listener that references it (§4.4, a relayer
// may serve more than one source).
func Build(ctx context.Context, doc *Document, opts BuildOptions) ([]listener.Context, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	if err := validateStartBlockOverrides(doc, opts.StartBlockOverrides); err != nil {
		return nil, err
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	relayerSpecByID := make(map[string]RelayerSpec, len(doc.Relayers))
	for _, r := range doc.Relayers {
		relayerSpecByID[r.ID] = r
	}

	built := make(map[string]relayer.Relayer, len(doc.Relayers))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, spec := range doc.Relayers {
		spec := spec
		g.Go(func() error {
			rl, err := buildRelayer(gctx, spec, opts, log)
			if err != nil {
				return fmt.Errorf("relayer %q: %w", spec.ID, err)
			}
			mu.Lock()
			built[spec.ID] = rl
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	contexts := make([]listener.Context, 0, len(doc.Listeners))
	for _, spec := range doc.Listeners {
		lc, err := buildListenerContext(ctx, spec, relayerSpecByID, built, opts, log)
		if err != nil {
			return nil, fmt.Errorf("listener %q: %w", spec.ID, err)
		}
		contexts = append(contexts, lc)
	}
	return contexts, nil
}

// validateStartBlockOverrides rejects a CLI-supplied --start-block that
// names a listener id absent from the document, per the eager-validation
// behavior the original CLI applies (rather than silently ignoring an
// override that can never take effect).
func validateStartBlockOverrides(doc *Document, overrides map[string]uint64) error {
	if len(overrides) == 0 {
		return nil
	}
	known := make(map[string]bool, len(doc.Listeners))
	for _, l := range doc.Listeners {
		known[l.ID] = true
	}
	for id := range overrides {
		if !known[id] {
			return fmt.Errorf("--start-block names unknown listener id %q", id)
		}
	}
	return nil
}

func buildRelayer(ctx context.Context, spec RelayerSpec, opts BuildOptions, log *logrus.Logger) (relayer.Relayer, error) {
	switch spec.RelayerType {
	case EthereumFamily:
		var cfg EthereumRelayerConfig
		if err := json.Unmarshal(spec.Config, &cfg); err != nil {
			return nil, fmt.Errorf("decode ethereum relayer config: %w", err)
		}
		client, err := opts.Clients.DialEthereumRelayer(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dial ethereum relayer: %w", err)
		}
		var addr common.Address
		if opts.Signers != nil {
			addr, err = opts.Signers.Address(spec.ID)
			if err != nil {
				return nil, fmt.Errorf("resolve signer address: %w", err)
			}
		}
		var onBalance func(common.Address, *uint256.Int)
		if opts.Metrics != nil {
			onBalance = func(a common.Address, bal *uint256.Int) {
				opts.Metrics.SetRelayerBalance(a.Hex(), bal)
			}
		}
		return relayer.NewEthereumRelayer(client, addr, spec.DestinationID, log, onBalance), nil
	case SubstrateFamily:
		var cfg SubstrateRelayerConfig
		if err := json.Unmarshal(spec.Config, &cfg); err != nil {
			return nil, fmt.Errorf("decode substrate relayer config: %w", err)
		}
		client, err := opts.Clients.DialSubstrateRelayer(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("dial substrate relayer: %w", err)
		}
		return relayer.NewSubstrateRelayer(client, spec.DestinationID, log), nil
	default:
		return nil, fmt.Errorf("unknown relayer_type %q", spec.RelayerType)
	}
}

func buildListenerContext(ctx context.Context, spec ListenerSpec, relayerSpecByID map[string]RelayerSpec, built map[string]relayer.Relayer, opts BuildOptions, log *logrus.Logger) (listener.Context, error) {
	var f fetcher.Fetcher
	switch spec.ListenerType {
	case EthereumFamily:
		var cfg EthereumListenerConfig
		if err := json.Unmarshal(spec.Config, &cfg); err != nil {
			return listener.Context{}, fmt.Errorf("decode ethereum listener config: %w", err)
		}
		client, err := opts.Clients.DialEthereumListener(ctx, cfg)
		if err != nil {
			return listener.Context{}, fmt.Errorf("dial ethereum listener: %w", err)
		}
		f = fetcher.NewEthereumFetcher(client, []common.Address{common.HexToAddress(cfg.BridgeContractAddress)}, cfg.FinalizationGap, log)
	case SubstrateFamily:
		var cfg SubstrateListenerConfig
		if err := json.Unmarshal(spec.Config, &cfg); err != nil {
			return listener.Context{}, fmt.Errorf("decode substrate listener config: %w", err)
		}
		client, err := opts.Clients.DialSubstrateListener(ctx, cfg)
		if err != nil {
			return listener.Context{}, fmt.Errorf("dial substrate listener: %w", err)
		}
		f = fetcher.NewSubstrateFetcher(client, log)
	default:
		return listener.Context{}, fmt.Errorf("unknown listener_type %q", spec.ListenerType)
	}

	route, err := buildRoute(spec, relayerSpecByID, built)
	if err != nil {
		return listener.Context{}, err
	}

	startBlock := opts.StartBlockOverrides[spec.ID]
	return listener.Context{
		ID:         spec.ID,
		StartBlock: startBlock,
		ChainID:    spec.ChainID,
		Route:      route,
		Fetcher:    f,
		Checkpoint: checkpoint.NewFileStore(opts.DataDir, spec.ID),
	}, nil
}

// buildRoute constructs a single-relayer route when the listener names
// exactly one relayer, and a destination_key-keyed multi route otherwise
// (§4.4).
func buildRoute(spec ListenerSpec, relayerSpecByID map[string]RelayerSpec, built map[string]relayer.Relayer) (*router.Route, error) {
	if len(spec.RelayerIDs) == 1 {
		rl, ok := built[spec.RelayerIDs[0]]
		if !ok {
			return nil, fmt.Errorf("relayer %q was not built", spec.RelayerIDs[0])
		}
		return router.NewSingleRoute(rl), nil
	}
	byKey := make(map[string]relayer.Relayer, len(spec.RelayerIDs))
	for _, rid := range spec.RelayerIDs {
		rl, ok := built[rid]
		if !ok {
			return nil, fmt.Errorf("relayer %q was not built", rid)
		}
		rspec := relayerSpecByID[rid]
		byKey[rspec.DestinationID] = rl
	}
	return router.NewMultiRoute(byKey), nil
}
