package rpcdial

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-chain/bridgeworker/internal/fetcher"
	"github.com/synnergy-chain/bridgeworker/internal/primitives"
	"github.com/synnergy-chain/bridgeworker/internal/relayer"
	"github.com/synnergy-chain/bridgeworker/internal/topology"
)

// ethListenerRPC wraps a live ethclient.Client to satisfy fetcher.EthereumRPC.
type ethListenerRPC struct {
	client *ethclient.Client
}

func (e *ethListenerRPC) BlockNumber(ctx context.Context) (uint64, error) {
	return e.client.BlockNumber(ctx)
}

func (e *ethListenerRPC) FilterLogs(ctx context.Context, blockNum uint64, addresses []common.Address, topic common.Hash) ([]fetcher.EVMLog, error) {
	block := new(big.Int).SetUint64(blockNum)
	raw, err := e.client.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: block,
		ToBlock:   block,
		Addresses: addresses,
		Topics:    [][]common.Hash{{topic}},
	})
	if err != nil {
		return nil, err
	}
	out := make([]fetcher.EVMLog, 0, len(raw))
	for _, l := range raw {
		amount, nonce, resourceID, payload, err := decodeDepositLogData(l.Data)
		if err != nil {
			return nil, err
		}
		out = append(out, fetcher.EVMLog{
			Address:  l.Address,
			Topics:   l.Topics,
			TxIndex:  uint64(l.TxIndex),
			LogIndex: uint64(l.Index),
			Amount:   amount,
			Payload:  payload,
			Nonce:    nonce,
			Resource: resourceID,
		})
	}
	return out, nil
}

// decodeDepositLogData extracts (amount, nonce, resource_id, payload) from
// the bridge contract's Deposit event data. The exact ABI layout is a
// contract-deployment detail outside this spec's scope; the 32/32/32-byte
// prefix (amount, nonce, resource_id) followed by a raw payload tail is the
// layout the teacher's other cross-chain tooling (core/cross_chain*.go)
// assumes for bridge event payloads.
func decodeDepositLogData(data []byte) (*uint256.Int, uint64, primitives.ResourceID, []byte, error) {
	const head = 32 + 32 + 32
	if len(data) < head {
		return nil, 0, primitives.ResourceID{}, nil, fmt.Errorf("deposit log data too short: %d bytes", len(data))
	}
	amount := new(uint256.Int).SetBytes(data[0:32])
	nonce := new(big.Int).SetBytes(data[32:64]).Uint64()
	var resourceID primitives.ResourceID
	copy(resourceID[:], data[64:96])
	payload := append([]byte(nil), data[head:]...)
	return amount, nonce, resourceID, payload, nil
}

// ethRelayerRPC wraps a live ethclient.Client to satisfy relayer.EthereumRPC.
// Submitting the pay-out transaction itself requires a bound, signed
// transactor session (contract ABI + the keystore's private key) that this
// spec explicitly keeps external; SubmitVoteProposal reports that plainly
// instead of pretending to relay.
type ethRelayerRPC struct {
	client *ethclient.Client
	log    *logrus.Logger
}

func (e *ethRelayerRPC) SubmitVoteProposal(ctx context.Context, chainID uint32, nonce uint64, resourceID primitives.ResourceID, payload []byte, amount *uint256.Int) (bool, error) {
	return false, relayer.NewError(relayer.Other, fmt.Errorf("ethereum relay transactor is not wired: chain %d nonce %d needs a signed contract call", chainID, nonce))
}

func (e *ethRelayerRPC) Balance(ctx context.Context, addr common.Address) (*uint256.Int, error) {
	wei, err := e.client.BalanceAt(ctx, addr, nil)
	if err != nil {
		return nil, err
	}
	bal, overflow := uint256.FromBig(wei)
	if overflow {
		return nil, fmt.Errorf("balance overflows uint256")
	}
	return bal, nil
}

func dialEthereum(ctx context.Context, rpcURL string) (*ethclient.Client, error) {
	return ethclient.DialContext(ctx, rpcURL)
}

var _ topology.RPCClients = (*Dialer)(nil)
