package fetcher

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/sirupsen/logrus"

	"github.com/synnergy-chain/bridgeworker/internal/primitives"
)

// depositEventSignature is the canonical EVM event signature the bridge
// contract emits on a deposit; its keccak256 hash is the log topic filter.
const depositEventSignature = "Deposit(uint256,bytes)"

// EthereumRPC is the seam to the collaborator this spec treats as external:
// a JSON-RPC client able to report chain head and raw logs. Decoding a log
// into a primitives.Deposit is this package's responsibility; everything
// below the RPC boundary (ABI layout, contract wrapper) is out of scope.
type EthereumRPC interface {
	BlockNumber(ctx context.Context) (uint64, error)
	FilterLogs(ctx context.Context, blockNum uint64, addresses []common.Address, topic common.Hash) ([]EVMLog, error)
}

// EVMLog is the minimal shape of a decoded EVM log the RPC client hands
// back. The client has already decoded the log data into Amount, Nonce,
// Resource and Payload; this package only turns an EVMLog into a Deposit.
type EVMLog struct {
	Address  common.Address
	Topics   []common.Hash
	TxIndex  uint64
	LogIndex uint64
	Amount   *uint256.Int
	Payload  []byte
	Nonce    uint64
	Resource primitives.ResourceID
}

// EthereumFetcher implements Fetcher for EVM-style source chains: it
// restricts logs to a configured set of contract addresses and a single
// deposit-event topic, and subtracts a finalization gap from the node's
// reported head (§4.2).
type EthereumFetcher struct {
	client          EthereumRPC
	addresses       []common.Address
	topic           common.Hash
	finalizationGap uint64
	log             *logrus.Logger
}

// NewEthereumFetcher builds a Fetcher for an ethereum-family source.
func NewEthereumFetcher(client EthereumRPC, addresses []common.Address, finalizationGap uint64, log *logrus.Logger) *EthereumFetcher {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &EthereumFetcher{
		client:          client,
		addresses:       addresses,
		topic:           crypto.Keccak256Hash([]byte(depositEventSignature)),
		finalizationGap: finalizationGap,
		log:             log,
	}
}

// FinalizedHead subtracts finalizationGap from the node's current head; if
// the head is below the gap, there is no finalized block yet and nil is
// returned (never an error for that case).
func (f *EthereumFetcher) FinalizedHead(ctx context.Context) (*uint64, error) {
	head, err := f.client.BlockNumber(ctx)
	if err != nil {
		return nil, Transient(fmt.Errorf("get block number: %w", err))
	}
	if head < f.finalizationGap {
		return nil, nil
	}
	finalized := head - f.finalizationGap
	return &finalized, nil
}

// Events returns the block's deposit logs in strictly increasing
// (tx_index, log_index) order, which FilterLogs is expected to already
// produce, matching the chain's own log ordering.
func (f *EthereumFetcher) Events(ctx context.Context, blockNum uint64) ([]primitives.Deposit, error) {
	logs, err := f.client.FilterLogs(ctx, blockNum, f.addresses, f.topic)
	if err != nil {
		return nil, Transient(fmt.Errorf("filter logs at block %d: %w", blockNum, err))
	}
	deposits := make([]primitives.Deposit, 0, len(logs))
	for _, l := range logs {
		if !containsTopic(l.Topics, f.topic) {
			continue
		}
		if l.Amount == nil {
			return nil, Decoding(fmt.Errorf("block %d: deposit log missing amount", blockNum))
		}
		tx, logIdx := l.TxIndex, l.LogIndex
		id := primitives.EventID{
			BlockNum: blockNum,
			TxIndex:  &tx,
			LogIndex: &logIdx,
		}
		f.log.WithFields(logrus.Fields{"block": blockNum, "key": id.EVMKeyHex()}).Debug("decoded EVM deposit log")
		deposits = append(deposits, primitives.Deposit{
			EventID:    id,
			Amount:     l.Amount,
			Nonce:      l.Nonce,
			ResourceID: l.Resource,
			Payload:    l.Payload,
		})
	}
	return deposits, nil
}

func containsTopic(topics []common.Hash, want common.Hash) bool {
	for _, t := range topics {
		if t == want {
			return true
		}
	}
	return false
}
