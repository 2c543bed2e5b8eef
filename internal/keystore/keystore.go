// Package keystore loads the opaque per-relayer signing keys of §6.2: one
// file per relayer at <keystore_dir>/<relayer_id>.bin, holding a raw
// secp256k1 private scalar. Actual transaction signing happens inside the
// RPC client this worker dials (out of scope, per §4.3); this package is
// only responsible for loading the key material and deriving the signer's
// ethereum address for the balance gauge of §6.4.
//
// The on-disk-seed-file shape and the "wipe on discard" discipline are
// grounded on core.HDWallet in the teacher (core/wallet.go): keep key
// material in memory only, never log it, and zero buffers once consumed.
package keystore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/multiformats/go-multihash"
	"github.com/sirupsen/logrus"
)

// scalarSize is the byte length of a raw secp256k1 private scalar.
const scalarSize = 32

// Store loads and caches relayer signing keys from a directory.
type Store struct {
	dir string
	log *logrus.Logger

	mu   sync.Mutex
	keys map[string]*btcec.PrivateKey
}

// New returns a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir, log: logrus.StandardLogger(), keys: make(map[string]*btcec.PrivateKey)}
}

// WithLogger overrides the default standard logger.
func (s *Store) WithLogger(log *logrus.Logger) *Store {
	s.log = log
	return s
}

// path returns the on-disk location of relayerID's key file.
func (s *Store) path(relayerID string) string {
	return filepath.Join(s.dir, relayerID+".bin")
}

// load reads and validates relayerID's key file, caching the parsed key.
func (s *Store) load(relayerID string) (*btcec.PrivateKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if k, ok := s.keys[relayerID]; ok {
		return k, nil
	}

	raw, err := os.ReadFile(s.path(relayerID))
	if err != nil {
		return nil, fmt.Errorf("read key file for relayer %q: %w", relayerID, err)
	}
	defer wipe(raw)

	if len(raw) != scalarSize {
		return nil, fmt.Errorf("key file for relayer %q: expected %d raw bytes, got %d", relayerID, scalarSize, len(raw))
	}

	// secp256k1.PrivKeyFromBytes reduces mod N silently; reject out-of-range
	// scalars explicitly so a corrupted key file fails loudly at startup
	// instead of silently signing with the wrong key.
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(raw); overflow {
		return nil, fmt.Errorf("key file for relayer %q: scalar out of range", relayerID)
	}
	if scalar.IsZero() {
		return nil, fmt.Errorf("key file for relayer %q: zero scalar", relayerID)
	}

	priv, _ := btcec.PrivKeyFromBytes(raw)
	s.keys[relayerID] = priv

	// Log a content-addressed fingerprint of the public key, never the key
	// material itself, so an operator can confirm a deployed key file
	// matches the expected signer without it ever touching the log stream.
	pub := priv.PubKey().SerializeCompressed()
	if mh, err := multihash.Sum(pub, multihash.SHA2_256, -1); err == nil {
		s.log.WithFields(logrus.Fields{"relayer": relayerID, "key_fingerprint": mh.B58String()}).Info("loaded relayer signing key")
	}

	return priv, nil
}

// Address derives the ethereum address corresponding to relayerID's key,
// satisfying topology.SignerAddresses.
func (s *Store) Address(relayerID string) (common.Address, error) {
	priv, err := s.load(relayerID)
	if err != nil {
		return common.Address{}, err
	}
	return crypto.PubkeyToAddress(priv.ToECDSA().PublicKey), nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
