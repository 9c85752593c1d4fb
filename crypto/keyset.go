package crypto

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/nutmint/gonuts/cashu"
)

// MAX_ORDER bounds the denominations a keyset derives keys for: every power
// of two 2^0 .. 2^(MAX_ORDER-1).
const MAX_ORDER = 64

// Keyset is a mint's deterministic key family for a single
// (master_secret, derivation_path) pair: one keypair per denomination, plus
// a fingerprint of the public portion. It is derived once at mint startup
// and never mutated afterwards.
type Keyset struct {
	Id                string
	Unit              string
	Active            bool
	DerivationPathIdx uint32
	Keys              map[uint64]KeyPair
	InputFeePpk       uint
}

type KeyPair struct {
	PrivateKey *secp256k1.PrivateKey
	PublicKey  *secp256k1.PublicKey
}

// deriveChildSeed computes seed = SHA-256(masterSecret || derivationPath),
// the root all per-denomination private keys are derived from.
func deriveChildSeed(masterSecret, derivationPath string) [32]byte {
	return sha256.Sum256(append([]byte(masterSecret), []byte(derivationPath)...))
}

// deriveDenominationKey computes the private key for a single denomination:
// priv_d = scalar_from_bytes(SHA-256(seed || decimal_ascii(d))) mod n,
// rejecting zero. On the vanishingly rare zero-scalar case, the hash input
// is re-hashed (appending the digest to itself) until a nonzero scalar
// results, mirroring HashToCurve's retry loop.
func deriveDenominationKey(seed [32]byte, denom uint64) *secp256k1.PrivateKey {
	input := append(seed[:], []byte(strconv.FormatUint(denom, 10))...)

	for {
		digest := sha256.Sum256(input)

		var scalar secp256k1.ModNScalar
		overflow := scalar.SetByteSlice(digest[:])
		if !overflow && !scalar.IsZero() {
			return secp256k1.NewPrivateKey(&scalar)
		}
		input = digest[:]
	}
}

// GenerateKeyset deterministically derives the full denomination→keypair
// mapping and keyset_id for (masterSecret, derivationPath). Two mints given
// the same inputs produce byte-identical output.
func GenerateKeyset(masterSecret, derivationPath string) (*Keyset, error) {
	seed := deriveChildSeed(masterSecret, derivationPath)

	keys := make(map[uint64]KeyPair, MAX_ORDER)
	pubkeys := make(PublicKeys, MAX_ORDER)

	for i := 0; i < MAX_ORDER; i++ {
		denom := uint64(1) << uint(i)

		privKey := deriveDenominationKey(seed, denom)
		pubKey := privKey.PubKey()

		keys[denom] = KeyPair{PrivateKey: privKey, PublicKey: pubKey}
		pubkeys[denom] = pubKey
	}

	return &Keyset{
		Id:     DeriveKeysetId(pubkeys),
		Unit:   cashu.Sat.String(),
		Active: true,
		Keys:   keys,
	}, nil
}

type PublicKeys map[uint64]*secp256k1.PublicKey

// Custom marshaller to display sorted keys
func (pks PublicKeys) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	amounts := make([]uint64, len(pks))
	i := 0
	for k := range pks {
		amounts[i] = k
		i++
	}
	slices.Sort(amounts)

	for j, amount := range amounts {
		if j != 0 {
			buf.WriteByte(',')
		}

		// marshal key
		key, err := json.Marshal(amount)
		if err != nil {
			return nil, err
		}
		buf.WriteByte('"')
		buf.Write(key)
		buf.WriteByte('"')
		buf.WriteByte(':')
		// marshal value
		pubkey := hex.EncodeToString(pks[amount].SerializeCompressed())
		val, err := json.Marshal(pubkey)
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (pks PublicKeys) UnmarshalJSON(data []byte) error {
	var tempKeys map[uint64]string
	if err := json.Unmarshal(data, &tempKeys); err != nil {
		return err
	}

	for amount, key := range tempKeys {
		keyBytes, err := hex.DecodeString(key)
		if err != nil {
			return err
		}
		publicKey, err := secp256k1.ParsePubKey(keyBytes)
		if err != nil {
			return fmt.Errorf("invalid public key: %v", err)
		}
		pks[amount] = publicKey
	}
	return nil
}

// DeriveKeysetId returns the keyset's stable fingerprint:
// - sort public keys by their denomination in ascending order
// - concatenate the hex encoding of each compressed public key
// - SHA-256 the concatenation
// - take the first 12 base64 characters of the digest
func DeriveKeysetId(keyset PublicKeys) string {
	type pubkey struct {
		amount uint64
		pk     *secp256k1.PublicKey
	}
	pubkeys := make([]pubkey, len(keyset))
	i := 0
	for amount, key := range keyset {
		pubkeys[i] = pubkey{amount, key}
		i++
	}
	sort.Slice(pubkeys, func(i, j int) bool {
		return pubkeys[i].amount < pubkeys[j].amount
	})

	var concatHex bytes.Buffer
	for _, key := range pubkeys {
		concatHex.WriteString(hex.EncodeToString(key.pk.SerializeCompressed()))
	}

	hash := sha256.Sum256(concatHex.Bytes())
	return base64.StdEncoding.EncodeToString(hash[:])[:12]
}

// PublicKeys returns the keyset's public keys as a denomination→public key
// mapping, suitable for the /keys wire response.
func (ks *Keyset) PublicKeys() PublicKeys {
	pubkeys := make(PublicKeys, len(ks.Keys))
	for amount, key := range ks.Keys {
		pubkeys[amount] = key.PublicKey
	}
	return pubkeys
}

