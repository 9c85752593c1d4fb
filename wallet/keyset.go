package wallet

import (
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/nutmint/gonuts/cashu"
	"github.com/nutmint/gonuts/crypto"
)

// fetchMintKeys retrieves the mint's current keys and keyset id. The
// wallet fetches this once per load: there is no keyset-rotation logic
// in scope, only selection of the first entry in /keysets. The /keys body
// is decoded straight into crypto.PublicKeys, whose UnmarshalJSON already
// knows the denomination→hex-pubkey wire shape.
func fetchMintKeys(mintURL string) (map[uint64]*secp256k1.PublicKey, string, error) {
	keys := make(crypto.PublicKeys)
	if err := getJSON(mintURL+"/keys", &keys); err != nil {
		return nil, "", fmt.Errorf("error getting keys from mint: %v", err)
	}

	var keysetsResp cashu.GetKeysetsResponse
	if err := getJSON(mintURL+"/keysets", &keysetsResp); err != nil {
		return nil, "", fmt.Errorf("error getting keysets from mint: %v", err)
	}
	if len(keysetsResp.Keysets) == 0 {
		return nil, "", fmt.Errorf("mint returned no keysets")
	}

	return keys, keysetsResp.Keysets[0], nil
}
