package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestHashToCurve(t *testing.T) {
	tests := []struct {
		message  string
		expected string
	}{
		{message: "0000000000000000000000000000000000000000000000000000000000000000",
			expected: "0266687aadf862bd776c8fc18b8e9f8e20089714856ee233b3902a591d0d5f2925"},
		{message: "0000000000000000000000000000000000000000000000000000000000000001",
			expected: "02ec4916dd28fc4c10d78e287ca5d9cc51ee1ae73cbfde08c6b37324cbfaac8bc5"},
		{message: "0000000000000000000000000000000000000000000000000000000000000002",
			expected: "02076c988b353fcbb748178ecb286bc9d0b4acf474d4ba31ba62334e46c97c416a"},
	}

	for _, test := range tests {
		msgBytes, err := hex.DecodeString(test.message)
		if err != nil {
			t.Errorf("error decoding msg: %v", err)
		}

		pk := HashToCurve(msgBytes)
		hexStr := hex.EncodeToString(pk.SerializeCompressed())
		if hexStr != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, hexStr)
		}
	}
}

func TestStep1Alice(t *testing.T) {
	tests := []struct {
		secret         []byte
		blindingFactor string
		expected       string
	}{
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			expected:       "02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2",
		},
		{secret: []byte("hello"),
			blindingFactor: "6d7e0abffc83267de28ed8ecc8760f17697e51252e13333ba69b4ddad1f95d05",
			expected:       "0249eb5dbb4fac2750991cf18083388c6ef76cde9537a6ac6f3e6679d35cdf4b0c",
		},
	}

	for _, test := range tests {
		rbytes, err := hex.DecodeString(test.blindingFactor)
		if err != nil {
			t.Errorf("error decoding blinding factor: %v", err)
		}

		B_, _, err := Step1Alice(test.secret, rbytes)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		B_Hex := hex.EncodeToString(B_.SerializeCompressed())
		if B_Hex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, B_Hex)
		}
	}
}

func TestStep1AliceSamplesBlindingFactor(t *testing.T) {
	B_1, r1, err := Step1Alice([]byte("test_message"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	B_2, r2, err := Step1Alice([]byte("test_message"), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if r1.Key.Equals(&r2.Key) {
		t.Error("expected independently sampled blinding factors")
	}
	if B_1.IsEqual(B_2) {
		t.Error("expected independently blinded messages")
	}
}

func TestStep2Bob(t *testing.T) {
	tests := []struct {
		secret         []byte
		blindingFactor string
		mintPrivKey    string
		expected       string
	}{
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			mintPrivKey:    "0000000000000000000000000000000000000000000000000000000000000001",
			expected:       "02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2",
		},
		{secret: []byte("test_message"),
			blindingFactor: "0000000000000000000000000000000000000000000000000000000000000001",
			mintPrivKey:    "7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f7f",
			expected:       "0398bc70ce8184d27ba89834d19f5199c84443c31131e48d3c1214db24247d005d",
		},
	}

	for _, test := range tests {
		rbytes, err := hex.DecodeString(test.blindingFactor)
		if err != nil {
			t.Errorf("error decoding blinding factor: %v", err)
		}

		B_, _, err := Step1Alice(test.secret, rbytes)
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}

		mintKeyBytes, err := hex.DecodeString(test.mintPrivKey)
		if err != nil {
			t.Errorf("error decoding mint private key: %v", err)
		}

		k, _ := btcec.PrivKeyFromBytes(mintKeyBytes)

		blindedSignature := Step2Bob(B_, k)
		blindedHex := hex.EncodeToString(blindedSignature.SerializeCompressed())
		if blindedHex != test.expected {
			t.Errorf("expected '%v' but got '%v' instead\n", test.expected, blindedHex)
		}
	}
}

// TestStep2BobVector reproduces end-to-end scenario 1: a blinded message for
// amount 8 signed under the "TEST_PRIVATE_KEY"/"0/0/0/0" keyset's amount-8
// private key must yield this exact C_.
func TestStep2BobVector(t *testing.T) {
	ks, err := GenerateKeyset("TEST_PRIVATE_KEY", "0/0/0/0")
	if err != nil {
		t.Fatalf("error generating keyset: %v", err)
	}

	bdst, _ := hex.DecodeString("02634a2c2b34bec9e8a4aba4361f6bf202d7fa2365379b0840afe249a7a9d71239")
	B_, err := secp256k1.ParsePubKey(bdst)
	if err != nil {
		t.Fatalf("error parsing B_: %v", err)
	}

	key, ok := ks.Keys[8]
	if !ok {
		t.Fatalf("keyset missing denomination 8")
	}

	C_ := Step2Bob(B_, key.PrivateKey)
	expected := "037074c4f53e326ee14ed67125f387d160e0e729351471b69ad41f7d5d21071e15"
	if hex.EncodeToString(C_.SerializeCompressed()) != expected {
		t.Errorf("expected '%v' but got '%v' instead\n", expected, hex.EncodeToString(C_.SerializeCompressed()))
	}
}

func TestStep3Alice(t *testing.T) {
	dst, _ := hex.DecodeString("02a9acc1e48c25eeeb9289b5031cc57da9fe72f3fe2861d264bdc074209b107ba2")
	C_, err := secp256k1.ParsePubKey(dst)
	if err != nil {
		t.Error(err)
	}

	kdst, _ := hex.DecodeString("020000000000000000000000000000000000000000000000000000000000000001")
	K, err := secp256k1.ParsePubKey(kdst)
	if err != nil {
		t.Error(err)
	}

	rhex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	r, _ := btcec.PrivKeyFromBytes(rhex)

	C := Step3Alice(C_, r, K)
	CHex := hex.EncodeToString(C.SerializeCompressed())
	expected := "03c724d7e6a5443b39ac8acf11f40420adc4f99a02e7cc1b57703d9391f6d129cd"
	if CHex != expected {
		t.Errorf("expected '%v' but got '%v' instead\n", expected, CHex)
	}
}

func TestVerify(t *testing.T) {
	secret := []byte("test_message")
	rhex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000002")

	B_, r, err := Step1Alice(secret, rhex)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	khex, _ := hex.DecodeString("0000000000000000000000000000000000000000000000000000000000000001")
	k, _ := btcec.PrivKeyFromBytes(khex)
	K := k.PubKey()

	C_ := Step2Bob(B_, k)
	C := Step3Alice(C_, r, K)

	if !Verify(secret, k, C) {
		t.Error("failed verification")
	}
}
