package cashu

import (
	"reflect"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

func TestAmountSplit(t *testing.T) {
	tests := []struct {
		amount   uint64
		expected []uint64
	}{
		{amount: 0, expected: []uint64{}},
		{amount: 1, expected: []uint64{1}},
		{amount: 13, expected: []uint64{1, 4, 8}},
		{amount: 64, expected: []uint64{64}},
		{amount: 63, expected: []uint64{1, 2, 4, 8, 16, 32}},
	}

	for _, test := range tests {
		got := AmountSplit(test.amount)
		if !reflect.DeepEqual(got, test.expected) {
			t.Errorf("AmountSplit(%v): expected '%v' but got '%v'", test.amount, test.expected, got)
		}

		var sum uint64
		for _, denom := range got {
			sum += denom
			if denom != 0 && denom&(denom-1) != 0 {
				t.Errorf("AmountSplit(%v): %v is not a power of two", test.amount, denom)
			}
		}
		if sum != test.amount {
			t.Errorf("AmountSplit(%v): decomposition sums to %v", test.amount, sum)
		}
	}
}

func TestAmountSplitAscending(t *testing.T) {
	split := AmountSplit(255)
	for i := 1; i < len(split); i++ {
		if split[i] <= split[i-1] {
			t.Errorf("expected strictly ascending decomposition, got %v", split)
		}
	}
}

func TestCheckDuplicateProofs(t *testing.T) {
	noDuplicates := Proofs{
		{Amount: 1, Secret: "secret1"},
		{Amount: 2, Secret: "secret2"},
	}
	if CheckDuplicateProofs(noDuplicates) {
		t.Error("expected no duplicates")
	}

	duplicates := Proofs{
		{Amount: 1, Secret: "secret1"},
		{Amount: 1, Secret: "secret1"},
	}
	if !CheckDuplicateProofs(duplicates) {
		t.Error("expected duplicates to be detected")
	}
}

func TestProofsAmount(t *testing.T) {
	proofs := Proofs{
		{Amount: 1},
		{Amount: 4},
		{Amount: 8},
	}
	if proofs.Amount() != 13 {
		t.Errorf("expected 13 but got %v", proofs.Amount())
	}
}

func TestTokenV3RoundTrip(t *testing.T) {
	proofs := Proofs{
		{Amount: 4, Id: "00abc123", Secret: "s1", C: "02aa"},
		{Amount: 8, Id: "00abc123", Secret: "s2", C: "02bb"},
	}

	token, err := NewTokenV3(proofs, "https://mint.example.com", Sat)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	serialized, err := token.Serialize()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if serialized[:6] != "cashuA" {
		t.Fatalf("expected cashuA prefix, got '%v'", serialized[:6])
	}

	decoded, err := DecodeTokenV3(serialized)
	if err != nil {
		t.Fatalf("unexpected error decoding: %v", err)
	}

	if decoded.Amount() != token.Amount() {
		t.Errorf("expected amount %v but got %v", token.Amount(), decoded.Amount())
	}
	if decoded.Mint() != token.Mint() {
		t.Errorf("expected mint '%v' but got '%v'", token.Mint(), decoded.Mint())
	}
	if !reflect.DeepEqual(decoded.Proofs(), token.Proofs()) {
		t.Errorf("expected proofs '%v' but got '%v'", token.Proofs(), decoded.Proofs())
	}
}

func TestDecodeTokenV3RejectsWrongPrefix(t *testing.T) {
	_, err := DecodeTokenV3("cashuBdeadbeef")
	if err != ErrInvalidTokenV3 {
		t.Errorf("expected ErrInvalidTokenV3 but got %v", err)
	}
}

func TestSortBlindedMessages(t *testing.T) {
	messages := BlindedMessages{
		{Amount: 8}, {Amount: 1}, {Amount: 4},
	}
	secrets := []string{"s8", "s1", "s4"}
	rs := make([]*secp256k1.PrivateKey, 3)

	SortBlindedMessages(messages, secrets, rs)

	if messages[0].Amount != 1 || messages[1].Amount != 4 || messages[2].Amount != 8 {
		t.Errorf("expected ascending order, got %v", messages)
	}
	if secrets[0] != "s1" || secrets[1] != "s4" || secrets[2] != "s8" {
		t.Errorf("expected secrets permuted in lockstep, got %v", secrets)
	}
}
