package crypto

import "testing"

func TestGenerateKeysetDeterminism(t *testing.T) {
	ks1, err := GenerateKeyset("superprivatesecretkey", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ks2, err := GenerateKeyset("superprivatesecretkey", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ks1.Id != ks2.Id {
		t.Errorf("expected identical keyset ids, got '%v' and '%v'", ks1.Id, ks2.Id)
	}

	for amount, kp1 := range ks1.Keys {
		kp2, ok := ks2.Keys[amount]
		if !ok {
			t.Fatalf("second keyset missing denomination %v", amount)
		}
		if !kp1.PrivateKey.Key.Equals(&kp2.PrivateKey.Key) {
			t.Errorf("expected identical private key for denomination %v", amount)
		}
	}
}

func TestGenerateKeysetDifferentPath(t *testing.T) {
	ks1, err := GenerateKeyset("superprivatesecretkey", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ks2, err := GenerateKeyset("superprivatesecretkey", "0/0/0/1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ks1.Id == ks2.Id {
		t.Error("expected different derivation paths to produce different keyset ids")
	}
}

func TestGenerateKeysetDenominations(t *testing.T) {
	ks, err := GenerateKeyset("TEST_PRIVATE_KEY", "0/0/0/0")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ks.Keys) != MAX_ORDER {
		t.Errorf("expected %v denominations, got %v", MAX_ORDER, len(ks.Keys))
	}

	for i := 0; i < MAX_ORDER; i++ {
		denom := uint64(1) << uint(i)
		if _, ok := ks.Keys[denom]; !ok {
			t.Errorf("missing denomination %v", denom)
		}
	}
}

func TestDeriveKeysetIdLength(t *testing.T) {
	ks, err := GenerateKeyset("superprivatesecretkey", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ks.Id) != 12 {
		t.Errorf("expected a 12-character keyset id, got %v ('%v')", len(ks.Id), ks.Id)
	}
}
