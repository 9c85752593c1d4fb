package mint

import (
	"encoding/hex"
	"testing"

	"github.com/nutmint/gonuts/cashu"
	"github.com/nutmint/gonuts/crypto"
	"github.com/nutmint/gonuts/mint/lightning"
)

func testMint(t *testing.T) *Mint {
	t.Helper()
	keyset, err := crypto.GenerateKeyset("TEST_PRIVATE_KEY", "0/0/0/0")
	if err != nil {
		t.Fatalf("error generating keyset: %v", err)
	}
	db, err := InitBolt(t.TempDir())
	if err != nil {
		t.Fatalf("error opening db: %v", err)
	}
	return &Mint{
		keyset:          keyset,
		db:              db,
		lightningClient: &lightning.FakeBackend{},
		logger:          setupLogger(),
	}
}

// proofFor mints a spendable Proof for amount directly against the mint's
// keyset, bypassing the HTTP round-trip.
func proofFor(t *testing.T, m *Mint, amount uint64, secret string) cashu.Proof {
	t.Helper()
	keyPair, ok := m.keyset.Keys[amount]
	if !ok {
		t.Fatalf("no key for amount %v", amount)
	}

	B_, r, err := crypto.Step1Alice([]byte(secret), nil)
	if err != nil {
		t.Fatalf("Step1Alice: %v", err)
	}
	C_ := crypto.Step2Bob(B_, keyPair.PrivateKey)
	C := crypto.Step3Alice(C_, r, keyPair.PublicKey)

	return cashu.Proof{
		Amount: amount,
		Id:     m.keyset.Id,
		Secret: secret,
		C:      hex.EncodeToString(C.SerializeCompressed()),
	}
}

func TestMintTokensSignsOneCoin(t *testing.T) {
	m := testMint(t)

	B_, _, err := crypto.Step1Alice([]byte("secret"), nil)
	if err != nil {
		t.Fatalf("Step1Alice: %v", err)
	}
	outputs := cashu.BlindedMessages{{Amount: 8, B_: hex.EncodeToString(B_.SerializeCompressed())}}

	_, hash, err := m.CreateInvoice(8)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	// FakeBackend settles every invoice immediately.
	sigs, err := m.MintTokens(hash, outputs)
	if err != nil {
		t.Fatalf("MintTokens: %v", err)
	}
	if len(sigs) != 1 || sigs[0].Amount != 8 {
		t.Fatalf("expected one signature of amount 8, got %+v", sigs)
	}
	if sigs[0].Id != m.keyset.Id {
		t.Fatalf("expected keyset id %v, got %v", m.keyset.Id, sigs[0].Id)
	}

	if _, err := m.db.GetPendingInvoice(hash); err == nil {
		t.Fatalf("expected pending invoice to be deleted after minting")
	}
}

func TestMintTokensUnpaidInvoiceReturnsEmpty(t *testing.T) {
	m := testMint(t)
	fb := &lightning.FakeBackend{}
	m.lightningClient = fb

	pr, hash, err := m.CreateInvoice(10)
	if err != nil {
		t.Fatalf("CreateInvoice: %v", err)
	}
	// mark the underlying invoice unpaid
	for i := range fb.Invoices {
		if fb.Invoices[i].PaymentRequest == pr {
			fb.Invoices[i].Paid = false
		}
	}

	sigs, err := m.MintTokens(hash, cashu.BlindedMessages{})
	if err != nil {
		t.Fatalf("MintTokens: %v", err)
	}
	if len(sigs) != 0 {
		t.Fatalf("expected empty signatures for unpaid invoice, got %v", sigs)
	}
	if _, err := m.db.GetPendingInvoice(hash); err != nil {
		t.Fatalf("expected pending invoice to survive an unpaid poll")
	}
}

func TestSplitZero(t *testing.T) {
	m := testMint(t)
	proof := proofFor(t, m, 1, "secret-zero")

	snd, fst, err := m.Split(1, cashu.Proofs{proof}, cashu.BlindedMessages{})
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(fst) != 0 || len(snd) != 0 {
		t.Fatalf("expected no signatures, got fst=%v snd=%v", fst, snd)
	}
}

func TestSplitConservesAmount(t *testing.T) {
	m := testMint(t)
	proofs := cashu.Proofs{
		proofFor(t, m, 32, "s32"),
		proofFor(t, m, 16, "s16"),
		proofFor(t, m, 16, "s16b"),
	}

	var outputs cashu.BlindedMessages
	fstAmounts := cashu.AmountSplit(64 - 20)
	sndAmounts := cashu.AmountSplit(20)
	for _, amt := range append(fstAmounts, sndAmounts...) {
		B_, _, err := crypto.Step1Alice([]byte("out"+string(rune(amt))), nil)
		if err != nil {
			t.Fatalf("Step1Alice: %v", err)
		}
		outputs = append(outputs, cashu.BlindedMessage{Amount: amt, B_: hex.EncodeToString(B_.SerializeCompressed())})
	}

	snd, fst, err := m.Split(20, proofs, outputs)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if fst.Amount() != 44 {
		t.Fatalf("expected first batch to total 44, got %v", fst.Amount())
	}
	if snd.Amount() != 20 {
		t.Fatalf("expected second batch to total 20, got %v", snd.Amount())
	}

	if _, _, err := m.Split(1, proofs[:1], cashu.BlindedMessages{}); err != cashu.ProofAlreadyUsedErr {
		t.Fatalf("expected ProofAlreadyUsedErr on reuse, got %v", err)
	}
}
