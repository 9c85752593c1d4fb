package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"sort"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/nutmint/gonuts/cashu"
	"github.com/nutmint/gonuts/crypto"
	"github.com/nutmint/gonuts/wallet/storage"
	decodepay "github.com/nbd-wtf/ln-decodepay"
)

// Wallet is a single-mint, single-keyset Cashu wallet. The mint's keys are
// fetched once at load time; there is no keyset-rotation logic in scope.
type Wallet struct {
	db       storage.LocalStore
	MintURL  string
	mintKeys map[uint64]*secp256k1.PublicKey
	keysetId string
}

func InitStorage(path string) (storage.LocalStore, error) {
	return storage.InitBolt(path)
}

func LoadWallet(config Config) (*Wallet, error) {
	db, err := InitStorage(config.WalletPath)
	if err != nil {
		return nil, fmt.Errorf("InitStorage: %v", err)
	}

	keys, keysetId, err := fetchMintKeys(config.MintURL)
	if err != nil {
		return nil, fmt.Errorf("error fetching mint keys: %v", err)
	}
	if err := db.SaveKeysetId(keysetId); err != nil {
		return nil, fmt.Errorf("error saving keyset id: %v", err)
	}

	return &Wallet{db: db, MintURL: config.MintURL, mintKeys: keys, keysetId: keysetId}, nil
}

func (w *Wallet) GetBalance() uint64 {
	return w.db.GetProofs().Amount()
}

// GetMintPaymentRequest asks the mint for a Lightning invoice to mint amount.
func (w *Wallet) GetMintPaymentRequest(amount uint64) (*cashu.GetMintResponse, error) {
	return getMintPaymentRequest(w.MintURL, amount)
}

// MintTokens redeems a paid invoice (identified by hash) for amount worth
// of freshly blinded coins. While the invoice remains unpaid, the mint
// returns no signatures and MintTokens surfaces the distinguished polling
// error so the caller knows to retry.
func (w *Wallet) MintTokens(amount uint64, hash string) (*cashu.TokenV3, error) {
	outputs, secrets, rs, err := w.createBlindedMessages(cashu.AmountSplit(amount))
	if err != nil {
		return nil, err
	}

	mintResponse, err := postMint(w.MintURL, hash, outputs)
	if err != nil {
		return nil, err
	}
	if len(mintResponse.Promises) == 0 {
		return nil, cashu.InvoiceNotPaidErr
	}

	proofs, err := w.constructProofs(mintResponse.Promises, secrets, rs)
	if err != nil {
		return nil, err
	}

	if err := w.db.AddProofs(proofs); err != nil {
		return nil, fmt.Errorf("error storing proofs: %v", err)
	}

	return cashu.NewTokenV3(proofs, w.MintURL, cashu.Sat)
}

// SplitTokens swaps proofs for two fresh batches: a "first" batch totalling
// proofs.Amount()-splitAmt, and a "second" batch totalling splitAmt. The
// mint's response field names (Fst, Snd) correspond one-to-one with these.
func (w *Wallet) SplitTokens(proofs cashu.Proofs, splitAmt uint64) (first *cashu.TokenV3, second *cashu.TokenV3, err error) {
	total := proofs.Amount()
	if splitAmt > total {
		return nil, nil, cashu.SplitAmountTooHighErr
	}

	firstOutputs, firstSecrets, firstRs, err := w.createBlindedMessages(cashu.AmountSplit(total - splitAmt))
	if err != nil {
		return nil, nil, err
	}
	secondOutputs, secondSecrets, secondRs, err := w.createBlindedMessages(cashu.AmountSplit(splitAmt))
	if err != nil {
		return nil, nil, err
	}

	if firstOutputs.Amount()+secondOutputs.Amount() != total {
		return nil, nil, cashu.InvalidProofErr
	}

	outputs := make(cashu.BlindedMessages, 0, len(firstOutputs)+len(secondOutputs))
	outputs = append(outputs, firstOutputs...)
	outputs = append(outputs, secondOutputs...)

	splitRequest := cashu.PostSplitRequest{Amount: splitAmt, Proofs: proofs, Outputs: outputs}
	splitResponse, err := postSplit(w.MintURL, splitRequest)
	if err != nil {
		return nil, nil, err
	}

	firstProofs, err := w.constructProofs(splitResponse.Fst, firstSecrets, firstRs)
	if err != nil {
		return nil, nil, err
	}
	secondProofs, err := w.constructProofs(splitResponse.Snd, secondSecrets, secondRs)
	if err != nil {
		return nil, nil, err
	}

	firstToken, err := cashu.NewTokenV3(firstProofs, w.MintURL, cashu.Sat)
	if err != nil {
		return nil, nil, err
	}
	secondToken, err := cashu.NewTokenV3(secondProofs, w.MintURL, cashu.Sat)
	if err != nil {
		return nil, nil, err
	}

	return firstToken, secondToken, nil
}

// GetProofsForAmount selects proofs greedily, largest-first: it sorts the
// wallet's proofs ascending and pops from the largest end until the
// running sum covers amount. The result may overshoot amount; the caller
// performs a split to get exact change.
func (w *Wallet) GetProofsForAmount(amount uint64) (cashu.Proofs, error) {
	proofs := w.db.GetProofs()
	if proofs.Amount() < amount {
		return nil, cashu.NotEnoughTokensErr
	}

	sort.Slice(proofs, func(i, j int) bool { return proofs[i].Amount < proofs[j].Amount })

	selected := cashu.Proofs{}
	var sum uint64
	for i := len(proofs) - 1; i >= 0 && sum < amount; i-- {
		selected = append(selected, proofs[i])
		sum += proofs[i].Amount
	}
	return selected, nil
}

// Send selects amount worth of proofs, splitting against the mint for
// exact change if the greedy selection overshoots, and returns a token
// ready to hand to a recipient.
func (w *Wallet) Send(amount uint64) (*cashu.TokenV3, error) {
	selected, err := w.GetProofsForAmount(amount)
	if err != nil {
		return nil, err
	}

	if selected.Amount() == amount {
		if err := w.db.DeleteProofs(secretsOf(selected)); err != nil {
			return nil, err
		}
		return cashu.NewTokenV3(selected, w.MintURL, cashu.Sat)
	}

	change, send, err := w.SplitTokens(selected, amount)
	if err != nil {
		return nil, err
	}
	if err := w.db.DeleteProofs(secretsOf(selected)); err != nil {
		return nil, err
	}
	if err := w.db.AddProofs(change.Proofs()); err != nil {
		return nil, err
	}

	return send, nil
}

// ReceiveTokens posts a full-amount split, re-blinding the token's coins
// under keys this wallet holds no secrets for, then persists the result.
// This is the canonical "receive as self" step: it invalidates the
// sender's proofs at the mint even if the sender kept a copy.
func (w *Wallet) ReceiveTokens(token cashu.Token) error {
	proofs := token.Proofs()
	total := proofs.Amount()

	outputs, secrets, rs, err := w.createBlindedMessages(cashu.AmountSplit(total))
	if err != nil {
		return err
	}

	splitRequest := cashu.PostSplitRequest{Amount: total, Proofs: proofs, Outputs: outputs}
	splitResponse, err := postSplit(w.MintURL, splitRequest)
	if err != nil {
		return fmt.Errorf("error swapping received tokens: %v", err)
	}

	newProofs, err := w.constructProofs(splitResponse.Snd, secrets, rs)
	if err != nil {
		return err
	}

	return w.db.AddProofs(newProofs)
}

// PayInvoice melts proofs to settle a Lightning invoice. The target amount
// is the invoice's sat amount plus the mint's quoted fee reserve; proofs
// are selected greedily and, if they overshoot, split against the mint for
// exact change before the melt is attempted.
func (w *Wallet) PayInvoice(invoice string) (*cashu.PostMeltResponse, error) {
	decoded, err := decodepay.Decodepay(invoice)
	if err != nil {
		return nil, fmt.Errorf("error decoding invoice: %v", err)
	}
	if decoded.MSatoshi <= 0 {
		return nil, cashu.InvoiceMissingAmountErr
	}
	invoiceAmountSat := uint64(decoded.MSatoshi) / 1000

	feesResponse, err := postCheckFees(w.MintURL, invoice)
	if err != nil {
		return nil, err
	}
	target := invoiceAmountSat + feesResponse.Fee/1000

	if target > w.GetBalance() {
		return nil, cashu.NotEnoughTokensErr
	}

	selected, err := w.GetProofsForAmount(target)
	if err != nil {
		return nil, err
	}

	meltProofs := selected
	if selected.Amount() > target {
		change, exact, err := w.SplitTokens(selected, target)
		if err != nil {
			return nil, err
		}
		if err := w.db.DeleteProofs(secretsOf(selected)); err != nil {
			return nil, err
		}
		if err := w.db.AddProofs(change.Proofs()); err != nil {
			return nil, err
		}
		meltProofs = exact.Proofs()
	}

	meltResponse, err := postMelt(w.MintURL, cashu.PostMeltRequest{PR: invoice, Proofs: meltProofs})
	if err != nil {
		return nil, err
	}

	if meltResponse.Paid {
		if err := w.db.DeleteProofs(secretsOf(meltProofs)); err != nil {
			return nil, err
		}
	}

	return meltResponse, nil
}

func secretsOf(proofs cashu.Proofs) []string {
	secrets := make([]string, len(proofs))
	for i, proof := range proofs {
		secrets[i] = proof.Secret
	}
	return secrets
}

const secretAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// randomSecret generates a fresh 24-character alphanumeric proof secret.
func randomSecret() (string, error) {
	const length = 24
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(secretAlphabet))))
		if err != nil {
			return "", err
		}
		buf[i] = secretAlphabet[n.Int64()]
	}
	return string(buf), nil
}

func (w *Wallet) createBlindedMessages(amounts []uint64) (cashu.BlindedMessages, []string, []*secp256k1.PrivateKey, error) {
	outputs := make(cashu.BlindedMessages, len(amounts))
	secrets := make([]string, len(amounts))
	rs := make([]*secp256k1.PrivateKey, len(amounts))

	for i, amt := range amounts {
		secret, err := randomSecret()
		if err != nil {
			return nil, nil, nil, err
		}
		B_, r, err := crypto.Step1Alice([]byte(secret), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		outputs[i] = cashu.NewBlindedMessage(amt, B_)
		secrets[i] = secret
		rs[i] = r
	}

	return outputs, secrets, rs, nil
}

func (w *Wallet) constructProofs(sigs cashu.BlindedSignatures, secrets []string, rs []*secp256k1.PrivateKey) (cashu.Proofs, error) {
	if len(sigs) != len(secrets) || len(sigs) != len(rs) {
		return nil, errors.New("mint returned a different number of signatures than requested")
	}

	proofs := make(cashu.Proofs, len(sigs))
	for i, sig := range sigs {
		key, ok := w.mintKeys[sig.Amount]
		if !ok {
			return nil, cashu.UnknownDenominationErr
		}

		C_bytes, err := hex.DecodeString(sig.C_)
		if err != nil {
			return nil, fmt.Errorf("invalid C_: %v", err)
		}
		C_, err := secp256k1.ParsePubKey(C_bytes)
		if err != nil {
			return nil, fmt.Errorf("invalid C_: %v", err)
		}

		C := crypto.Step3Alice(C_, rs[i], key)
		proofs[i] = cashu.Proof{
			Amount: sig.Amount,
			Id:     w.keysetId,
			Secret: secrets[i],
			C:      hex.EncodeToString(C.SerializeCompressed()),
		}
	}

	return proofs, nil
}
