package mint

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/nutmint/gonuts/cashu"
	"github.com/nutmint/gonuts/crypto"
	"github.com/nutmint/gonuts/mint/lightning"
	"github.com/nutmint/gonuts/mint/storage"
)

// Mint is the issuing, splitting and melting authority for one immutable
// keyset. Its used-proof set and pending-invoice table are the only
// mutable, shared state and are serialized through mu.
type Mint struct {
	mu sync.Mutex

	keyset *crypto.Keyset
	db     storage.Database

	lightningClient lightning.Client
	logger          *slog.Logger
}

// LoadMint derives the mint's keyset from config and opens its storage.
func LoadMint(config Config, lightningClient lightning.Client) (*Mint, error) {
	logger := setupLogger()

	keyset, err := crypto.GenerateKeyset(config.MasterSecret, config.DerivationPath)
	if err != nil {
		return nil, fmt.Errorf("error generating keyset: %v", err)
	}
	logger.Info(fmt.Sprintf("loaded keyset '%v'", keyset.Id))

	db, err := InitBolt(config.DBPath)
	if err != nil {
		return nil, fmt.Errorf("error setting up storage: %v", err)
	}

	if lightningClient == nil {
		return nil, fmt.Errorf("invalid lightning client")
	}

	return &Mint{
		keyset:          keyset,
		db:              db,
		lightningClient: lightningClient,
		logger:          logger,
	}, nil
}

func setupLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	}))
}

// logInfof/logErrorf/logDebugf preserve the caller's source position in the
// emitted record, rather than this helper's.
func (m *Mint) logInfof(format string, args ...any) {
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	r := slog.NewRecord(time.Now(), slog.LevelInfo, fmt.Sprintf(format, args...), pcs[0])
	_ = m.logger.Handler().Handle(context.Background(), r)
}

func (m *Mint) logErrorf(format string, args ...any) {
	var pcs [1]uintptr
	runtime.Callers(2, pcs[:])
	r := slog.NewRecord(time.Now(), slog.LevelError, fmt.Sprintf(format, args...), pcs[0])
	_ = m.logger.Handler().Handle(context.Background(), r)
}

func (m *Mint) Keyset() *crypto.Keyset {
	return m.keyset
}

// CreateInvoice asks the Lightning backend for an invoice, generates a
// random hash to key it, and persists the pending record. Nothing is
// persisted on failure.
func (m *Mint) CreateInvoice(amount uint64) (string, string, error) {
	invoice, err := m.lightningClient.CreateInvoice(amount)
	if err != nil {
		errmsg := fmt.Sprintf("error requesting invoice from lightning backend: %v", err)
		return "", "", cashu.BuildCashuError(errmsg, cashu.LightningBackendErrCode)
	}

	hash, err := cashu.GenerateRandomHash()
	if err != nil {
		m.logErrorf("error generating random hash: %v", err)
		return "", "", cashu.StandardErr
	}

	pending := storage.PendingInvoice{
		Hash:           hash,
		PaymentRequest: invoice.PaymentRequest,
		PaymentHash:    invoice.PaymentHash,
		Amount:         amount,
		Expiry:         invoice.Expiry,
	}
	if err := m.db.AddPendingInvoice(hash, pending); err != nil {
		errmsg := fmt.Sprintf("error saving pending invoice: %v", err)
		return "", "", cashu.BuildCashuError(errmsg, cashu.DBErrCode)
	}

	return invoice.PaymentRequest, hash, nil
}

// FeePercent is the Lightning fee reserve the mint quotes to wallets
// ahead of a melt, expressed as a percentage of the invoice amount.
const FeePercent = 1

// CheckFees decodes request and returns the fee reserve, in millisats,
// the wallet should add to its proof selection before melting.
func (m *Mint) CheckFees(paymentRequest string) (uint64, error) {
	decoded, err := m.lightningClient.DecodeInvoice(paymentRequest)
	if err != nil {
		errmsg := fmt.Sprintf("error decoding invoice: %v", err)
		return 0, cashu.BuildCashuError(errmsg, cashu.DecodeInvoiceErrCode)
	}
	if !decoded.HasAmount {
		return 0, cashu.InvoiceMissingAmountErr
	}
	return decoded.AmountMsat * FeePercent / 100, nil
}

// MintTokens signs outputs once the invoice identified by hash has been
// paid. If the invoice has not been paid yet, it returns an empty
// sequence rather than an error — this is a poll the wallet repeats.
func (m *Mint) MintTokens(hash string, outputs cashu.BlindedMessages) (cashu.BlindedSignatures, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pending, err := m.db.GetPendingInvoice(hash)
	if err != nil {
		return nil, cashu.InvoiceNotFoundErr
	}

	m.logInfof("checking status of invoice with hash '%v'", pending.PaymentHash)
	paid, err := m.lightningClient.IsInvoicePaid(pending.PaymentHash)
	if err != nil {
		errmsg := fmt.Sprintf("error checking invoice status: %v", err)
		return nil, cashu.BuildCashuError(errmsg, cashu.LightningBackendErrCode)
	}
	if !paid {
		return cashu.BlindedSignatures{}, nil
	}

	blindedSignatures, err := m.signBlindedMessages(outputs)
	if err != nil {
		return nil, err
	}

	// Delete the pending record only after every signature has been
	// produced, so a signing failure mid-sequence leaves the invoice
	// retryable rather than silently burning it.
	if err := m.db.RemovePendingInvoice(hash); err != nil {
		errmsg := fmt.Sprintf("error removing pending invoice: %v", err)
		return nil, cashu.BuildCashuError(errmsg, cashu.DBErrCode)
	}

	return blindedSignatures, nil
}

// Split validates proofs and outputs, signs the two output halves and
// invalidates the input proofs. It returns (snd, fst) in that order — the
// second output slice first — which is part of the wire contract.
func (m *Mint) Split(amount uint64, proofs cashu.Proofs, outputs cashu.BlindedMessages) (cashu.BlindedSignatures, cashu.BlindedSignatures, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.verifyProofs(proofs); err != nil {
		return nil, nil, err
	}

	total := proofs.Amount()
	if amount > total {
		return nil, nil, cashu.SplitAmountTooHighErr
	}

	fstAmounts := cashu.AmountSplit(total - amount)
	sndAmounts := cashu.AmountSplit(amount)
	if len(outputs) < len(fstAmounts) {
		return nil, nil, cashu.SplitOutputsMalformedErr
	}

	fstOutputs := outputs[:len(fstAmounts)]
	sndOutputs := outputs[len(fstAmounts):]
	if !amountsMatch(fstOutputs, fstAmounts) || !amountsMatch(sndOutputs, sndAmounts) {
		return nil, nil, cashu.SplitOutputsMalformedErr
	}

	fstSigs, err := m.signBlindedMessages(fstOutputs)
	if err != nil {
		return nil, nil, err
	}
	sndSigs, err := m.signBlindedMessages(sndOutputs)
	if err != nil {
		return nil, nil, err
	}

	if fstSigs.Amount()+sndSigs.Amount() != total {
		return nil, nil, cashu.SplitAmountMismatchErr
	}

	if err := m.db.AddUsedProofs(proofs); err != nil {
		errmsg := fmt.Sprintf("error invalidating proofs: %v", err)
		return nil, nil, cashu.BuildCashuError(errmsg, cashu.DBErrCode)
	}

	return sndSigs, fstSigs, nil
}

func amountsMatch(outputs cashu.BlindedMessages, amounts []uint64) bool {
	if len(outputs) != len(amounts) {
		return false
	}
	for i, want := range amounts {
		if outputs[i].Amount != want {
			return false
		}
	}
	return true
}

// Melt pays a Lightning invoice on behalf of a wallet, in exchange for
// proofs covering its amount. Inputs are committed to the used set
// *before* payment is attempted: a Lightning failure after that point
// leaves the coins burned, a deliberate choice to keep double-spend
// prevention race-free.
func (m *Mint) Melt(paymentRequest string, proofs cashu.Proofs) (bool, string, cashu.BlindedSignatures, error) {
	decoded, err := m.lightningClient.DecodeInvoice(paymentRequest)
	if err != nil {
		errmsg := fmt.Sprintf("error decoding invoice: %v", err)
		return false, "", nil, cashu.BuildCashuError(errmsg, cashu.DecodeInvoiceErrCode)
	}
	if !decoded.HasAmount {
		return false, "", nil, cashu.InvoiceMissingAmountErr
	}
	amountSat := decoded.AmountMsat / 1000

	m.mu.Lock()
	if err := m.verifyProofs(proofs); err != nil {
		m.mu.Unlock()
		return false, "", nil, err
	}

	total := proofs.Amount()
	if amountSat > total {
		m.mu.Unlock()
		return false, "", nil, cashu.InvoiceAmountTooLowErr
	}

	if err := m.db.AddUsedProofs(proofs); err != nil {
		m.mu.Unlock()
		errmsg := fmt.Sprintf("error invalidating proofs: %v", err)
		return false, "", nil, cashu.BuildCashuError(errmsg, cashu.DBErrCode)
	}
	m.mu.Unlock()

	m.logInfof("attempting to pay invoice: %v", paymentRequest)
	result, err := m.lightningClient.PayInvoice(paymentRequest)
	if err != nil {
		errmsg := fmt.Sprintf("error paying invoice: %v", err)
		return false, "", nil, cashu.BuildCashuError(errmsg, cashu.LightningBackendErrCode)
	}

	return true, result.PaymentHash, cashu.BlindedSignatures{}, nil
}

// CheckUsedProofs fails if any of proofs has already been spent.
func (m *Mint) CheckUsedProofs(proofs cashu.Proofs) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.checkNotUsed(proofs)
}

func (m *Mint) checkNotUsed(proofs cashu.Proofs) error {
	for _, proof := range proofs {
		used, err := m.db.ProofUsed(proof.Secret)
		if err != nil {
			errmsg := fmt.Sprintf("error checking used proofs: %v", err)
			return cashu.BuildCashuError(errmsg, cashu.DBErrCode)
		}
		if used {
			return cashu.ProofAlreadyUsedErr
		}
	}
	return nil
}

func (m *Mint) verifyProofs(proofs cashu.Proofs) error {
	if len(proofs) == 0 {
		return cashu.NoProofsProvided
	}
	if cashu.CheckDuplicateProofs(proofs) {
		return cashu.DuplicateProofs
	}
	if err := m.checkNotUsed(proofs); err != nil {
		return err
	}

	for _, proof := range proofs {
		if proof.Id != m.keyset.Id {
			return cashu.UnknownDenominationErr
		}
		keyPair, ok := m.keyset.Keys[proof.Amount]
		if !ok {
			return cashu.InvalidProofErr
		}

		Cbytes, err := hex.DecodeString(proof.C)
		if err != nil {
			errmsg := fmt.Sprintf("invalid C: %v", err)
			return cashu.BuildCashuError(errmsg, cashu.StandardErrCode)
		}
		C, err := secp256k1.ParsePubKey(Cbytes)
		if err != nil {
			return cashu.BuildCashuError(err.Error(), cashu.StandardErrCode)
		}

		if !crypto.Verify([]byte(proof.Secret), keyPair.PrivateKey, C) {
			return cashu.InvalidProofErr
		}
	}
	return nil
}

func (m *Mint) signBlindedMessages(messages cashu.BlindedMessages) (cashu.BlindedSignatures, error) {
	signatures := make(cashu.BlindedSignatures, len(messages))

	for i, msg := range messages {
		keyPair, ok := m.keyset.Keys[msg.Amount]
		if !ok {
			return nil, cashu.UnknownDenominationErr
		}

		B_bytes, err := hex.DecodeString(msg.B_)
		if err != nil {
			errmsg := fmt.Sprintf("invalid B_: %v", err)
			return nil, cashu.BuildCashuError(errmsg, cashu.StandardErrCode)
		}
		B_, err := secp256k1.ParsePubKey(B_bytes)
		if err != nil {
			return nil, cashu.BuildCashuError(err.Error(), cashu.StandardErrCode)
		}

		C_ := crypto.Step2Bob(B_, keyPair.PrivateKey)
		signatures[i] = cashu.BlindedSignature{
			Amount: msg.Amount,
			C_:     hex.EncodeToString(C_.SerializeCompressed()),
			Id:     m.keyset.Id,
		}
	}

	return signatures, nil
}
