package lightning

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"slices"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/lightningnetwork/lnd/lnwire"
	"github.com/lightningnetwork/lnd/zpay32"
	decodepay "github.com/nbd-wtf/ln-decodepay"
)

const (
	FakePreimage           = "0000000000000000"
	FailPaymentDescription = "fail the payment"
)

// FakeBackend is an in-memory Lightning backend for tests: every invoice it
// issues is considered paid immediately, except ones whose description
// marks them to fail at payment time.
type FakeBackend struct {
	Invoices []fakeInvoice
}

type fakeInvoice struct {
	PaymentRequest string
	PaymentHash    string
	Amount         uint64
	Paid           bool
}

func (fb *FakeBackend) CreateInvoice(amount uint64) (Invoice, error) {
	req, paymentHash, err := createFakeInvoice(amount, "test")
	if err != nil {
		return Invoice{}, err
	}

	fb.Invoices = append(fb.Invoices, fakeInvoice{
		PaymentRequest: req,
		PaymentHash:    paymentHash,
		Amount:         amount,
		Paid:           true,
	})

	return Invoice{
		PaymentRequest: req,
		PaymentHash:    paymentHash,
		Amount:         amount,
		Expiry:         time.Now().Add(InvoiceExpirySeconds * time.Second).Unix(),
	}, nil
}

func (fb *FakeBackend) IsInvoicePaid(paymentHash string) (bool, error) {
	idx := slices.IndexFunc(fb.Invoices, func(i fakeInvoice) bool {
		return i.PaymentHash == paymentHash
	})
	if idx == -1 {
		return false, errors.New("invoice does not exist")
	}
	return fb.Invoices[idx].Paid, nil
}

func (fb *FakeBackend) PayInvoice(paymentRequest string) (PaymentResult, error) {
	decoded, err := decodepay.Decodepay(paymentRequest)
	if err != nil {
		return PaymentResult{}, err
	}
	if decoded.Description == FailPaymentDescription {
		return PaymentResult{}, errors.New("payment failed")
	}
	return PaymentResult{PaymentHash: decoded.PaymentHash}, nil
}

func (fb *FakeBackend) DecodeInvoice(paymentRequest string) (DecodedInvoice, error) {
	decoded, err := decodepay.Decodepay(paymentRequest)
	if err != nil {
		return DecodedInvoice{}, err
	}
	return DecodedInvoice{
		PaymentHash: decoded.PaymentHash,
		AmountMsat:  uint64(decoded.MSatoshi),
		HasAmount:   decoded.MSatoshi > 0,
		Description: decoded.Description,
	}, nil
}

// CreateFakeInvoice builds a real BOLT11 invoice for tests, signed with an
// ephemeral key. Pass failPayment to mark it so PayInvoice against it fails.
func CreateFakeInvoice(amount uint64, failPayment bool) (paymentRequest string, paymentHash string, err error) {
	description := "test"
	if failPayment {
		description = FailPaymentDescription
	}
	return createFakeInvoice(amount, description)
}

func createFakeInvoice(amount uint64, description string) (string, string, error) {
	var random [32]byte
	if _, err := rand.Read(random[:]); err != nil {
		return "", "", err
	}
	paymentHash := sha256.Sum256(random[:])
	hash := hex.EncodeToString(paymentHash[:])

	invoice, err := zpay32.NewInvoice(
		&chaincfg.SigNetParams,
		paymentHash,
		time.Now(),
		zpay32.Amount(lnwire.MilliSatoshi(amount*1000)),
		zpay32.Description(description),
	)
	if err != nil {
		return "", "", err
	}

	invoiceStr, err := invoice.Encode(zpay32.MessageSigner{
		SignCompact: func(msg []byte) ([]byte, error) {
			key, err := secp256k1.GeneratePrivateKey()
			if err != nil {
				return []byte{}, err
			}
			return ecdsa.SignCompact(key, msg, true), nil
		},
	})
	if err != nil {
		return "", "", err
	}

	return invoiceStr, hash, nil
}
