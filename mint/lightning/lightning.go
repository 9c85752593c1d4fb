// Package lightning defines the mint's Lightning backend collaborator and
// provides two implementations: a real REST+macaroon LND client and an
// in-process fake used by tests.
package lightning

// Client is the mint's Lightning backend collaborator. All methods may
// fail with a transport/backend error, which the mint surfaces as
// LightningBackendErr.
type Client interface {
	CreateInvoice(amount uint64) (Invoice, error)
	IsInvoicePaid(paymentHash string) (bool, error)
	PayInvoice(paymentRequest string) (PaymentResult, error)
	DecodeInvoice(paymentRequest string) (DecodedInvoice, error)
}

type Invoice struct {
	PaymentRequest string
	PaymentHash    string
	Amount         uint64
	Expiry         int64
}

type PaymentResult struct {
	PaymentHash string
}

type DecodedInvoice struct {
	PaymentHash  string
	AmountMsat   uint64
	HasAmount    bool
	Description  string
}

// InvoiceExpirySeconds is the mint-side Lightning invoice expiry, fixed by
// the governing spec independent of any request timeout.
const InvoiceExpirySeconds = 10_000
