// Package storage defines the mint's persistence collaborator: pending
// invoices keyed by their random hash, and the set of used proofs that
// guards against double-spending.
package storage

import "github.com/nutmint/gonuts/cashu"

// Database is the mint's storage collaborator. Every operation is expected
// to be atomic; the mint does not provide its own transaction framing
// around these calls.
type Database interface {
	AddPendingInvoice(hash string, invoice PendingInvoice) error
	GetPendingInvoice(hash string) (PendingInvoice, error)
	RemovePendingInvoice(hash string) error

	AddUsedProofs(proofs cashu.Proofs) error
	GetUsedProofs() (cashu.Proofs, error)
	ProofUsed(secret string) (bool, error)

	Close() error
}

// PendingInvoice is the mint's record of a Lightning invoice issued in
// response to a mint request, kept until the invoice is paid and outputs
// are signed (or it expires).
type PendingInvoice struct {
	Hash           string
	PaymentRequest string
	PaymentHash    string
	Amount         uint64
	Expiry         int64
}
