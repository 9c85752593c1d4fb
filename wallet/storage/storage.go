// Package storage defines the wallet's persistence collaborator: the
// proof set and a cache of the mint's keyset.
package storage

import "github.com/nutmint/gonuts/cashu"

// LocalStore is the wallet's storage collaborator. Additions and
// deletions performed in the same logical wallet operation should be
// durable before the call returns.
type LocalStore interface {
	AddProofs(cashu.Proofs) error
	GetProofs() cashu.Proofs
	DeleteProofs(secrets []string) error

	SaveKeysetId(id string) error
	GetKeysetId() (string, error)

	Close() error
}
