package mint

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/nutmint/gonuts/cashu"
	"github.com/nutmint/gonuts/mint/storage"
	bolt "go.etcd.io/bbolt"
)

const (
	pendingInvoicesBucket = "pending_invoices"
	usedProofsBucket      = "used_proofs"
)

// BoltDB is the bbolt-backed implementation of storage.Database.
type BoltDB struct {
	bolt *bolt.DB
}

func InitBolt(path string) (*BoltDB, error) {
	db, err := bolt.Open(filepath.Join(path, "mint.db"), 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("error setting bolt db: %v", err)
	}

	boltdb := &BoltDB{bolt: db}
	if err := boltdb.initBuckets(); err != nil {
		return nil, fmt.Errorf("error setting bolt db: %v", err)
	}

	return boltdb, nil
}

func (db *BoltDB) initBuckets() error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(pendingInvoicesBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(usedProofsBucket))
		return err
	})
}

func (db *BoltDB) AddPendingInvoice(hash string, invoice storage.PendingInvoice) error {
	jsonbytes, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("invalid invoice: %v", err)
	}

	if err := db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(pendingInvoicesBucket))
		return b.Put([]byte(hash), jsonbytes)
	}); err != nil {
		return fmt.Errorf("error saving pending invoice: %v", err)
	}
	return nil
}

var ErrInvoiceNotFound = errors.New("invoice not found")

func (db *BoltDB) GetPendingInvoice(hash string) (storage.PendingInvoice, error) {
	var invoice storage.PendingInvoice
	found := false

	db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(pendingInvoicesBucket))
		invoiceBytes := b.Get([]byte(hash))
		if invoiceBytes == nil {
			return nil
		}
		if err := json.Unmarshal(invoiceBytes, &invoice); err == nil {
			found = true
		}
		return nil
	})

	if !found {
		return storage.PendingInvoice{}, ErrInvoiceNotFound
	}
	return invoice, nil
}

func (db *BoltDB) RemovePendingInvoice(hash string) error {
	if err := db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(pendingInvoicesBucket))
		return b.Delete([]byte(hash))
	}); err != nil {
		return fmt.Errorf("error removing pending invoice: %v", err)
	}
	return nil
}

func (db *BoltDB) AddUsedProofs(proofs cashu.Proofs) error {
	if err := db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(usedProofsBucket))
		for _, proof := range proofs {
			jsonProof, err := json.Marshal(proof)
			if err != nil {
				return fmt.Errorf("invalid proof: %v", err)
			}
			if err := b.Put([]byte(proof.Secret), jsonProof); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return fmt.Errorf("error saving used proofs: %v", err)
	}
	return nil
}

func (db *BoltDB) GetUsedProofs() (cashu.Proofs, error) {
	var proofs cashu.Proofs

	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(usedProofsBucket))
		return b.ForEach(func(k, v []byte) error {
			var proof cashu.Proof
			if err := json.Unmarshal(v, &proof); err != nil {
				return err
			}
			proofs = append(proofs, proof)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("error reading used proofs: %v", err)
	}
	return proofs, nil
}

func (db *BoltDB) ProofUsed(secret string) (bool, error) {
	var used bool
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(usedProofsBucket))
		used = b.Get([]byte(secret)) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("error checking used proof: %v", err)
	}
	return used, nil
}

func (db *BoltDB) Close() error {
	return db.bolt.Close()
}
