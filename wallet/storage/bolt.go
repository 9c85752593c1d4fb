package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nutmint/gonuts/cashu"
	bolt "go.etcd.io/bbolt"
)

const (
	proofsBucket = "proofs"
	keysetBucket = "keyset"
	keysetIdKey  = "id"
)

type BoltDB struct {
	bolt *bolt.DB
}

func InitBolt(path string) (*BoltDB, error) {
	db, err := bolt.Open(filepath.Join(path, "wallet.db"), 0600, nil)
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
		if _, err := tx.CreateBucketIfNotExists([]byte(proofsBucket)); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists([]byte(keysetBucket))
		return err
	})
}

func (db *BoltDB) Close() error {
	return db.bolt.Close()
}

func (db *BoltDB) AddProofs(proofs cashu.Proofs) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(proofsBucket))
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
	})
}

func (db *BoltDB) GetProofs() cashu.Proofs {
	proofs := cashu.Proofs{}

	db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(proofsBucket))
		return b.ForEach(func(k, v []byte) error {
			var proof cashu.Proof
			if err := json.Unmarshal(v, &proof); err != nil {
				return err
			}
			proofs = append(proofs, proof)
			return nil
		})
	})

	return proofs
}

func (db *BoltDB) DeleteProofs(secrets []string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(proofsBucket))
		for _, secret := range secrets {
			if err := b.Delete([]byte(secret)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (db *BoltDB) SaveKeysetId(id string) error {
	return db.bolt.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(keysetBucket))
		return b.Put([]byte(keysetIdKey), []byte(id))
	})
}

func (db *BoltDB) GetKeysetId() (string, error) {
	var id string
	err := db.bolt.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(keysetBucket))
		id = string(b.Get([]byte(keysetIdKey)))
		return nil
	})
	return id, err
}
