package storage

import (
	"testing"

	"github.com/nutmint/gonuts/cashu"
)

func TestBoltProofs(t *testing.T) {
	db, err := InitBolt(t.TempDir())
	if err != nil {
		t.Fatalf("InitBolt: %v", err)
	}
	defer db.Close()

	proofs := cashu.Proofs{
		{Amount: 4, Id: "keysetid", Secret: "secret-a", C: "02aa"},
		{Amount: 8, Id: "keysetid", Secret: "secret-b", C: "02bb"},
	}
	if err := db.AddProofs(proofs); err != nil {
		t.Fatalf("AddProofs: %v", err)
	}

	got := db.GetProofs()
	if len(got) != 2 {
		t.Fatalf("expected 2 proofs, got %v", len(got))
	}

	if err := db.DeleteProofs([]string{"secret-a"}); err != nil {
		t.Fatalf("DeleteProofs: %v", err)
	}
	got = db.GetProofs()
	if len(got) != 1 || got[0].Secret != "secret-b" {
		t.Fatalf("expected only secret-b to remain, got %+v", got)
	}
}

func TestBoltKeysetId(t *testing.T) {
	db, err := InitBolt(t.TempDir())
	if err != nil {
		t.Fatalf("InitBolt: %v", err)
	}
	defer db.Close()

	if err := db.SaveKeysetId("abc123"); err != nil {
		t.Fatalf("SaveKeysetId: %v", err)
	}
	id, err := db.GetKeysetId()
	if err != nil {
		t.Fatalf("GetKeysetId: %v", err)
	}
	if id != "abc123" {
		t.Fatalf("expected 'abc123', got %v", id)
	}
}
