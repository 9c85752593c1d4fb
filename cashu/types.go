package cashu

// Request/response records for the mint's wire protocol (§6 of the
// governing spec): one type per HTTP endpoint body.

type GetKeysetsResponse struct {
	Keysets []string `json:"keysets"`
}

type GetMintResponse struct {
	PR   string `json:"pr"`
	Hash string `json:"hash"`
}

type PostMintRequest struct {
	Outputs BlindedMessages `json:"outputs"`
}

type PostMintResponse struct {
	Promises BlindedSignatures `json:"promises"`
}

type PostSplitRequest struct {
	Amount  uint64          `json:"amount"`
	Proofs  Proofs          `json:"proofs"`
	Outputs BlindedMessages `json:"outputs"`
}

type PostSplitResponse struct {
	Fst BlindedSignatures `json:"fst"`
	Snd BlindedSignatures `json:"snd"`
}

type PostMeltRequest struct {
	PR      string          `json:"pr"`
	Proofs  Proofs          `json:"proofs"`
	Outputs BlindedMessages `json:"outputs"`
}

type PostMeltResponse struct {
	Paid     bool              `json:"paid"`
	Preimage string            `json:"preimage,omitempty"`
	Change   BlindedSignatures `json:"change"`
}

type PostCheckFeesRequest struct {
	PR string `json:"pr"`
}

type PostCheckFeesResponse struct {
	Fee uint64 `json:"fee"`
}
