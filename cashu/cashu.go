// Package cashu contains the core structs and logic
// of the Cashu protocol.
package cashu

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

type Unit int

const (
	Sat Unit = iota

	BOLT11_METHOD = "bolt11"
)

func (unit Unit) String() string {
	switch unit {
	case Sat:
		return "sat"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidTokenV3 = errors.New("invalid V3 token")
	ErrInvalidUnit    = errors.New("invalid unit")
)

// BlindedMessage is the wallet's blinded request for a signature on one
// denomination. See https://github.com/cashubtc/nuts/blob/main/00.md#blindedmessage
type BlindedMessage struct {
	Amount uint64 `json:"amount"`
	B_     string `json:"B_"`
}

func NewBlindedMessage(amount uint64, B_ *secp256k1.PublicKey) BlindedMessage {
	return BlindedMessage{Amount: amount, B_: hex.EncodeToString(B_.SerializeCompressed())}
}

// SortBlindedMessages sorts blindedMessages ascending by amount, permuting
// secrets and rs in lockstep so index i still refers to the same blinding
// session across all three slices.
func SortBlindedMessages(blindedMessages BlindedMessages, secrets []string, rs []*secp256k1.PrivateKey) {
	for i := 0; i < len(blindedMessages)-1; i++ {
		for j := i + 1; j < len(blindedMessages); j++ {
			if blindedMessages[i].Amount > blindedMessages[j].Amount {
				blindedMessages[i], blindedMessages[j] = blindedMessages[j], blindedMessages[i]
				secrets[i], secrets[j] = secrets[j], secrets[i]
				rs[i], rs[j] = rs[j], rs[i]
			}
		}
	}
}

type BlindedMessages []BlindedMessage

func (bm BlindedMessages) Amount() uint64 {
	var totalAmount uint64 = 0
	for _, msg := range bm {
		totalAmount += msg.Amount
	}
	return totalAmount
}

// BlindedSignature is the mint's signature over a BlindedMessage.
// See https://github.com/cashubtc/nuts/blob/main/00.md#blindsignature
type BlindedSignature struct {
	Amount uint64 `json:"amount"`
	C_     string `json:"C_"`
	Id     string `json:"id,omitempty"`
}

type BlindedSignatures []BlindedSignature

func (bs BlindedSignatures) Amount() uint64 {
	var totalAmount uint64 = 0
	for _, sig := range bs {
		totalAmount += sig.Amount
	}
	return totalAmount
}

// Proof is an unblinded signature plus the secret it was computed over: a
// bearer coin. See https://github.com/cashubtc/nuts/blob/main/00.md#proof
type Proof struct {
	Amount uint64 `json:"amount"`
	Id     string `json:"id"`
	Secret string `json:"secret"`
	C      string `json:"C"`
}

type Proofs []Proof

// Amount returns the total amount from the array of Proof
func (proofs Proofs) Amount() uint64 {
	var totalAmount uint64 = 0
	for _, proof := range proofs {
		totalAmount += proof.Amount
	}
	return totalAmount
}

// Cashu token. See https://github.com/cashubtc/nuts/blob/main/00.md#token-format
type Token interface {
	Proofs() Proofs
	Mint() string
	Amount() uint64
	Serialize() (string, error)
}

func DecodeToken(tokenstr string) (Token, error) {
	return DecodeTokenV3(tokenstr)
}

type TokenV3 struct {
	Token []TokenV3Proof `json:"token"`
	Unit  string         `json:"unit"`
	Memo  string         `json:"memo,omitempty"`
}

type TokenV3Proof struct {
	Mint   string `json:"mint"`
	Proofs Proofs `json:"proofs"`
}

func NewTokenV3(proofs Proofs, mint string, unit Unit) (*TokenV3, error) {
	if unit != Sat {
		return nil, ErrInvalidUnit
	}

	tokenProof := TokenV3Proof{Mint: mint, Proofs: proofs}
	return &TokenV3{Token: []TokenV3Proof{tokenProof}, Unit: unit.String()}, nil
}

// DecodeTokenV3 rejects any prefix other than "cashuA". The base64 payload
// is accepted padded or unpadded, since §6 specifies no-padding on encode
// but the wire may carry either.
func DecodeTokenV3(tokenstr string) (*TokenV3, error) {
	if len(tokenstr) < 6 {
		return nil, ErrInvalidTokenV3
	}
	prefixVersion := tokenstr[:6]
	base64Token := tokenstr[6:]

	if prefixVersion != "cashuA" {
		return nil, ErrInvalidTokenV3
	}

	tokenBytes, err := base64.RawURLEncoding.DecodeString(base64Token)
	if err != nil {
		tokenBytes, err = base64.URLEncoding.DecodeString(base64Token)
		if err != nil {
			return nil, fmt.Errorf("error decoding token: %v", err)
		}
	}

	var token TokenV3
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("error unmarshaling token: %v", err)
	}
	if len(token.Token) == 0 {
		return nil, ErrInvalidTokenV3
	}

	return &token, nil
}

func (t TokenV3) Proofs() Proofs {
	proofs := make(Proofs, 0)
	for _, tokenProof := range t.Token {
		proofs = append(proofs, tokenProof.Proofs...)
	}
	return proofs
}

func (t TokenV3) Mint() string {
	return t.Token[0].Mint
}

func (t TokenV3) Amount() uint64 {
	var totalAmount uint64 = 0
	for _, tokenProof := range t.Token {
		for _, proof := range tokenProof.Proofs {
			totalAmount += proof.Amount
		}
	}
	return totalAmount
}

// Serialize renders the token as "cashuA" followed by the unpadded
// base64url encoding of its JSON form.
func (t TokenV3) Serialize() (string, error) {
	jsonBytes, err := json.Marshal(t)
	if err != nil {
		return "", err
	}

	return "cashuA" + base64.RawURLEncoding.EncodeToString(jsonBytes), nil
}

type CashuErrCode int

// Error represents an error to be returned by the mint
type Error struct {
	Detail string       `json:"error"`
	Code   CashuErrCode `json:"code"`
}

func BuildCashuError(detail string, code CashuErrCode) *Error {
	return &Error{Detail: detail, Code: code}
}

func (e Error) Error() string {
	return e.Detail
}

// Error codes. The taxonomy groups: validation (never retried), policy
// (caller-correctable), backend (upper layer decides retry), polling (not
// an error, a retry signal), and fatal (abort at startup).
const (
	StandardErrCode CashuErrCode = 10000
	// internal-only: never returned in a response, used to tag where an
	// error originated so it can be logged appropriately.
	DBErrCode               CashuErrCode = 1
	LightningBackendErrCode CashuErrCode = 2

	InvalidProofErrCode     CashuErrCode = 10003
	ProofAlreadyUsedErrCode CashuErrCode = 11001

	UnknownDenominationErrCode CashuErrCode = 12001

	SplitAmountTooHighErrCode     CashuErrCode = 11002
	SplitOutputsMalformedErrCode  CashuErrCode = 11003
	SplitAmountMismatchErrCode    CashuErrCode = 11004
	InvoiceNotFoundErrCode        CashuErrCode = 20001
	InvoiceAmountTooLowErrCode    CashuErrCode = 20002
	InvoiceMissingAmountErrCode   CashuErrCode = 20003
	DecodeInvoiceErrCode          CashuErrCode = 20004
	NotEnoughTokensErrCode        CashuErrCode = 13001
	InvalidTokenErrCode           CashuErrCode = 13002
)

var (
	StandardErr              = Error{Detail: "mint is currently unable to process request", Code: StandardErrCode}
	EmptyBodyErr             = Error{Detail: "request body cannot be empty", Code: StandardErrCode}
	ProofAlreadyUsedErr      = Error{Detail: "proof already used", Code: ProofAlreadyUsedErrCode}
	InvalidProofErr          = Error{Detail: "invalid proof", Code: InvalidProofErrCode}
	NoProofsProvided         = Error{Detail: "no proofs provided", Code: InvalidProofErrCode}
	DuplicateProofs          = Error{Detail: "duplicate proofs", Code: InvalidProofErrCode}
	UnknownDenominationErr   = Error{Detail: "unknown denomination", Code: UnknownDenominationErrCode}
	SplitAmountTooHighErr    = Error{Detail: "split amount is higher than the total sum of proofs", Code: SplitAmountTooHighErrCode}
	SplitOutputsMalformedErr = Error{Detail: "split of outputs is not as expected", Code: SplitOutputsMalformedErrCode}
	SplitAmountMismatchErr   = Error{Detail: "split amount mismatch", Code: SplitAmountMismatchErrCode}
	InvoiceNotFoundErr       = Error{Detail: "invoice not found", Code: InvoiceNotFoundErrCode}
	// InvoiceNotPaidErr is the distinguished polling-retry signal; its
	// detail string is part of the wire contract and must stay verbatim.
	InvoiceNotPaidErr     = Error{Detail: "Lightning invoice not paid yet.", Code: StandardErrCode}
	InvoiceAmountTooLowErr  = Error{Detail: "invoice amount is too low", Code: InvoiceAmountTooLowErrCode}
	InvoiceMissingAmountErr = Error{Detail: "invoice is missing an amount", Code: InvoiceMissingAmountErrCode}
	DecodeInvoiceErr        = Error{Detail: "unable to decode invoice", Code: DecodeInvoiceErrCode}
	NotEnoughTokensErr      = Error{Detail: "not enough tokens", Code: NotEnoughTokensErrCode}
	InvalidTokenErr         = Error{Detail: "invalid token", Code: InvalidTokenErrCode}
)

// AmountSplit returns the binary decomposition of amount in ascending
// order, e.g. 13 -> [1, 4, 8]. AmountSplit(0) == [].
func AmountSplit(amount uint64) []uint64 {
	rv := make([]uint64, 0)
	for pos := 0; amount > 0; pos++ {
		if amount&1 == 1 {
			rv = append(rv, 1<<pos)
		}
		amount >>= 1
	}
	return rv
}

func CheckDuplicateProofs(proofs Proofs) bool {
	proofsMap := make(map[string]bool, len(proofs))

	for _, proof := range proofs {
		if proofsMap[proof.Secret] {
			return true
		}
		proofsMap[proof.Secret] = true
	}

	return false
}

// GenerateRandomHash returns hex(SHA-256(32 random bytes)), used to key a
// mint's pending invoices.
func GenerateRandomHash() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", err
	}
	hash := sha256.Sum256(randomBytes)
	return hex.EncodeToString(hash[:]), nil
}

func Max(x, y uint64) uint64 {
	if x > y {
		return x
	}
	return y
}

func Count(amounts []uint64, amount uint64) uint {
	var count uint = 0
	for _, amt := range amounts {
		if amt == amount {
			count++
		}
	}
	return count
}
