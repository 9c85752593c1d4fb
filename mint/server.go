package mint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/nutmint/gonuts/cashu"
	"github.com/nutmint/gonuts/mint/lightning"
	"github.com/gorilla/mux"
)

// Server is the mint's plain-JSON HTTP transport, exposing the endpoint
// table in the governing spec.
type Server struct {
	mint   *Mint
	router *mux.Router
	logger *slog.Logger
}

func SetupMintServer(config Config, lightningClient lightning.Client) (*Server, error) {
	mint, err := LoadMint(config, lightningClient)
	if err != nil {
		return nil, err
	}

	server := &Server{mint: mint, logger: mint.logger}
	server.setupRoutes()
	return server, nil
}

func (s *Server) setupRoutes() {
	r := mux.NewRouter()
	r.HandleFunc("/keys", s.getKeys).Methods(http.MethodGet)
	r.HandleFunc("/keysets", s.getKeysets).Methods(http.MethodGet)
	r.HandleFunc("/mint", s.getMint).Methods(http.MethodGet)
	r.HandleFunc("/mint", s.postMint).Methods(http.MethodPost)
	r.HandleFunc("/split", s.postSplit).Methods(http.MethodPost)
	r.HandleFunc("/melt", s.postMelt).Methods(http.MethodPost)
	r.HandleFunc("/checkfees", s.postCheckFees).Methods(http.MethodPost)
	s.router = r
}

func (s *Server) Start(port string) error {
	s.logger.Info(fmt.Sprintf("mint listening on port %v", port))
	return http.ListenAndServe(":"+port, s.router)
}

func (s *Server) getKeys(w http.ResponseWriter, r *http.Request) {
	response := s.mint.Keyset().PublicKeys()
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) getKeysets(w http.ResponseWriter, r *http.Request) {
	response := cashu.GetKeysetsResponse{Keysets: []string{s.mint.Keyset().Id}}
	writeJSON(w, http.StatusOK, response)
}

func (s *Server) getMint(w http.ResponseWriter, r *http.Request) {
	amountStr := r.URL.Query().Get("amount")
	amount, err := strconv.ParseUint(amountStr, 10, 64)
	if err != nil {
		writeError(w, cashu.BuildCashuError("invalid amount", cashu.StandardErrCode))
		return
	}

	pr, hash, err := s.mint.CreateInvoice(amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cashu.GetMintResponse{PR: pr, Hash: hash})
}

func (s *Server) postMint(w http.ResponseWriter, r *http.Request) {
	hash := r.URL.Query().Get("hash")
	if hash == "" {
		writeError(w, cashu.BuildCashuError("hash cannot be empty", cashu.StandardErrCode))
		return
	}

	var req cashu.PostMintRequest
	if err := decodeJsonReqBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sigs, err := s.mint.MintTokens(hash, req.Outputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cashu.PostMintResponse{Promises: sigs})
}

func (s *Server) postSplit(w http.ResponseWriter, r *http.Request) {
	var req cashu.PostSplitRequest
	if err := decodeJsonReqBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	snd, fst, err := s.mint.Split(req.Amount, req.Proofs, req.Outputs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cashu.PostSplitResponse{Fst: fst, Snd: snd})
}

func (s *Server) postMelt(w http.ResponseWriter, r *http.Request) {
	var req cashu.PostMeltRequest
	if err := decodeJsonReqBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	paid, preimage, change, err := s.mint.Melt(req.PR, req.Proofs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cashu.PostMeltResponse{Paid: paid, Preimage: preimage, Change: change})
}

func (s *Server) postCheckFees(w http.ResponseWriter, r *http.Request) {
	var req cashu.PostCheckFeesRequest
	if err := decodeJsonReqBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	fee, err := s.mint.CheckFees(req.PR)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cashu.PostCheckFeesResponse{Fee: fee})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var cashuErr cashu.Error
	switch e := err.(type) {
	case cashu.Error:
		cashuErr = e
	case *cashu.Error:
		cashuErr = *e
	default:
		cashuErr = *cashu.BuildCashuError(err.Error(), cashu.StandardErrCode)
	}
	writeJSON(w, http.StatusBadRequest, cashuErr)
}

func decodeJsonReqBody(req *http.Request, dst any) error {
	ct := req.Header.Get("Content-Type")
	if ct != "" {
		mediaType := strings.ToLower(strings.Split(ct, ";")[0])
		if mediaType != "application/json" {
			return cashu.BuildCashuError("Content-Type header is not application/json", cashu.StandardErrCode)
		}
	}

	dec := json.NewDecoder(req.Body)
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError

		switch {
		case errors.As(err, &syntaxErr):
			msg := fmt.Sprintf("bad json at %d", syntaxErr.Offset)
			return cashu.BuildCashuError(msg, cashu.StandardErrCode)

		case errors.As(err, &typeErr):
			msg := fmt.Sprintf("invalid %v for field %q", typeErr.Value, typeErr.Field)
			return cashu.BuildCashuError(msg, cashu.StandardErrCode)

		case errors.Is(err, io.EOF):
			return cashu.EmptyBodyErr

		case strings.HasPrefix(err.Error(), "json: unknown field "):
			invalidField := strings.TrimPrefix(err.Error(), "json: unknown field ")
			msg := fmt.Sprintf("request body contains unknown field %s", invalidField)
			return cashu.BuildCashuError(msg, cashu.StandardErrCode)

		default:
			return cashu.BuildCashuError(err.Error(), cashu.StandardErrCode)
		}
	}

	return nil
}
