// api.go - REST surface over the pool.
//
// Exposes endpoints for commit and reveal submission, root publication, and
// journal reads. Field elements travel as decimal strings. All endpoints
// validate input; rejected operations map onto HTTP status codes by error
// class: validation and cryptographic failures 400, authorization 403,
// consistency 409.

package shield

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
)

// CommitRequestBody is the JSON body of POST /commit.
type CommitRequestBody struct {
	Caller     string `json:"caller"`
	Asset      string `json:"asset"`
	Commitment string `json:"commitment"`
	Amount     string `json:"amount"`
}

// CommitResponse reports the assigned leaf index.
type CommitResponse struct {
	LeafIndex uint64 `json:"leaf_index"`
}

// WireProof is the JSON proof encoding: A and C as (x, y), B as
// ((x0, x1), (y0, y1)).
type WireProof struct {
	A [2]string    `json:"a"`
	B [2][2]string `json:"b"`
	C [2]string    `json:"c"`
}

// RevealRequestBody is the JSON body of POST /reveal.
type RevealRequestBody struct {
	Asset  string    `json:"asset"`
	Proof  WireProof `json:"proof"`
	Inputs struct {
		Root             string `json:"root"`
		Nullifier        string `json:"nullifier"`
		Amount           string `json:"amount"`
		Recipient        string `json:"recipient"`
		ChangeCommitment string `json:"change_commitment"`
		AssetID          string `json:"asset_id"`
	} `json:"inputs"`
}

// PublishRootRequestBody is the JSON body of POST /roots.
type PublishRootRequestBody struct {
	Publisher string `json:"publisher"`
	NewRoot   string `json:"new_root"`
	LeafCount uint64 `json:"leaf_count"`
}

// RootResponse reports the latest root and leaf count.
type RootResponse struct {
	Root      string `json:"root"`
	LeafCount uint64 `json:"leaf_count"`
}

// Server serves the pool over HTTP.
type Server struct {
	pool    *Pool
	acc     *Accumulator
	journal *Journal
	log     zerolog.Logger
}

// NewServer builds the REST server.
func NewServer(pool *Pool, acc *Accumulator, journal *Journal, log zerolog.Logger) *Server {
	return &Server{pool: pool, acc: acc, journal: journal, log: log}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /commit", s.handleCommit)
	mux.HandleFunc("POST /reveal", s.handleReveal)
	mux.HandleFunc("POST /roots", s.handlePublishRoot)
	mux.HandleFunc("GET /roots/latest", s.handleLatestRoot)
	mux.HandleFunc("GET /records", s.handleRecords)
	return mux
}

func (s *Server) handleCommit(w http.ResponseWriter, r *http.Request) {
	var body CommitRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	caller, err := parseBig(body.Caller)
	if err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("caller: %w", err))
		return
	}
	asset, err := parseBig(body.Asset)
	if err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("asset: %w", err))
		return
	}
	commitment, err := parseBig(body.Commitment)
	if err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("commitment: %w", err))
		return
	}
	amount, err := parseBig(body.Amount)
	if err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("amount: %w", err))
		return
	}
	leafIndex, err := s.pool.Commit(caller, asset, commitment, amount)
	if err != nil {
		httpError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, CommitResponse{LeafIndex: leafIndex})
}

func (s *Server) handleReveal(w http.ResponseWriter, r *http.Request) {
	var body RevealRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	req, err := body.toRequest()
	if err != nil {
		httpError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.pool.Reveal(*req); err != nil {
		httpError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "revealed"})
}

func (s *Server) handlePublishRoot(w http.ResponseWriter, r *http.Request) {
	var body PublishRootRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	publisher, err := parseBig(body.Publisher)
	if err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("publisher: %w", err))
		return
	}
	newRoot, err := parseBig(body.NewRoot)
	if err != nil {
		httpError(w, http.StatusBadRequest, fmt.Errorf("new_root: %w", err))
		return
	}
	if err := s.acc.PublishRoot(publisher, newRoot, body.LeafCount); err != nil {
		httpError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, RootResponse{Root: newRoot.String(), LeafCount: body.LeafCount})
}

func (s *Server) handleLatestRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, RootResponse{
		Root:      s.acc.LatestRoot().String(),
		LeafCount: s.acc.LeafCount(),
	})
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	from := 0
	if q := r.URL.Query().Get("from"); q != "" {
		v, err := strconv.Atoi(q)
		if err != nil || v < 0 {
			httpError(w, http.StatusBadRequest, errors.New("invalid from offset"))
			return
		}
		from = v
	}
	records := s.journal.RecordsFrom(from)
	if records == nil {
		records = []Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

func (b *RevealRequestBody) toRequest() (*RevealRequest, error) {
	asset, err := parseBig(b.Asset)
	if err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}
	var a, c [2]*big.Int
	var bb [2][2]*big.Int
	for i := 0; i < 2; i++ {
		if a[i], err = parseBig(b.Proof.A[i]); err != nil {
			return nil, fmt.Errorf("proof a: %w", err)
		}
		if c[i], err = parseBig(b.Proof.C[i]); err != nil {
			return nil, fmt.Errorf("proof c: %w", err)
		}
		for j := 0; j < 2; j++ {
			if bb[i][j], err = parseBig(b.Proof.B[i][j]); err != nil {
				return nil, fmt.Errorf("proof b: %w", err)
			}
		}
	}
	proof, err := ProofFromWire(a, bb, c)
	if err != nil {
		return nil, err
	}
	inputs := PublicInputs{}
	if inputs.Root, err = parseBig(b.Inputs.Root); err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	if inputs.Nullifier, err = parseBig(b.Inputs.Nullifier); err != nil {
		return nil, fmt.Errorf("nullifier: %w", err)
	}
	if inputs.Amount, err = parseBig(b.Inputs.Amount); err != nil {
		return nil, fmt.Errorf("amount: %w", err)
	}
	if inputs.Recipient, err = parseBig(b.Inputs.Recipient); err != nil {
		return nil, fmt.Errorf("recipient: %w", err)
	}
	if inputs.ChangeCommitment, err = parseBig(b.Inputs.ChangeCommitment); err != nil {
		return nil, fmt.Errorf("change_commitment: %w", err)
	}
	if inputs.AssetID, err = parseBig(b.Inputs.AssetID); err != nil {
		return nil, fmt.Errorf("asset_id: %w", err)
	}
	return &RevealRequest{Asset: asset, Proof: proof, Inputs: inputs}, nil
}

func parseBig(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("not a decimal integer: %q", s)
	}
	return v, nil
}

// statusFor maps pool errors onto HTTP status codes by error class.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotPublisher),
		errors.Is(err, ErrNotPauser),
		errors.Is(err, ErrNotAdmin),
		errors.Is(err, ErrAssetNotAuthorized),
		errors.Is(err, ErrPaused),
		errors.Is(err, ErrCooldownActive):
		return http.StatusForbidden
	case errors.Is(err, ErrDuplicateCommitment),
		errors.Is(err, ErrAccumulatorFull),
		errors.Is(err, ErrUnknownRoot),
		errors.Is(err, ErrLeafCountAhead),
		errors.Is(err, ErrRootTooStale),
		errors.Is(err, ErrNullifierSpent),
		errors.Is(err, ErrAssetMismatch):
		return http.StatusConflict
	case errors.Is(err, ErrVerifierFault),
		errors.Is(err, ErrReleaseFailed):
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

func httpError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
