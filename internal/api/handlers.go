package api

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"CirclePool/internal/circle"
	"CirclePool/internal/covenant"
	"CirclePool/internal/logger"
	"CirclePool/internal/store"
)

type createRequest struct {
	CircleID             string `json:"circle_id"`
	ContributionPerRound uint64 `json:"contribution_per_round"`
	RoundDuration        uint64 `json:"round_duration"`
	CreatedAt            uint64 `json:"created_at"`
	CreatorPubkey        string `json:"creator_pubkey"`
}

type addMemberRequest struct {
	Pubkey      string `json:"pubkey"`
	PayoutRound uint32 `json:"payout_round"`
	Timestamp   uint64 `json:"timestamp"`
}

type contributionRequest struct {
	Pubkey    string `json:"pubkey"`
	Amount    uint64 `json:"amount"`
	Timestamp uint64 `json:"timestamp"`
	TxID      string `json:"txid"`
}

type payoutRequest struct {
	Timestamp uint64 `json:"timestamp"`
}

type stateResponse struct {
	CircleID     string `json:"circle_id"`
	State        string `json:"state"` // hex canonical encoding
	StateHash    string `json:"state_hash"`
	CurrentRound uint32 `json:"current_round"`
	TotalRounds  uint32 `json:"total_rounds"`
	CurrentPool  uint64 `json:"current_pool"`
	Members      int    `json:"members"`
	FullyFunded  bool   `json:"fully_funded"`
	IsComplete   bool   `json:"is_complete"`
}

type payoutResponse struct {
	stateResponse
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

type errorResponse struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

func (s *Server) handleCreateCircle(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := parseCircleID(req.CircleID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	creator, err := parsePubKey(req.CreatorPubkey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	if _, err := s.store.GetState(id); err == nil {
		writeError(w, http.StatusConflict, "circle_exists", errors.New("circle already exists"))
		return
	} else if !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	// The creator becomes the first member, committed to payout round 0.
	st := circle.New(id, req.ContributionPerRound, req.RoundDuration, req.CreatedAt)
	if err := st.AddMember(creator, 0, req.CreatedAt); err != nil {
		writeOpError(w, err)
		return
	}

	if err := s.store.PutState(st); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return
	}

	logger.Info("circle created",
		"circle", req.CircleID[:8],
		"contribution", req.ContributionPerRound,
	)

	writeState(w, http.StatusCreated, st)
}

func (s *Server) handleGetCircle(w http.ResponseWriter, r *http.Request) {
	id, err := parseCircleID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	st, err := s.store.GetState(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeState(w, http.StatusOK, st)
}

func (s *Server) handleGetHistorical(w http.ResponseWriter, r *http.Request) {
	id, err := parseCircleID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	hash, err := parseStateHash(r.PathValue("hash"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	st, err := s.store.GetHistorical(id, hash)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	writeState(w, http.StatusOK, st)
}

func (s *Server) handleAddMember(w http.ResponseWriter, r *http.Request) {
	var req addMemberRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pubkey, err := parsePubKey(req.Pubkey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	s.mutate(w, r, func(st *circle.CircleState) error {
		return st.AddMember(pubkey, req.PayoutRound, req.Timestamp)
	})
}

func (s *Server) handleRecordContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	pubkey, err := parsePubKey(req.Pubkey)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	txid, err := parseTxID(req.TxID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	s.mutate(w, r, func(st *circle.CircleState) error {
		return st.RecordContribution(pubkey, req.Amount, req.Timestamp, txid)
	})
}

func (s *Server) handleExecutePayout(w http.ResponseWriter, r *http.Request) {
	var req payoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	id, err := parseCircleID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	prev, err := s.store.GetState(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	next := prev.Clone()
	recipient, amount, err := next.ExecutePayout(req.Timestamp)
	if err != nil {
		writeOpError(w, err)
		return
	}

	if err := s.commit(w, prev, next); err != nil {
		return
	}

	logger.Info("payout executed",
		"circle", r.PathValue("id")[:8],
		"recipient", hex.EncodeToString(recipient[:8]),
		"amount", amount,
		"round", next.CurrentRound,
	)

	writeJSON(w, http.StatusOK, payoutResponse{
		stateResponse: buildStateResponse(next),
		Recipient:     hex.EncodeToString(recipient[:]),
		Amount:        amount,
	})
}

// mutate runs the single-writer update cycle for one operation: load the
// latest state, apply the operation to a copy, verify the transition, and
// persist the successor.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op func(*circle.CircleState) error) {
	id, err := parseCircleID(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	prev, err := s.store.GetState(id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	next := prev.Clone()
	if err := op(next); err != nil {
		writeOpError(w, err)
		return
	}

	if err := s.commit(w, prev, next); err != nil {
		return
	}

	writeState(w, http.StatusOK, next)
}

// commit verifies prev to next and persists next. On failure it writes the
// HTTP error itself and returns the error so callers stop.
func (s *Server) commit(w http.ResponseWriter, prev, next *circle.CircleState) error {
	if err := covenant.VerifyChain(prev, next); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "transition_rejected", err)
		return err
	}

	if err := s.store.PutState(next); err != nil {
		writeError(w, http.StatusInternalServerError, "internal", err)
		return err
	}

	return nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	body := http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return false
	}
	return true
}

func writeState(w http.ResponseWriter, status int, st *circle.CircleState) {
	writeJSON(w, status, buildStateResponse(st))
}

func buildStateResponse(st *circle.CircleState) stateResponse {
	data, err := st.Encode()
	if err != nil {
		data = nil
	}
	hash := st.StateHash()

	return stateResponse{
		CircleID:     hex.EncodeToString(st.CircleID[:]),
		State:        hex.EncodeToString(data),
		StateHash:    hex.EncodeToString(hash[:]),
		CurrentRound: st.CurrentRound,
		TotalRounds:  st.TotalRounds,
		CurrentPool:  st.CurrentPool,
		Members:      len(st.Members),
		FullyFunded:  st.IsRoundFullyFunded(),
		IsComplete:   st.IsComplete,
	}
}

// writeOpError maps a rejected core operation onto an HTTP status.
func writeOpError(w http.ResponseWriter, err error) {
	var opErr *circle.OpError
	if errors.As(err, &opErr) {
		status := http.StatusConflict
		if opErr.Code == circle.CodeMemberNotFound {
			status = http.StatusNotFound
		}
		writeError(w, status, opErr.Code.String(), err)
		return
	}

	writeError(w, http.StatusBadRequest, "bad_request", err)
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", err)
		return
	}
	writeError(w, http.StatusInternalServerError, "internal", err)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Code: code, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("write response", "error", err)
	}
}
