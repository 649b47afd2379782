// Package client talks to a circled daemon over HTTP. It is used by the
// CLI's remote mode and by integration tests.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client connects to a circled daemon.
type Client struct {
	baseURL string       // baseURL is the daemon address, e.g. "http://127.0.0.1:8080"
	http    *http.Client // http is the underlying HTTP client
}

// New creates a client for the given daemon address. A bare host:port is
// promoted to http://.
func New(nodeAddr string) *Client {
	if !strings.HasPrefix(nodeAddr, "http://") && !strings.HasPrefix(nodeAddr, "https://") {
		nodeAddr = "http://" + nodeAddr
	}

	return &Client{
		baseURL: strings.TrimRight(nodeAddr, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CircleStatus mirrors the daemon's state response.
type CircleStatus struct {
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

// PayoutResult is the daemon's payout response.
type PayoutResult struct {
	CircleStatus
	Recipient string `json:"recipient"`
	Amount    uint64 `json:"amount"`
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status  int    // Status is the HTTP status code
	Code    string // Code is the machine-readable rejection code
	Message string // Message is the human-readable cause
}

func (e *APIError) Error() string {
	return fmt.Sprintf("daemon rejected request (%d %s): %s", e.Status, e.Code, e.Message)
}

// CreateCircle creates a circle with the creator as its first member.
func (c *Client) CreateCircle(circleID string, contributionPerRound, roundDuration, createdAt uint64, creatorPubkey string) (*CircleStatus, error) {
	var out CircleStatus
	err := c.do("POST", "/circles", map[string]any{
		"circle_id":              circleID,
		"contribution_per_round": contributionPerRound,
		"round_duration":         roundDuration,
		"created_at":             createdAt,
		"creator_pubkey":         creatorPubkey,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCircle returns the latest state of a circle.
func (c *Client) GetCircle(circleID string) (*CircleStatus, error) {
	var out CircleStatus
	if err := c.do("GET", "/circles/"+circleID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetHistorical returns a past state of a circle by its state hash.
func (c *Client) GetHistorical(circleID, stateHash string) (*CircleStatus, error) {
	var out CircleStatus
	if err := c.do("GET", "/circles/"+circleID+"/history/"+stateHash, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddMember adds a member to a circle that has not started.
func (c *Client) AddMember(circleID, pubkey string, payoutRound uint32, timestamp uint64) (*CircleStatus, error) {
	var out CircleStatus
	err := c.do("POST", "/circles/"+circleID+"/members", map[string]any{
		"pubkey":       pubkey,
		"payout_round": payoutRound,
		"timestamp":    timestamp,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// RecordContribution records one member's contribution for the current round.
func (c *Client) RecordContribution(circleID, pubkey string, amount, timestamp uint64, txid string) (*CircleStatus, error) {
	var out CircleStatus
	err := c.do("POST", "/circles/"+circleID+"/contributions", map[string]any{
		"pubkey":    pubkey,
		"amount":    amount,
		"timestamp": timestamp,
		"txid":      txid,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ExecutePayout pays out the current round's pool.
func (c *Client) ExecutePayout(circleID string, timestamp uint64) (*PayoutResult, error) {
	var out PayoutResult
	err := c.do("POST", "/circles/"+circleID+"/payout", map[string]any{
		"timestamp": timestamp,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(method, path string, body, dst any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("encode request:\n%w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s:\n%w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr struct {
			Code  string `json:"code"`
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
			return &APIError{Status: resp.StatusCode, Code: "unknown", Message: "unparseable error body"}
		}
		return &APIError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Error}
	}

	return json.NewDecoder(resp.Body).Decode(dst)
}
