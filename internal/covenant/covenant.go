// Package covenant is the ledger-facing boundary of the circle state machine:
// the entry check run for every spend carrying the contract, and the deeper
// chain verification an external driver runs before accepting a successor
// state.
package covenant

import (
	"errors"
	"fmt"

	"CirclePool/internal/circle"
)

// AppID identifies this contract in transaction outputs.
type AppID [32]byte

// Output is one transaction output as seen at the ledger boundary: the
// payloads attached to it, keyed by app identity.
type Output struct {
	Payloads map[AppID][]byte
}

// ErrNoEntry is returned when no output carries a state for the app.
var ErrNoEntry = errors.New("no state payload for app in outputs")

// CheckEntry confirms that a non-empty encoded state is attached to the app
// identity in at least one transaction output. The check is deliberately
// shallow; structural and transition validation belong to VerifyChain and
// run outside the covenant path.
func CheckEntry(app AppID, outs []Output) error {
	for i := range outs {
		if data, ok := outs[i].Payloads[app]; ok && len(data) > 0 {
			return nil
		}
	}
	return ErrNoEntry
}

// VerifyChain checks that next is a legal, hash-linked successor of prev.
// On top of the shallow transition rule it validates next as a standalone
// state, recomputes the expected pool delta for same-round moves, and for
// round-advancing moves replays the payout to confirm PrevStateHash anchors
// the state prev actually reached.
func VerifyChain(prev, next *circle.CircleState) error {
	if err := prev.ValidateTransition(next); err != nil {
		return err
	}

	if err := next.Validate(); err != nil {
		return fmt.Errorf("successor state invalid:\n%w", err)
	}

	if next.CurrentRound == prev.CurrentRound {
		var delta uint64
		for i := range next.Members {
			m := &next.Members[i]
			if !memberContributedIn(m, next.CurrentRound) {
				continue
			}
			if p := prev.Member(m.PubKey); p == nil || !memberContributedIn(p, prev.CurrentRound) {
				delta += contributionAmount(m, next.CurrentRound)
			}
		}

		if next.CurrentPool-prev.CurrentPool != delta {
			return &circle.TransitionError{
				Reason: fmt.Sprintf("pool grew by %d but new contributions sum to %d",
					next.CurrentPool-prev.CurrentPool, delta),
			}
		}

		return nil
	}

	// Round advanced: exactly one payout happened between the two states.
	replay := prev.Clone()
	if _, _, err := replay.ExecutePayout(next.RoundStartedAt); err != nil {
		return fmt.Errorf("replaying payout on predecessor:\n%w", err)
	}

	if replay.PrevStateHash != next.PrevStateHash {
		return &circle.TransitionError{Reason: "state hash linkage broken"}
	}

	return nil
}

func memberContributedIn(m *circle.Member, round uint32) bool {
	for i := range m.ContributionHistory {
		if m.ContributionHistory[i].Round == round {
			return true
		}
	}
	return false
}

func contributionAmount(m *circle.Member, round uint32) uint64 {
	for i := range m.ContributionHistory {
		if m.ContributionHistory[i].Round == round {
			return m.ContributionHistory[i].Amount
		}
	}
	return 0
}
