package circle

import "fmt"

// roundSet is a fixed-size bitset over round numbers, bounded by TotalRounds.
// It replaces a per-call map so duplicate detection never allocates more
// than one word per 64 rounds.
type roundSet []uint64

func newRoundSet(rounds uint32) roundSet {
	return make(roundSet, (rounds+63)/64)
}

func (rs roundSet) has(r uint32) bool {
	return rs[r/64]&(1<<(r%64)) != 0
}

func (rs roundSet) set(r uint32) {
	rs[r/64] |= 1 << (r % 64)
}

// Validate checks every whole-state invariant, returning the first violation.
// Violations are not aggregated.
func (s *CircleState) Validate() error {
	if len(s.Members) == 0 {
		return &ValidationError{Field: "members", Reason: "circle has no members"}
	}

	if s.TotalRounds != uint32(len(s.Members)) {
		return &ValidationError{
			Field:  "total_rounds",
			Reason: fmt.Sprintf("total rounds %d must equal member count %d", s.TotalRounds, len(s.Members)),
		}
	}

	if s.CurrentRound > s.TotalRounds {
		return &ValidationError{
			Field:  "current_round",
			Reason: fmt.Sprintf("current round %d exceeds total rounds %d", s.CurrentRound, s.TotalRounds),
		}
	}

	if s.CurrentPayoutIndex >= uint64(len(s.Members)) {
		return &ValidationError{
			Field:  "current_payout_index",
			Reason: fmt.Sprintf("payout index %d must be below member count %d", s.CurrentPayoutIndex, len(s.Members)),
		}
	}

	for i := range s.Members {
		m := &s.Members[i]

		if m.PayoutRound >= s.TotalRounds {
			return &ValidationError{
				Field:  "payout_round",
				Reason: fmt.Sprintf("member %d payout round %d must be below total rounds %d", i, m.PayoutRound, s.TotalRounds),
			}
		}

		if m.HasReceivedPayout && m.PayoutRound >= s.CurrentRound {
			return &ValidationError{
				Field:  "has_received_payout",
				Reason: fmt.Sprintf("member %d marked paid but round %d has not occurred", i, m.PayoutRound),
			}
		}

		seen := newRoundSet(s.TotalRounds)
		for _, c := range m.ContributionHistory {
			if c.Round >= s.TotalRounds {
				return &ValidationError{
					Field:  "contribution_history",
					Reason: fmt.Sprintf("member %d has a contribution for round %d beyond total rounds %d", i, c.Round, s.TotalRounds),
				}
			}

			if c.Amount != s.ContributionPerRound {
				return &ValidationError{
					Field:  "contribution_history",
					Reason: fmt.Sprintf("member %d contribution of %d does not match required %d", i, c.Amount, s.ContributionPerRound),
				}
			}

			if seen.has(c.Round) {
				return &ValidationError{
					Field:  "contribution_history",
					Reason: fmt.Sprintf("member %d has duplicate contributions for round %d", i, c.Round),
				}
			}
			seen.set(c.Round)
		}
	}

	var expected uint64
	for i := range s.Members {
		if c := s.Members[i].contributionFor(s.CurrentRound); c != nil {
			expected += c.Amount
		}
	}

	if s.CurrentPool != expected {
		return &ValidationError{
			Field:  "current_pool",
			Reason: fmt.Sprintf("pool is %d but current round contributions sum to %d", s.CurrentPool, expected),
		}
	}

	return nil
}

// ValidateTransition checks that next is a legal successor of s. The check
// is shallow: per-member contribution deltas, payout correctness and hash
// linkage are left to the chain verifier layered on top.
func (s *CircleState) ValidateTransition(next *CircleState) error {
	if s.CircleID != next.CircleID {
		return &TransitionError{Reason: "circle id mismatch"}
	}

	if s.CurrentRound > 0 && len(s.Members) != len(next.Members) {
		return &TransitionError{Reason: "member count changed after start"}
	}

	switch {
	case next.CurrentRound == s.CurrentRound:
		// Same round: contributions only, the pool never shrinks.
		if next.CurrentPool < s.CurrentPool {
			return &TransitionError{Reason: "pool decreased within a round"}
		}
	case next.CurrentRound == s.CurrentRound+1:
		// Round advanced: a payout happened, the pool must reset.
		if next.CurrentPool != 0 {
			return &TransitionError{Reason: "pool did not reset on new round"}
		}
	default:
		return &TransitionError{
			Reason: fmt.Sprintf("round moved from %d to %d", s.CurrentRound, next.CurrentRound),
		}
	}

	return nil
}
