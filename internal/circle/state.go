package circle

// New creates an empty circle: round 0, no members, pool 0. All timestamps
// are caller-supplied Unix seconds; the core never reads a clock.
func New(circleID [CircleIDSize]byte, contributionPerRound, roundDuration, createdAt uint64) *CircleState {
	return &CircleState{
		CircleID:             circleID,
		ContributionPerRound: contributionPerRound,
		CreatedAt:            createdAt,
		RoundStartedAt:       createdAt,
		RoundDuration:        roundDuration,
	}
}

// AddMember appends a member to the circle. Members may only join before the
// first round starts; afterwards the member set is frozen.
//
// The payout round must be at most the member count before insertion, so
// every member satisfies PayoutRound < TotalRounds once counted. The boundary
// is deliberately permissive and must stay exactly this inequality.
func (s *CircleState) AddMember(pubkey PubKey, payoutRound uint32, timestamp uint64) error {
	if s.CurrentRound > 0 {
		return ErrAlreadyStarted
	}
	if s.memberIndex(pubkey) >= 0 {
		return ErrDuplicateMember
	}
	if uint64(payoutRound) > uint64(len(s.Members)) {
		return &OpError{
			Code:     CodeInvalidPayoutRound,
			Expected: uint64(len(s.Members)),
			Actual:   uint64(payoutRound),
		}
	}

	s.Members = append(s.Members, Member{
		PubKey:             pubkey,
		ContributionAmount: s.ContributionPerRound,
		PayoutRound:        payoutRound,
		JoinedAt:           timestamp,
	})
	s.TotalRounds = uint32(len(s.Members))

	return nil
}

// RecordContribution records a member's contribution for the current round
// and adds it to the pool. A member contributes at most once per round; the
// duplicate check here is the only enforcement, there is no correction path.
func (s *CircleState) RecordContribution(pubkey PubKey, amount uint64, timestamp uint64, txid [TxIDSize]byte) error {
	if s.IsComplete {
		return ErrCircleComplete
	}

	i := s.memberIndex(pubkey)
	if i < 0 {
		return ErrMemberNotFound
	}
	m := &s.Members[i]

	if m.contributedIn(s.CurrentRound) {
		return &OpError{Code: CodeDuplicateContribution, Actual: uint64(s.CurrentRound)}
	}

	if amount != s.ContributionPerRound {
		return &OpError{
			Code:     CodeAmountMismatch,
			Expected: s.ContributionPerRound,
			Actual:   amount,
		}
	}

	m.ContributionHistory = append(m.ContributionHistory, ContributionRecord{
		Round:     s.CurrentRound,
		Amount:    amount,
		Timestamp: timestamp,
		TxID:      txid,
	})
	s.CurrentPool += amount

	return nil
}

// IsRoundFullyFunded reports whether every member has a contribution record
// for the current round.
func (s *CircleState) IsRoundFullyFunded() bool {
	for i := range s.Members {
		if !s.Members[i].contributedIn(s.CurrentRound) {
			return false
		}
	}
	return true
}

// ExecutePayout pays the full pool to the member at CurrentPayoutIndex and
// advances the round. It returns the recipient and the payout amount.
//
// The recipient is selected by positional rotation of CurrentPayoutIndex.
// The PayoutRound recorded at join time is never consulted here; it only
// matches the actual payout order when members join in matching order.
//
// PrevStateHash is set to the hash of the state as it stands with the
// recipient marked paid but before the pool and round counters reset. That
// intermediate state is what external verifiers recompute to check linkage.
func (s *CircleState) ExecutePayout(timestamp uint64) (PubKey, uint64, error) {
	if s.IsComplete {
		return PubKey{}, 0, ErrCircleComplete
	}

	if !s.IsRoundFullyFunded() {
		return PubKey{}, 0, ErrRoundNotFunded
	}

	if s.CurrentPayoutIndex >= uint64(len(s.Members)) {
		return PubKey{}, 0, &OpError{
			Code:     CodeInvalidIndex,
			Expected: uint64(len(s.Members)),
			Actual:   s.CurrentPayoutIndex,
		}
	}

	m := &s.Members[s.CurrentPayoutIndex]
	if m.HasReceivedPayout {
		return PubKey{}, 0, ErrAlreadyPaid
	}

	recipient := m.PubKey
	amount := s.CurrentPool

	m.HasReceivedPayout = true

	// Anchor the completed round before resetting pool and counters.
	s.PrevStateHash = s.StateHash()

	s.CurrentPool = 0
	s.CurrentRound++
	s.CurrentPayoutIndex = (s.CurrentPayoutIndex + 1) % uint64(len(s.Members))
	s.RoundStartedAt = timestamp

	if s.CurrentRound >= s.TotalRounds {
		s.IsComplete = true
	}

	return recipient, amount, nil
}
