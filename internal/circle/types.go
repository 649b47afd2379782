package circle

// Fixed-width wire contracts shared with external tooling.
// Changing any of these breaks the canonical encoding and every state hash.
const (
	// PubKeySize is the length of a compressed secp256k1 public key.
	PubKeySize = 33

	// CircleIDSize is the length of a circle identifier.
	CircleIDSize = 32

	// TxIDSize is the length of a transaction identifier.
	TxIDSize = 32
)

// PubKey is a compressed secp256k1 public key identifying a member.
// The core compares keys by byte equality only; boundary code is responsible
// for checking that a key is a valid curve point.
type PubKey [PubKeySize]byte

// ContributionRecord is a single member's contribution for one round.
type ContributionRecord struct {
	Round     uint32         `cbor:"round"`
	Amount    uint64         `cbor:"amount"`
	Timestamp uint64         `cbor:"timestamp"`
	TxID      [TxIDSize]byte `cbor:"txid"`
}

// Member holds one participant's identity and participation history.
// Members are owned exclusively by their CircleState and are only mutated
// through contribution and payout operations.
type Member struct {
	PubKey              PubKey               `cbor:"pubkey"`
	ContributionAmount  uint64               `cbor:"contribution_amount"`
	ContributionHistory []ContributionRecord `cbor:"contribution_history"`
	HasReceivedPayout   bool                 `cbor:"has_received_payout"`
	PayoutRound         uint32               `cbor:"payout_round"`
	JoinedAt            uint64               `cbor:"joined_at"`
}

// contributedIn reports whether the member has a record for the given round.
func (m *Member) contributedIn(round uint32) bool {
	for i := range m.ContributionHistory {
		if m.ContributionHistory[i].Round == round {
			return true
		}
	}
	return false
}

// contributionFor returns the member's record for the given round, or nil.
func (m *Member) contributionFor(round uint32) *ContributionRecord {
	for i := range m.ContributionHistory {
		if m.ContributionHistory[i].Round == round {
			return &m.ContributionHistory[i]
		}
	}
	return nil
}

// CircleState is the complete state of one rotating savings circle.
// It is a self-contained value threaded through operations: each operation
// either commits fully or leaves the state untouched. Field order is the
// canonical encoding order and must not be rearranged.
type CircleState struct {
	CircleID             [CircleIDSize]byte `cbor:"circle_id"`
	Members              []Member           `cbor:"members"`
	CurrentRound         uint32             `cbor:"current_round"`
	TotalRounds          uint32             `cbor:"total_rounds"`
	ContributionPerRound uint64             `cbor:"contribution_per_round"`
	CurrentPayoutIndex   uint64             `cbor:"current_payout_index"`
	CurrentPool          uint64             `cbor:"current_pool"`
	CreatedAt            uint64             `cbor:"created_at"`
	RoundStartedAt       uint64             `cbor:"round_started_at"`
	RoundDuration        uint64             `cbor:"round_duration"`
	IsComplete           bool               `cbor:"is_complete"`
	PrevStateHash        [32]byte           `cbor:"prev_state_hash"`
}

// memberIndex returns the position of pubkey in the member list, or -1.
func (s *CircleState) memberIndex(pubkey PubKey) int {
	for i := range s.Members {
		if s.Members[i].PubKey == pubkey {
			return i
		}
	}
	return -1
}

// Member returns the member with the given pubkey, or nil if absent.
func (s *CircleState) Member(pubkey PubKey) *Member {
	if i := s.memberIndex(pubkey); i >= 0 {
		return &s.Members[i]
	}
	return nil
}

// Clone returns a deep copy of the state. The copy shares no memory with
// the original, so replaying operations on it cannot corrupt the source.
func (s *CircleState) Clone() *CircleState {
	c := *s
	c.Members = make([]Member, len(s.Members))
	for i := range s.Members {
		c.Members[i] = s.Members[i]
		c.Members[i].ContributionHistory = append(
			[]ContributionRecord(nil), s.Members[i].ContributionHistory...)
	}
	return &c
}
