package circle

import (
	"bytes"
	"errors"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	s := newFundedCircle(t, 3)
	if _, _, err := s.ExecutePayout(1_234_567_910); err != nil {
		t.Fatalf("payout: %v", err)
	}

	data := mustEncode(t, s)

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.CircleID != s.CircleID {
		t.Error("circle id mismatch after round trip")
	}
	if len(decoded.Members) != len(s.Members) {
		t.Fatalf("members = %d, want %d", len(decoded.Members), len(s.Members))
	}
	for i := range s.Members {
		if decoded.Members[i].PubKey != s.Members[i].PubKey {
			t.Errorf("member %d pubkey mismatch", i)
		}
		if decoded.Members[i].HasReceivedPayout != s.Members[i].HasReceivedPayout {
			t.Errorf("member %d paid flag mismatch", i)
		}
		if len(decoded.Members[i].ContributionHistory) != len(s.Members[i].ContributionHistory) {
			t.Errorf("member %d history length mismatch", i)
		}
	}
	if decoded.CurrentRound != s.CurrentRound ||
		decoded.TotalRounds != s.TotalRounds ||
		decoded.ContributionPerRound != s.ContributionPerRound ||
		decoded.CurrentPayoutIndex != s.CurrentPayoutIndex ||
		decoded.CurrentPool != s.CurrentPool ||
		decoded.CreatedAt != s.CreatedAt ||
		decoded.RoundStartedAt != s.RoundStartedAt ||
		decoded.RoundDuration != s.RoundDuration ||
		decoded.IsComplete != s.IsComplete ||
		decoded.PrevStateHash != s.PrevStateHash {
		t.Error("scalar field mismatch after round trip")
	}

	// The round-trip law: the decoded value hashes identically.
	if decoded.StateHash() != s.StateHash() {
		t.Error("state hash changed across encode/decode")
	}

	reencoded := mustEncode(t, decoded)
	if !bytes.Equal(data, reencoded) {
		t.Error("re-encoding is not byte identical")
	}
}

func TestStateHashStability(t *testing.T) {
	s := newFundedCircle(t, 2)

	h1 := s.StateHash()
	h2 := s.StateHash()
	if h1 != h2 {
		t.Error("hash differs across repeated calls on an unmodified state")
	}
}

func TestStateHashSensitivity(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CircleState)
	}{
		{"circle id", func(s *CircleState) { s.CircleID[0] ^= 1 }},
		{"member pubkey", func(s *CircleState) { s.Members[0].PubKey[1] ^= 1 }},
		{"member joined at", func(s *CircleState) { s.Members[1].JoinedAt++ }},
		{"contribution txid", func(s *CircleState) { s.Members[0].ContributionHistory[0].TxID[0] ^= 1 }},
		{"current round", func(s *CircleState) { s.CurrentRound++ }},
		{"total rounds", func(s *CircleState) { s.TotalRounds++ }},
		{"contribution per round", func(s *CircleState) { s.ContributionPerRound++ }},
		{"payout index", func(s *CircleState) { s.CurrentPayoutIndex++ }},
		{"pool", func(s *CircleState) { s.CurrentPool++ }},
		{"created at", func(s *CircleState) { s.CreatedAt++ }},
		{"round started at", func(s *CircleState) { s.RoundStartedAt++ }},
		{"round duration", func(s *CircleState) { s.RoundDuration++ }},
		{"complete flag", func(s *CircleState) { s.IsComplete = true }},
		{"prev state hash", func(s *CircleState) { s.PrevStateHash[0] ^= 1 }},
		{"paid flag", func(s *CircleState) { s.Members[0].HasReceivedPayout = true }},
	}

	base := newFundedCircle(t, 2)
	baseHash := base.StateHash()

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := base.Clone()
			tc.mutate(s)

			if s.StateHash() == baseHash {
				t.Error("hash unchanged after field mutation")
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	cases := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"garbage", []byte{0xff, 0x00, 0x13, 0x37}},
		{"truncated", mustEncode(t, newFundedCircle(t, 2))[:10]},
		{"wrong shape", []byte{0x01}}, // a bare integer
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err == nil {
				t.Fatal("expected decode failure")
			}

			var dErr *DecodeError
			if !errors.As(err, &dErr) {
				t.Errorf("got %T, want *DecodeError", err)
			}
		})
	}
}

func TestDecodeRejectsWrongWidths(t *testing.T) {
	// Build otherwise valid encodings with fixed-width fields of varying
	// lengths and make sure only the exact declared widths decode.
	type looseRecord struct {
		Round     uint32 `cbor:"round"`
		Amount    uint64 `cbor:"amount"`
		Timestamp uint64 `cbor:"timestamp"`
		TxID      []byte `cbor:"txid"`
	}
	type looseMember struct {
		PubKey              []byte        `cbor:"pubkey"`
		ContributionAmount  uint64        `cbor:"contribution_amount"`
		ContributionHistory []looseRecord `cbor:"contribution_history"`
		HasReceivedPayout   bool          `cbor:"has_received_payout"`
		PayoutRound         uint32        `cbor:"payout_round"`
		JoinedAt            uint64        `cbor:"joined_at"`
	}
	type looseState struct {
		CircleID             []byte        `cbor:"circle_id"`
		Members              []looseMember `cbor:"members"`
		CurrentRound         uint32        `cbor:"current_round"`
		TotalRounds          uint32        `cbor:"total_rounds"`
		ContributionPerRound uint64        `cbor:"contribution_per_round"`
		CurrentPayoutIndex   uint64        `cbor:"current_payout_index"`
		CurrentPool          uint64        `cbor:"current_pool"`
		CreatedAt            uint64        `cbor:"created_at"`
		RoundStartedAt       uint64        `cbor:"round_started_at"`
		RoundDuration        uint64        `cbor:"round_duration"`
		IsComplete           bool          `cbor:"is_complete"`
		PrevStateHash        []byte        `cbor:"prev_state_hash"`
	}

	build := func(pubkeyLen, circleIDLen, prevHashLen int) []byte {
		loose := looseState{
			CircleID: make([]byte, circleIDLen),
			Members: []looseMember{{
				PubKey:             make([]byte, pubkeyLen),
				ContributionAmount: 100_000,
			}},
			TotalRounds:          1,
			ContributionPerRound: 100_000,
			PrevStateHash:        make([]byte, prevHashLen),
		}

		data, err := cbor.Marshal(loose)
		if err != nil {
			t.Fatalf("marshal loose state: %v", err)
		}
		return data
	}

	// Control: exact widths everywhere must decode.
	if _, err := Decode(build(PubKeySize, CircleIDSize, 32)); err != nil {
		t.Fatalf("exact widths rejected: %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"empty pubkey", build(0, CircleIDSize, 32)},
		{"short pubkey", build(PubKeySize-1, CircleIDSize, 32)},
		{"long pubkey", build(PubKeySize+1, CircleIDSize, 32)},
		{"short circle id", build(PubKeySize, CircleIDSize-1, 32)},
		{"long prev state hash", build(PubKeySize, CircleIDSize, 33)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			if err == nil {
				t.Fatal("expected decode failure")
			}

			var dErr *DecodeError
			if !errors.As(err, &dErr) {
				t.Errorf("got %T, want *DecodeError", err)
			}
		})
	}
}

func TestApplyOperations(t *testing.T) {
	s := New([32]byte{1}, 100_000, 2_592_000, 1_234_567_890)
	if err := s.AddMember(testPubkey(1), 0, 1_234_567_890); err != nil {
		t.Fatalf("add creator: %v", err)
	}

	stateBytes := mustEncode(t, s)

	stateBytes, err := ApplyAddMember(stateBytes, testPubkey(2), 1, 1_234_567_891)
	if err != nil {
		t.Fatalf("apply add member: %v", err)
	}

	stateBytes, err = ApplyRecordContribution(stateBytes, testPubkey(1), 100_000, 1_234_567_900, [32]byte{7})
	if err != nil {
		t.Fatalf("apply contribution A: %v", err)
	}
	stateBytes, err = ApplyRecordContribution(stateBytes, testPubkey(2), 100_000, 1_234_567_901, [32]byte{8})
	if err != nil {
		t.Fatalf("apply contribution B: %v", err)
	}

	recipient, amount, stateBytes, err := ApplyExecutePayout(stateBytes, 1_234_567_902)
	if err != nil {
		t.Fatalf("apply payout: %v", err)
	}
	if recipient != testPubkey(1) || amount != 200_000 {
		t.Errorf("payout = (%x, %d), want (member A, 200000)", recipient[:4], amount)
	}

	final, err := Decode(stateBytes)
	if err != nil {
		t.Fatalf("decode final: %v", err)
	}
	if final.CurrentRound != 1 || final.CurrentPool != 0 {
		t.Errorf("final state round=%d pool=%d, want 1 and 0", final.CurrentRound, final.CurrentPool)
	}

	// Operation failures surface through the byte boundary unchanged.
	if _, err := ApplyAddMember(stateBytes, testPubkey(3), 0, 1_234_567_903); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("got %v, want ErrAlreadyStarted", err)
	}
	if _, err := ApplyAddMember([]byte{0xff}, testPubkey(3), 0, 1_234_567_903); err == nil {
		t.Error("expected decode error for malformed input")
	}
}
