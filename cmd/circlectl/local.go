package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"CirclePool/internal/circle"
	"CirclePool/internal/covenant"
)

// cmdCreate builds a fresh circle with the creator as its first member and
// prints the canonical state as hex.
func cmdCreate(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: create <circle_id> <contribution_per_round> <round_duration> <created_at> <creator_pubkey>")
	}

	circleID, err := parse32("circle_id", args[0])
	if err != nil {
		return err
	}
	contribution, err := parseUint("contribution_per_round", args[1])
	if err != nil {
		return err
	}
	duration, err := parseUint("round_duration", args[2])
	if err != nil {
		return err
	}
	createdAt, err := parseUint("created_at", args[3])
	if err != nil {
		return err
	}
	creator, err := parsePubKey(args[4])
	if err != nil {
		return err
	}

	s := circle.New(circleID, contribution, duration, createdAt)
	if err := s.AddMember(creator, 0, createdAt); err != nil {
		return fmt.Errorf("add creator:\n%w", err)
	}

	return printState(s)
}

func cmdAddMember(args []string) error {
	if len(args) != 4 {
		return fmt.Errorf("usage: add-member <state> <pubkey> <payout_round> <timestamp>")
	}

	stateBytes, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("state is not valid hex: %w", err)
	}
	pubkey, err := parsePubKey(args[1])
	if err != nil {
		return err
	}
	payoutRound, err := parseUint32("payout_round", args[2])
	if err != nil {
		return err
	}
	timestamp, err := parseUint("timestamp", args[3])
	if err != nil {
		return err
	}

	next, err := circle.ApplyAddMember(stateBytes, pubkey, payoutRound, timestamp)
	if err != nil {
		return err
	}

	fmt.Println(hex.EncodeToString(next))
	return nil
}

func cmdContribute(args []string) error {
	if len(args) != 5 {
		return fmt.Errorf("usage: contribute <state> <pubkey> <amount> <timestamp> <txid>")
	}

	stateBytes, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("state is not valid hex: %w", err)
	}
	pubkey, err := parsePubKey(args[1])
	if err != nil {
		return err
	}
	amount, err := parseUint("amount", args[2])
	if err != nil {
		return err
	}
	timestamp, err := parseUint("timestamp", args[3])
	if err != nil {
		return err
	}
	txid, err := parse32("txid", args[4])
	if err != nil {
		return err
	}

	next, err := circle.ApplyRecordContribution(stateBytes, pubkey, amount, timestamp, txid)
	if err != nil {
		return err
	}

	fmt.Println(hex.EncodeToString(next))
	return nil
}

// cmdPayout prints the recipient and amount on stderr so the successor state
// on stdout stays pipeable.
func cmdPayout(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: payout <state> <timestamp>")
	}

	stateBytes, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("state is not valid hex: %w", err)
	}
	timestamp, err := parseUint("timestamp", args[1])
	if err != nil {
		return err
	}

	recipient, amount, next, err := circle.ApplyExecutePayout(stateBytes, timestamp)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "recipient: %s\n", hex.EncodeToString(recipient[:]))
	fmt.Fprintf(os.Stderr, "amount:    %d\n", amount)
	fmt.Println(hex.EncodeToString(next))
	return nil
}

func cmdShow(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: show <state>")
	}

	stateBytes, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("state is not valid hex: %w", err)
	}

	s, err := circle.Decode(stateBytes)
	if err != nil {
		return err
	}

	hash := s.StateHash()
	fmt.Printf("circle:     %s\n", hex.EncodeToString(s.CircleID[:]))
	fmt.Printf("state hash: %s\n", hex.EncodeToString(hash[:]))
	fmt.Printf("round:      %d/%d\n", s.CurrentRound, s.TotalRounds)
	fmt.Printf("pool:       %d (per member %d)\n", s.CurrentPool, s.ContributionPerRound)
	fmt.Printf("payout idx: %d\n", s.CurrentPayoutIndex)
	fmt.Printf("funded:     %v\n", s.IsRoundFullyFunded())
	fmt.Printf("complete:   %v\n", s.IsComplete)
	fmt.Printf("members:    %d\n", len(s.Members))

	for i := range s.Members {
		m := &s.Members[i]
		fmt.Printf("  [%d] %s payout_round=%d paid=%v contributions=%d\n",
			i, hex.EncodeToString(m.PubKey[:]), m.PayoutRound, m.HasReceivedPayout, len(m.ContributionHistory))
	}

	if err := s.Validate(); err != nil {
		return err
	}
	fmt.Println("state is valid")
	return nil
}

func cmdHash(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: hash <state>")
	}

	stateBytes, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("state is not valid hex: %w", err)
	}

	s, err := circle.Decode(stateBytes)
	if err != nil {
		return err
	}

	hash := s.StateHash()
	fmt.Println(hex.EncodeToString(hash[:]))
	return nil
}

func cmdVerify(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: verify <prev_state> <next_state>")
	}

	prevBytes, err := hex.DecodeString(args[0])
	if err != nil {
		return fmt.Errorf("prev state is not valid hex: %w", err)
	}
	nextBytes, err := hex.DecodeString(args[1])
	if err != nil {
		return fmt.Errorf("next state is not valid hex: %w", err)
	}

	prev, err := circle.Decode(prevBytes)
	if err != nil {
		return fmt.Errorf("prev state:\n%w", err)
	}
	next, err := circle.Decode(nextBytes)
	if err != nil {
		return fmt.Errorf("next state:\n%w", err)
	}

	if err := covenant.VerifyChain(prev, next); err != nil {
		return err
	}

	fmt.Println("transition is valid")
	return nil
}

func printState(s *circle.CircleState) error {
	data, err := s.Encode()
	if err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(data))
	return nil
}

func parse32(name, s string) ([32]byte, error) {
	var out [32]byte

	b, err := hex.DecodeString(s)
	if err != nil {
		return out, fmt.Errorf("%s is not valid hex: %w", name, err)
	}
	if len(b) != 32 {
		return out, fmt.Errorf("%s must be 32 bytes (64 hex chars), got %d bytes", name, len(b))
	}

	copy(out[:], b)
	return out, nil
}

func parsePubKey(s string) (circle.PubKey, error) {
	var pk circle.PubKey

	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, fmt.Errorf("pubkey is not valid hex: %w", err)
	}
	if len(b) != circle.PubKeySize {
		return pk, fmt.Errorf("pubkey must be %d bytes (66 hex chars), got %d bytes", circle.PubKeySize, len(b))
	}

	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return pk, fmt.Errorf("pubkey is not a valid curve point: %w", err)
	}

	copy(pk[:], b)
	return pk, nil
}

func parseUint(name, s string) (uint64, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func parseUint32(name, s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return uint32(v), nil
}
