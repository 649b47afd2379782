package circle

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// The canonical wire form is a CBOR map with string keys emitted in struct
// declaration order, definite lengths only. Key order is part of the wire
// contract: two implementations must produce byte-identical encodings for
// logically identical states or hash chaining breaks.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortNone,
		IndefLength: cbor.IndefLengthForbidden,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("cbor encode mode: %v", err))
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyEnforcedAPF,
		IndefLength:       cbor.IndefLengthForbidden,
		ExtraReturnErrors: cbor.ExtraDecErrorUnknownField,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("cbor decode mode: %v", err))
	}
}

// Encode serializes the state into its canonical byte form.
func (s *CircleState) Encode() ([]byte, error) {
	data, err := encMode.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode state:\n%w", err)
	}
	return data, nil
}

// Decode parses a canonical encoding produced by Encode. The input must be
// byte-identical to the re-encoding of the decoded value; this is what
// enforces the fixed widths of circle ids, pubkeys, txids and hashes, since
// a byte string of the wrong length re-encodes differently than it arrived.
func Decode(data []byte) (*CircleState, error) {
	var s CircleState
	if err := decMode.Unmarshal(data, &s); err != nil {
		return nil, &DecodeError{Cause: err}
	}

	canonical, err := encMode.Marshal(&s)
	if err != nil {
		return nil, &DecodeError{Cause: err}
	}
	if !bytes.Equal(data, canonical) {
		return nil, &DecodeError{Cause: errors.New("encoding is not canonical")}
	}

	return &s, nil
}

// ApplyAddMember decodes a state, adds one member, and re-encodes. This is
// the boundary form used by tooling that only holds raw state bytes.
func ApplyAddMember(stateBytes []byte, pubkey PubKey, payoutRound uint32, timestamp uint64) ([]byte, error) {
	s, err := Decode(stateBytes)
	if err != nil {
		return nil, err
	}

	if err := s.AddMember(pubkey, payoutRound, timestamp); err != nil {
		return nil, err
	}

	return s.Encode()
}

// ApplyRecordContribution decodes a state, records one contribution, and
// re-encodes.
func ApplyRecordContribution(stateBytes []byte, pubkey PubKey, amount uint64, timestamp uint64, txid [TxIDSize]byte) ([]byte, error) {
	s, err := Decode(stateBytes)
	if err != nil {
		return nil, err
	}

	if err := s.RecordContribution(pubkey, amount, timestamp, txid); err != nil {
		return nil, err
	}

	return s.Encode()
}

// ApplyExecutePayout decodes a state, executes the payout for the current
// round, and re-encodes. It returns the recipient and amount alongside the
// successor state bytes.
func ApplyExecutePayout(stateBytes []byte, timestamp uint64) (PubKey, uint64, []byte, error) {
	s, err := Decode(stateBytes)
	if err != nil {
		return PubKey{}, 0, nil, err
	}

	recipient, amount, err := s.ExecutePayout(timestamp)
	if err != nil {
		return PubKey{}, 0, nil, err
	}

	next, err := s.Encode()
	if err != nil {
		return PubKey{}, 0, nil, err
	}

	return recipient, amount, next, nil
}
