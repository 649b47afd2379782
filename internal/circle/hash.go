package circle

import (
	"fmt"

	"github.com/zeebo/blake3"
)

// StateHash returns the 32-byte digest anchoring this state in the covenant
// chain: blake3 over the canonical encoding. Two logically identical states
// always hash to the same digest, and any field change produces a new one.
func (s *CircleState) StateHash() [32]byte {
	data, err := s.Encode()
	if err != nil {
		// The canonical encoder cannot fail on a well-typed state.
		panic(fmt.Sprintf("canonical encoding failed: %v", err))
	}
	return blake3.Sum256(data)
}
