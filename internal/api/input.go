package api

import (
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"CirclePool/internal/circle"
)

// parseCircleID decodes a 64-character hex circle id.
func parseCircleID(s string) ([circle.CircleIDSize]byte, error) {
	var id [circle.CircleIDSize]byte

	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("circle id is not valid hex: %w", err)
	}
	if len(b) != circle.CircleIDSize {
		return id, fmt.Errorf("circle id must be %d bytes, got %d", circle.CircleIDSize, len(b))
	}

	copy(id[:], b)
	return id, nil
}

// parseStateHash decodes a 64-character hex state hash.
func parseStateHash(s string) ([32]byte, error) {
	var h [32]byte

	b, err := hex.DecodeString(s)
	if err != nil {
		return h, fmt.Errorf("state hash is not valid hex: %w", err)
	}
	if len(b) != 32 {
		return h, fmt.Errorf("state hash must be 32 bytes, got %d", len(b))
	}

	copy(h[:], b)
	return h, nil
}

// parsePubKey decodes a 66-character hex compressed public key and checks
// that it is a valid secp256k1 curve point. The core only compares key
// bytes; this boundary is where key validity is enforced.
func parsePubKey(s string) (circle.PubKey, error) {
	var pk circle.PubKey

	b, err := hex.DecodeString(s)
	if err != nil {
		return pk, fmt.Errorf("pubkey is not valid hex: %w", err)
	}
	if len(b) != circle.PubKeySize {
		return pk, fmt.Errorf("pubkey must be %d bytes, got %d", circle.PubKeySize, len(b))
	}

	if _, err := secp256k1.ParsePubKey(b); err != nil {
		return pk, fmt.Errorf("pubkey is not a valid curve point: %w", err)
	}

	copy(pk[:], b)
	return pk, nil
}

// parseTxID decodes a 64-character hex transaction id.
func parseTxID(s string) ([circle.TxIDSize]byte, error) {
	var txid [circle.TxIDSize]byte

	b, err := hex.DecodeString(s)
	if err != nil {
		return txid, fmt.Errorf("txid is not valid hex: %w", err)
	}
	if len(b) != circle.TxIDSize {
		return txid, fmt.Errorf("txid must be %d bytes, got %d", circle.TxIDSize, len(b))
	}

	copy(txid[:], b)
	return txid, nil
}
