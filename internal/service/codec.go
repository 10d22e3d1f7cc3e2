package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/alignmentlab/secret-agi/pkg/secretagi"
)

// EncodeState serializes a game state and returns the blob with its
// SHA-256 hex checksum.
func EncodeState(gs *secretagi.GameState) (json.RawMessage, string, error) {
	blob, err := json.Marshal(gs)
	if err != nil {
		return nil, "", fmt.Errorf("encode state: %w", err)
	}
	sum := sha256.Sum256(blob)
	return blob, hex.EncodeToString(sum[:]), nil
}

// DecodeState deserializes a snapshot blob, verifying the stored
// checksum first when one is given.
func DecodeState(blob json.RawMessage, checksum string) (*secretagi.GameState, error) {
	if checksum != "" {
		sum := sha256.Sum256(blob)
		if hex.EncodeToString(sum[:]) != checksum {
			return nil, fmt.Errorf("state checksum mismatch")
		}
	}
	var gs secretagi.GameState
	if err := json.Unmarshal(blob, &gs); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &gs, nil
}
