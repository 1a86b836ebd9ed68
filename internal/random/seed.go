// Package random provides seed generation and resolution for session random
// sources.
//
// Seeds come from crypto/rand so that live sessions are unpredictable, while
// a caller-supplied seed makes a session replayable round for round.
package random

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
)

// Seed source labels reported back to callers.
const (
	SeedSourceClient = "CLIENT"
	SeedSourceServer = "SERVER"
)

// RngAlgo identifies the generator seeded by NewRand.
const RngAlgo = "math_rand_v1"

// NewSeed generates a random seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}

	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

// ResolveSeed returns the requested seed when present, otherwise one produced
// by seedFunc, together with the label of where it came from.
func ResolveSeed(requested *int64, seedFunc func() (int64, error)) (int64, string, error) {
	if requested != nil {
		return *requested, SeedSourceClient, nil
	}
	if seedFunc == nil {
		return 0, "", fmt.Errorf("seed generator is not configured")
	}
	seed, err := seedFunc()
	if err != nil {
		return 0, "", fmt.Errorf("generate seed: %w", err)
	}
	return seed, SeedSourceServer, nil
}

// NewRand returns a deterministic generator for the given seed.
func NewRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// ParseSeed converts an optional seed flag into a requested seed. An empty
// value requests a server seed.
func ParseSeed(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	seed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse seed %q: %w", value, err)
	}
	return &seed, nil
}
