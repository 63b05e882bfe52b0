package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math"
)

// GenerateID returns a random hex string of n bytes (2n characters).
func GenerateID(n int) string {
	b := make([]byte, n)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// GenerateUUID returns a random version 4 UUID. Session IDs use these so
// they are safe to embed in join URLs.
func GenerateUUID() string {
	b := make([]byte, 16)
	rand.Read(b)
	b[6] = (b[6] & 0x0f) | 0x40
	b[8] = (b[8] & 0x3f) | 0x80
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:16])
}

// Clamp limits v to the range [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Distance returns the euclidean distance between two points.
func Distance(x1, z1, x2, z2 float64) float64 {
	dx := x2 - x1
	dz := z2 - z1
	return math.Sqrt(dx*dx + dz*dz)
}

// round1 rounds to one decimal place. State snapshots go out thirty times a
// second, so shaving float precision keeps frames small.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
