package types

import (
	"fmt"
	"strings"
)

// MotionStrategy selects how a mount travels between two points.
type MotionStrategy uint8

const (
	// MotionArc retracts to a safe height, travels, then descends.
	// It is the default strategy.
	MotionArc MotionStrategy = iota

	// MotionDirect moves in a single straight segment.
	MotionDirect
)

// String returns the strategy name.
func (s MotionStrategy) String() string {
	switch s {
	case MotionArc:
		return "ARC"
	case MotionDirect:
		return "DIRECT"
	default:
		return "UNKNOWN"
	}
}

// ParseMotionStrategy parses "arc" or "direct". An empty string is MotionArc.
func ParseMotionStrategy(s string) (MotionStrategy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "arc":
		return MotionArc, nil
	case "direct":
		return MotionDirect, nil
	}
	return 0, fmt.Errorf("unknown motion strategy %q", s)
}
