package cache

import (
	"fmt"
	"strings"

	apperrors "resource-cache/internal/common/errors"
)

// Strategy names an eviction policy. Only LRU is enforced by the memory
// backend; the other variants are recognized so configuration can name them,
// but constructing a manager with one of them fails explicitly instead of
// silently falling back to LRU.
type Strategy string

const (
	StrategyLRU      Strategy = "lru"
	StrategyLFU      Strategy = "lfu"
	StrategyTTL      Strategy = "ttl"
	StrategyAdaptive Strategy = "adaptive"
)

// ParseStrategy converts a configuration string to a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case StrategyLRU:
		return StrategyLRU, nil
	case StrategyLFU:
		return StrategyLFU, nil
	case StrategyTTL:
		return StrategyTTL, nil
	case StrategyAdaptive:
		return StrategyAdaptive, nil
	default:
		return "", apperrors.ConfigError(fmt.Sprintf("unknown eviction strategy: %s", s))
	}
}

// Implemented reports whether the strategy has a concrete eviction policy.
func (s Strategy) Implemented() bool {
	return s == StrategyLRU
}
