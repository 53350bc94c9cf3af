package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{
		prefix: prefix,
	}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// League key builders
func (kb *KeyBuilder) KeyLeaderboard() string {
	return kb.BuildKey(KeyLeaderboard)
}

func (kb *KeyBuilder) KeyHouseguestsAll() string {
	return kb.BuildKey(KeyHouseguestsAll)
}

func (kb *KeyBuilder) KeyHouseguestBySlug(slug string) string {
	return kb.BuildKey(fmt.Sprintf(KeyHouseguestBySlug, slug))
}

// KeyHistory is keyed by sort order ("asc" or "desc")
func (kb *KeyBuilder) KeyHistory(order string) string {
	return kb.BuildKey(fmt.Sprintf(KeyHistory, order))
}

func (kb *KeyBuilder) KeyUserProfile(username string) string {
	return kb.BuildKey(fmt.Sprintf(KeyUserProfile, username))
}

// KeyLeagueAll matches every league cache entry, used for invalidation
func (kb *KeyBuilder) KeyLeagueAll() string {
	return kb.BuildKey("league:*")
}

// Rate limit key builders
func (kb *KeyBuilder) KeyRateLimit(route, clientID string) string {
	return kb.BuildKey(fmt.Sprintf(KeyRateLimit, route, clientID))
}
