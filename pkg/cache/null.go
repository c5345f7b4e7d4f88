package cache

import "context"

// Null is a StringStore that never stores anything.
// Useful for testing or when caching should be disabled.
type Null struct{}

// GetString always returns a miss.
func (Null) GetString(context.Context, string) (string, error) { return "", nil }

// SetString does nothing.
func (Null) SetString(context.Context, string, string, Expiration) error { return nil }

// Name implements Named.
func (Null) Name() string { return "none" }

// Ensure Null implements StringStore.
var _ StringStore = Null{}
