package models

import "time"

// RuleType distinguishes process-name rules from url-keyword rules.
type RuleType string

const (
	RuleApp RuleType = "app"
	RuleURL RuleType = "url"
)

// Valid reports whether the rule type is one of the known kinds.
func (t RuleType) Valid() bool {
	return t == RuleApp || t == RuleURL
}

// BlacklistRule is a single user-defined block rule. Values are stored
// lowercase and are unique across the whole rule set, not per type.
type BlacklistRule struct {
	ID        int64     `db:"id"`
	Value     string    `db:"value"`
	Type      RuleType  `db:"type"`
	CreatedAt time.Time `db:"created_at"`
}
