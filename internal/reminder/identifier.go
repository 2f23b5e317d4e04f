package reminder

import (
	"strings"

	"github.com/google/uuid"
)

// IdentifierPrefix is prepended to the event ID to form a reminder
// identifier. The format must stay reversible: activation of a delivered
// reminder recovers the event ID by stripping it.
const IdentifierPrefix = "event-"

// Identifier derives the reminder identifier for an event ID. It depends on
// the ID only, so renaming or rescheduling an event keeps the same key.
func Identifier(id uuid.UUID) string {
	return IdentifierPrefix + id.String()
}

// ParseIdentifier recovers the event ID from a reminder identifier. Anything
// without the prefix or with a malformed UUID reports false.
func ParseIdentifier(identifier string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(identifier, IdentifierPrefix)
	if !ok || rest == "" {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(rest)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
