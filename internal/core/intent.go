package core

import "fmt"

// Intent represents the classified purpose of a user utterance.
type Intent string

const (
	// IntentDeciding marks an utterance that commits to a concrete choice.
	// Example: "let's go with PostgreSQL for the main store".
	IntentDeciding Intent = "deciding"

	// IntentExploring marks open-ended brainstorming input.
	IntentExploring Intent = "exploring"

	// IntentParking marks input that defers a topic for later.
	IntentParking Intent = "parking"

	// IntentAsking marks a direct question about the project.
	IntentAsking Intent = "asking"

	// IntentReviewing marks a request to review or summarize recorded work.
	IntentReviewing Intent = "reviewing"

	// IntentUploading marks input referencing attached or uploaded material.
	IntentUploading Intent = "uploading"

	// IntentUnresolved is the fallback when classification is uncertain.
	// It always has a registered workflow so a turn never dead-ends.
	IntentUnresolved Intent = "unresolved"
)

// AllIntents returns every classifiable intent, fallback included.
func AllIntents() []Intent {
	return []Intent{
		IntentDeciding,
		IntentExploring,
		IntentParking,
		IntentAsking,
		IntentReviewing,
		IntentUploading,
		IntentUnresolved,
	}
}

// ValidIntent checks if an intent value is a member of the enumeration.
func ValidIntent(i Intent) bool {
	switch i {
	case IntentDeciding, IntentExploring, IntentParking, IntentAsking,
		IntentReviewing, IntentUploading, IntentUnresolved:
		return true
	default:
		return false
	}
}

// ParseIntent converts a string to an Intent with validation.
func ParseIntent(s string) (Intent, error) {
	i := Intent(s)
	if !ValidIntent(i) {
		return "", fmt.Errorf("invalid intent: %s", s)
	}
	return i, nil
}

// String returns the string representation of the intent.
func (i Intent) String() string {
	return string(i)
}

// Description returns a human-readable description of the intent.
func (i Intent) Description() string {
	switch i {
	case IntentDeciding:
		return "User is committing to a decision"
	case IntentExploring:
		return "User is brainstorming options"
	case IntentParking:
		return "User is deferring a topic"
	case IntentAsking:
		return "User is asking about the project"
	case IntentReviewing:
		return "User wants a review of recorded work"
	case IntentUploading:
		return "User is referencing uploaded material"
	case IntentUnresolved:
		return "Intent could not be determined"
	default:
		return "Unknown intent"
	}
}
