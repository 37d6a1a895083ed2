package ai

import (
	"strings"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
)

const (
	personalInsultThreshold = 60
	occasionalThreshold     = 30
)

// UserContext turns an optional profile into instructions for the model. The tone of
// the usage instruction follows the anger level. Returns "" when nothing is known.
func UserContext(profile *persona.UserProfile, angerLevel int) string {
	if profile.Empty() {
		return ""
	}

	clauses := make([]string, 0, 5)
	if name := strings.TrimSpace(profile.Name); name != "" {
		clauses = append(clauses, "The user's name is "+name+".")
	}
	if age := strings.TrimSpace(string(profile.Age)); age != "" {
		clauses = append(clauses, "The user is "+age+" years old.")
	}
	if gender := strings.TrimSpace(profile.Gender); gender != "" {
		clauses = append(clauses, "The user's gender is "+gender+".")
	}

	level := persona.ClampAnger(angerLevel)
	switch {
	case level >= personalInsultThreshold:
		clauses = append(clauses, "Use this information to make your insults personal, and call the user out by name when you tear into them.")
	case level >= occasionalThreshold:
		clauses = append(clauses, "You may occasionally bring this information up when the user annoys you.")
	default:
		clauses = append(clauses, "Only mention this information in a friendly way.")
	}
	clauses = append(clauses, "Never say that you were given this information or where it came from.")

	return strings.Join(clauses, " ")
}
