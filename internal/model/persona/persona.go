package persona

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Mode selects the character voice the model role-plays.
type Mode string

const (
	ModeNormal    Mode = "normal"
	ModeSarcastic Mode = "sarcastic"
	ModeZesty     Mode = "zesty"
)

// ParseMode resolves a client supplied mode name. Unknown names fall back to normal.
func ParseMode(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeSarcastic:
		return ModeSarcastic
	case ModeZesty:
		return ModeZesty
	default:
		return ModeNormal
	}
}

// Generation selects how profanity is handled end to end: masked by the model and
// decoded on the way out, or requested uncensored in the prompt itself.
type Generation string

const (
	GenerationCensored   Generation = "censored"
	GenerationUncensored Generation = "uncensored"
)

// ParseGeneration resolves a configured generation name.
func ParseGeneration(raw string) (Generation, bool) {
	switch Generation(strings.ToLower(strings.TrimSpace(raw))) {
	case GenerationCensored:
		return GenerationCensored, true
	case GenerationUncensored:
		return GenerationUncensored, true
	default:
		return "", false
	}
}

const (
	MinAnger  = 0
	MaxAnger  = 100
	MinGlitch = 0.0
	MaxGlitch = 1.0
)

// Params carries the per-request personality knobs. Never stored.
type Params struct {
	AngerLevel  int          `json:"angerLevel"`
	Mode        Mode         `json:"mode"`
	GlitchLevel float64      `json:"glitchLevel"`
	UserProfile *UserProfile `json:"userProfile,omitempty"`
}

// Normalize clamps numeric knobs and resolves the mode.
func (p Params) Normalize() Params {
	p.AngerLevel = ClampAnger(p.AngerLevel)
	p.GlitchLevel = ClampGlitch(p.GlitchLevel)
	p.Mode = ParseMode(string(p.Mode))
	return p
}

// ClampAnger bounds an anger level to [0,100].
func ClampAnger(level int) int {
	if level < MinAnger {
		return MinAnger
	}
	if level > MaxAnger {
		return MaxAnger
	}
	return level
}

// ClampGlitch bounds a glitch intensity to [0,1]. NaN counts as no glitch.
func ClampGlitch(level float64) float64 {
	if level != level || level < MinGlitch {
		return MinGlitch
	}
	if level > MaxGlitch {
		return MaxGlitch
	}
	return level
}

// UserProfile is optional context the frontend knows about the user.
type UserProfile struct {
	Name   string `json:"name,omitempty"`
	Age    Age    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
}

// Empty reports whether no field carries a value.
func (u *UserProfile) Empty() bool {
	if u == nil {
		return true
	}
	return strings.TrimSpace(u.Name) == "" &&
		strings.TrimSpace(string(u.Age)) == "" &&
		strings.TrimSpace(u.Gender) == ""
}

// Age accepts both JSON numbers and strings; the login form sends either.
type Age string

// UnmarshalJSON implements json.Unmarshaler.
func (a *Age) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" || trimmed == "" {
		*a = ""
		return nil
	}

	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Age(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if i, err := n.Int64(); err == nil {
		*a = Age(strconv.FormatInt(i, 10))
		return nil
	}
	*a = Age(n.String())
	return nil
}
