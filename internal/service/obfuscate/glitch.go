package obfuscate

import (
	"math"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
)

const (
	minRepeats = 2
	maxRepeats = 6
)

// GlitchCount is the number of corruption passes for a text of n runes:
// floor(n * level²), so low levels barely glitch.
func GlitchCount(n int, level float64) int {
	level = persona.ClampGlitch(level)
	return int(math.Floor(float64(n) * level * level))
}

// Glitch stutters random characters of text. Each pass picks an index into the
// text as it currently stands and replaces that character with 2 to 6 copies of
// itself, so repeated hits compound. The output is never shorter than the input.
func Glitch(text string, level float64, rng Source) string {
	if rng == nil {
		rng = DefaultSource
	}

	runes := []rune(text)
	passes := GlitchCount(len(runes), level)
	if passes == 0 {
		return text
	}

	for range passes {
		index := rng.IntN(len(runes))
		repeats := minRepeats + rng.IntN(maxRepeats-minRepeats+1)

		glitched := make([]rune, 0, len(runes)+repeats-1)
		glitched = append(glitched, runes[:index]...)
		for range repeats {
			glitched = append(glitched, runes[index])
		}
		glitched = append(glitched, runes[index+1:]...)
		runes = glitched
	}
	return string(runes)
}
