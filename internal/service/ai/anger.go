package ai

import (
	"fmt"
	"math/rand/v2"

	"github.com/zhouzirui/madchat/backend/internal/model/persona"
)

// Source is the random source used for word choice. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource draws from the process-wide generator and is safe for concurrent use.
var DefaultSource Source = globalSource{}

var mildlyAngryWords = []string{
	"annoyed", "irritated", "agitated", "exasperated",
	"frustrated", "miffed", "irked", "perturbed",
}

var angryWords = []string{
	"enraged", "livid", "wrathful", "infuriated",
	"irate", "incensed", "fuming", "outraged",
}

// angerBand is one of the ten contiguous slices of the anger scale. below is the
// exclusive upper bound; the last band catches everything from 100 up.
type angerBand struct {
	below      int
	pool       []string
	censored   string
	uncensored string
}

var angerBands = []angerBand{
	{
		below:      20,
		pool:       mildlyAngryWords,
		censored:   "a little bit %s",
		uncensored: "a little bit %s",
	},
	{
		below:      40,
		pool:       mildlyAngryWords,
		censored:   "quite %s",
		uncensored: "quite %s",
	},
	{
		below:      60,
		pool:       mildlyAngryWords,
		censored:   "very %s. You even throw in a swear word but completely censor it with asterisks",
		uncensored: "very %s. You even throw in a swear word",
	},
	{
		below:      70,
		pool:       angryWords,
		censored:   "downright %s with this situation and throw in several swear words but completely censor them with asterisks",
		uncensored: "downright %s with this situation and throw in several swear words",
	},
	{
		below:      80,
		pool:       angryWords,
		censored:   "downright %s with this situation and throw in several swear words but completely censor them with asterisks. You even shout briefly",
		uncensored: "downright %s with this situation and throw in several swear words. You even shout briefly",
	},
	{
		below:      85,
		pool:       angryWords,
		censored:   "downright %s with this situation and throw in several swear words but completely censor them with asterisks. You are shouting in all caps",
		uncensored: "downright %s with this situation and throw in several swear words. You are shouting in all caps",
	},
	{
		below:      90,
		pool:       angryWords,
		censored:   "downright %s with this situation and shouting in all caps, using mostly swear words but completely censor them with asterisks",
		uncensored: "downright %s with this situation and shouting in all caps, using mostly swear words",
	},
	{
		below:      95,
		pool:       angryWords,
		censored:   "downright %s with this situation and shouting in all caps, using mostly swear words but completely censor them with asterisks. Don't be afraid to insult anything about the given text, the more personal the better",
		uncensored: "downright %s with this situation and shouting in all caps, using mostly swear words. Don't be afraid to insult anything about the given text, the more personal the better",
	},
	{
		below:      100,
		pool:       angryWords,
		censored:   "downright %s with this situation and shouting in all caps, only using swear words but completely censor them with asterisks. You are incoherent and the sentence makes no sense",
		uncensored: "downright %s with this situation and shouting in all caps, only using swear words. You are incoherent and the sentence makes no sense",
	},
	{
		below:      persona.MaxAnger + 1,
		pool:       angryWords,
		censored:   "downright %s with this situation and shouting in all caps, only using swear words but completely censor them with asterisks. You are completely incoherent and not a single sentence makes sense",
		uncensored: "downright %s with this situation and shouting in all caps, only using swear words. You are completely incoherent and not a single sentence makes sense",
	},
}

// AngerBand returns the 1-based band a clamped anger level falls in.
func AngerBand(angerLevel int) int {
	level := persona.ClampAnger(angerLevel)
	for i, band := range angerBands {
		if level < band.below {
			return i + 1
		}
	}
	return len(angerBands)
}

// LevelDescription renders the anger clause for a level. The intensity word is
// drawn at random on every call so repeated turns don't read the same.
func (b *PromptBuilder) LevelDescription(angerLevel int) string {
	band := angerBands[AngerBand(angerLevel)-1]
	word := band.pool[b.rng.IntN(len(band.pool))]

	template := band.censored
	if b.generation == persona.GenerationUncensored {
		template = band.uncensored
	}
	return fmt.Sprintf(template, word)
}
