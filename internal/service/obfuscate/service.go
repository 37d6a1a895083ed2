package obfuscate

import (
	"log"
	"math/rand/v2"

	"github.com/zhouzirui/madchat/backend/internal/analysis/profanity"
	"github.com/zhouzirui/madchat/backend/internal/model/persona"
)

// Source is the random source used by the glitch pass. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int { return rand.IntN(n) }

// DefaultSource draws from the process-wide generator and is safe for concurrent use.
var DefaultSource Source = globalSource{}

// Policy is the post-processing pipeline applied to model output.
type Policy string

const (
	// PolicyDecodeThenGlitch restores asterisk-masked swearing before glitching.
	PolicyDecodeThenGlitch Policy = "decode+glitch"
	// PolicyGlitchOnly is used when the prompt already asked for uncensored output.
	PolicyGlitchOnly Policy = "glitch"
)

// PolicyFor picks the pipeline matching how the prompt asked the model to swear.
func PolicyFor(generation persona.Generation) Policy {
	switch generation {
	case persona.GenerationUncensored:
		return PolicyGlitchOnly
	default:
		return PolicyDecodeThenGlitch
	}
}

// Obfuscator post-processes model replies.
type Obfuscator struct {
	policy Policy
	rng    Source
}

// New creates an obfuscator. A nil rng uses DefaultSource.
func New(policy Policy, rng Source) *Obfuscator {
	if rng == nil {
		rng = DefaultSource
	}
	if policy != PolicyGlitchOnly {
		policy = PolicyDecodeThenGlitch
	}
	return &Obfuscator{policy: policy, rng: rng}
}

// Policy reports the configured pipeline.
func (o *Obfuscator) Policy() Policy {
	return o.policy
}

// Apply runs the pipeline over text. It never fails; at worst text comes back as is.
func (o *Obfuscator) Apply(text string, glitchLevel float64) string {
	result := text

	if o.policy == PolicyDecodeThenGlitch {
		decoded := profanity.Decode(result)
		for _, token := range decoded.Unknown {
			log.Printf("[obfuscate] couldn't translate masked word %q at %d", token.Text, token.Index)
		}
		result = decoded.Text
	}

	if glitchLevel > 0 {
		result = Glitch(result, glitchLevel, o.rng)
	}
	return result
}
