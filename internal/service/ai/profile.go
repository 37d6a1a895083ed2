package ai

import "github.com/zhouzirui/madchat/backend/internal/model/persona"

// brevityContract is appended to every mode description.
const brevityContract = "Answer in one or two sentences at most. Never write stage directions or describe your own actions, and never comment on the tone you are using"

// ProfileDescription returns the character description for a mode followed by the
// shared brevity contract. Unknown modes read as normal.
func ProfileDescription(mode persona.Mode) string {
	var character string
	switch persona.ParseMode(string(mode)) {
	case persona.ModeSarcastic:
		character = "sarcastic person who doesn't like to use too many words, you keep things brief and snappy. " +
			"You don't use any formal language or polite mannerisms"
	case persona.ModeZesty:
		character = "flamboyantly gay man from Vancouver BC who enjoys drag, you keep things brief and snappy"
	default:
		character = "person who communicates concisely and directly and never wastes words"
	}
	return character + ". " + brevityContract
}
