package profanity

import (
	"strings"
	"unicode"
)

// Mask is the character models use to censor swear words.
const Mask = '*'

// lexicon maps masked spellings to the words they stand for. Keys are lower case.
// "d***" is ambiguous between damn and dick; it resolves to dick.
var lexicon = map[string]string{
	"b****":   "bitch",
	"a**":     "ass",
	"s***":    "shit",
	"f***":    "fuck",
	"d***":    "dick",
	"c***":    "cunt",
	"m**f**r": "mother fucker",
	"b******": "bastard",
	"p****":   "pussy",
}

// Lookup resolves a masked token, ignoring case.
func Lookup(token string) (string, bool) {
	word, ok := lexicon[strings.ToLower(token)]
	return word, ok
}

// Token is one masked run found in the input: the character before the asterisks
// plus the asterisks themselves. Index is a rune offset into the input text.
type Token struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Replacement records a token that was resolved.
type Replacement struct {
	Token
	Word string `json:"word"`
}

// Result is the outcome of one decode pass.
type Result struct {
	Text     string
	Replaced []Replacement
	Unknown  []Token
}

// Decode scans text for masked tokens and substitutes every one the lexicon knows.
// Unknown tokens stay exactly as written.
func Decode(text string) Result {
	if !strings.ContainsRune(text, Mask) {
		return Result{Text: text}
	}

	runes := []rune(text)
	tokens := scan(runes)

	result := Result{}
	for _, token := range tokens {
		word, ok := Lookup(token.Text)
		if !ok {
			result.Unknown = append(result.Unknown, token)
			continue
		}
		end := token.Index + len([]rune(token.Text))
		result.Replaced = append(result.Replaced, Replacement{
			Token: token,
			Word:  matchCase(word, runes, token.Index, end),
		})
	}

	result.Text = apply(runes, result.Replaced)
	return result
}

// DecodeText is Decode without the report.
func DecodeText(text string) string {
	return Decode(text).Text
}

// scan collects tokens left to right. Tokens never overlap.
func scan(runes []rune) []Token {
	var tokens []Token
	for i := 1; i < len(runes); i++ {
		if runes[i] != Mask {
			continue
		}
		start := i - 1
		end := i
		for end+1 < len(runes) && runes[end+1] == Mask {
			end++
		}
		tokens = append(tokens, Token{Index: start, Text: string(runes[start : end+1])})
		i = end
	}
	return tokens
}

// apply rebuilds the text in one pass. replacements are in ascending index order
// and refer to offsets in the undecoded runes.
func apply(runes []rune, replacements []Replacement) string {
	if len(replacements) == 0 {
		return string(runes)
	}

	var builder strings.Builder
	cursor := 0
	for _, r := range replacements {
		builder.WriteString(string(runes[cursor:r.Index]))
		builder.WriteString(r.Word)
		cursor = r.Index + len([]rune(r.Text))
	}
	builder.WriteString(string(runes[cursor:]))
	return builder.String()
}

// matchCase carries the token's capitalization over to word. A capital letter in
// the token means at least title case; it becomes full upper case when the nearest
// neighbouring word is shouted, or when there is no neighbouring word to judge by.
func matchCase(word string, runes []rune, start, end int) string {
	if !hasUpper(runes[start:end]) {
		return word
	}

	neighbour := nearestWord(runes, end, 1)
	if neighbour == nil {
		neighbour = nearestWord(runes, start-1, -1)
	}
	if neighbour == nil || !hasLower(neighbour) {
		return strings.ToUpper(word)
	}

	first := []rune(word)
	first[0] = unicode.ToUpper(first[0])
	return string(first)
}

// nearestWord walks from pos in direction dir and returns the first run of at
// least two letters. Single letters such as "I" say nothing about shouting.
func nearestWord(runes []rune, pos, dir int) []rune {
	for pos >= 0 && pos < len(runes) {
		if !unicode.IsLetter(runes[pos]) {
			pos += dir
			continue
		}
		from := pos
		for pos >= 0 && pos < len(runes) && unicode.IsLetter(runes[pos]) {
			pos += dir
		}
		lo, hi := from, pos
		if dir < 0 {
			lo, hi = pos+1, from+1
		}
		if hi-lo >= 2 {
			return runes[lo:hi]
		}
	}
	return nil
}

func hasUpper(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

func hasLower(runes []rune) bool {
	for _, r := range runes {
		if unicode.IsLower(r) {
			return true
		}
	}
	return false
}
