package judge

import (
	"regexp"
	"strings"
	"unicode"
)

var lineBreaks = regexp.MustCompile(`[\r\n]+`)

// SplitSentences splits a block of prose into ordered, trimmed sentences.
// Line-break runs collapse to single spaces first; a split happens only where
// sentence-ending punctuation is followed by whitespace and the next visible
// character plausibly starts a new sentence. That keeps abbreviations and
// mid-sentence numerals ("see section 4.2 below") intact. Empty input yields
// no sentences.
func SplitSentences(text string) []string {
	flat := lineBreaks.ReplaceAllString(text, " ")
	runes := []rune(flat)

	var out []string
	var cur []rune
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		cur = append(cur, c)
		if c != '.' && c != '!' && c != '?' {
			continue
		}
		j := i + 1
		for j < len(runes) && unicode.IsSpace(runes[j]) {
			j++
		}
		if j == i+1 || j >= len(runes) || !startsSentence(runes[j]) {
			continue
		}
		if s := strings.TrimSpace(string(cur)); s != "" {
			out = append(out, s)
		}
		cur = cur[:0]
		i = j - 1
	}
	if s := strings.TrimSpace(string(cur)); s != "" {
		out = append(out, s)
	}
	return out
}

func startsSentence(r rune) bool {
	return unicode.IsUpper(r) || unicode.IsDigit(r) || r == '(' || r == '[' || r == '{' || r == '"'
}

// classify labels each sentence CLAIM when it contains any claim keyword,
// case-insensitive. Pure and deterministic: the same sentence always gets
// the same label.
func (j *Judge) classify(sentences []string) []Sentence {
	keywords := j.cfg.keywords()
	out := make([]Sentence, 0, len(sentences))
	for i, s := range sentences {
		lower := strings.ToLower(s)
		label := LabelNonClaim
		for _, k := range keywords {
			if strings.Contains(lower, k) {
				label = LabelClaim
				break
			}
		}
		out = append(out, Sentence{
			Index:   i,
			Text:    s,
			Label:   label,
			Matches: emptyMatchSet(),
		})
	}
	return out
}
