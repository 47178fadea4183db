package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// Token is one word of the normalized query.
type Token struct {
	Text  string
	Lower string
	Span  types.Span
}

// Input is the normalized query every recognizer reads. Text keeps the
// user's casing; Lower is an ASCII-lowercased copy with identical byte
// offsets so spans found in either apply to both.
type Input struct {
	Text    string
	Lower   string
	Tokens  []Token
	Context types.TermContext
}

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}][\p{L}\p{N}'’.+%\-]*`)

// NewInput collapses whitespace, builds the lowercase copy and tokenizes.
func NewInput(raw string, tc types.TermContext) *Input {
	text := strings.Join(strings.Fields(raw), " ")
	in := &Input{Text: text, Lower: asciiLower(text), Context: tc}
	for _, loc := range tokenPattern.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		for end > start+1 && strings.ContainsRune(".'’-", rune(text[end-1])) {
			end--
		}
		in.Tokens = append(in.Tokens, Token{
			Text:  text[start:end],
			Lower: in.Lower[start:end],
			Span:  types.Span{Start: start, End: end},
		})
	}
	return in
}

// asciiLower lowercases A-Z only, leaving every other byte in place.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// tokensBefore returns up to n tokens that end at or before offset.
func (in *Input) tokensBefore(offset, n int) []Token {
	var out []Token
	for i := len(in.Tokens) - 1; i >= 0 && len(out) < n; i-- {
		if in.Tokens[i].Span.End <= offset {
			out = append(out, in.Tokens[i])
		}
	}
	return out
}

// tokensAfter returns up to n tokens that start at or after offset.
func (in *Input) tokensAfter(offset, n int) []Token {
	var out []Token
	for _, tok := range in.Tokens {
		if tok.Span.Start >= offset {
			out = append(out, tok)
			if len(out) == n {
				break
			}
		}
	}
	return out
}

// stopwords are function words and structural words that never count as
// unrecognized content.
var stopwords = toSet(
	"a", "an", "the", "and", "or", "nor", "of", "in", "on", "at", "to", "for", "from", "by", "with",
	"without", "into", "during", "than", "as", "that", "which", "where", "who", "whose", "what",
	"when", "how", "many", "much", "is", "are", "was", "were", "be", "been", "being", "had", "has",
	"have", "do", "does", "did", "i", "me", "my", "we", "us", "our", "you", "your", "it", "its",
	"they", "them", "their", "there", "this", "these", "those", "any", "all", "some", "show",
	"find", "list", "give", "get", "got", "getting", "want", "need", "looking", "look", "see",
	"please", "can", "could", "would", "should", "will", "tell", "about", "only", "just", "also",
	"classes", "class", "courses", "course", "sections", "section", "offerings", "grade",
	"grades", "distribution", "distributions", "taught", "teach", "teaching", "teaches",
	"semester", "semesters", "term", "terms", "students", "student", "people", "kids",
	"above", "below", "over", "under", "more", "less", "fewer", "most", "least", "between",
	"greater", "higher", "lower", "exactly", "at", "not", "no", "zero", "none", "except",
	"excluding", "other", "but", "like", "percent", "gpa", "average", "avg", "received",
	"earned", "made", "scored", "level", "number", "numbered",
)

func toSet(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

// isStopword reports whether a lowercased token is structural.
func isStopword(lower string) bool {
	return stopwords[strings.Trim(lower, "'’")]
}

// domainWords are words the recognizers treat as query vocabulary rather
// than names or titles.
var domainWords = toSet(
	"fall", "spring", "summer", "winter", "autumn", "last", "next", "previous", "past",
	"upcoming", "coming", "current", "professor", "prof", "dr", "instructor", "instructors",
	"undergraduate", "undergrad", "graduate", "grad", "top", "bottom", "largest", "biggest",
	"smallest", "easiest", "hardest", "popular", "enrolled", "enrollment", "credit", "credits",
	"hours", "size", "titled", "called", "named", "nobody", "everyone", "failed", "passed",
	"which", "were", "who", "why", "any", "compare", "comparing", "sort", "sorted", "rank",
	"ranked", "highest", "lowest", "best", "worst", "fail", "failures", "failing",
)

// isVocabulary reports whether a token is query vocabulary: a stopword, a
// domain word or a letter grade form.
func isVocabulary(lower string) bool {
	w := strings.Trim(lower, "'’.")
	return stopwords[w] || domainWords[w] || isGradeToken(w)
}

var gradeTokenPattern = regexp.MustCompile(`^[abcdf][+\-]?(?:s|'s|’s)?$`)

func isGradeToken(lower string) bool {
	return gradeTokenPattern.MatchString(lower)
}

// isCapitalized reports whether a token starts with an upper-case ASCII
// letter and contains at least one lower-case letter.
func isCapitalized(word string) bool {
	if word == "" || word[0] < 'A' || word[0] > 'Z' {
		return false
	}
	return strings.ToUpper(word) != word
}

// boundaryAfter reports whether offset is the end of text or sits before a
// character that cannot continue a word.
func boundaryAfter(text string, offset int) bool {
	if offset >= len(text) {
		return true
	}
	c := text[offset]
	return !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '+' || c == '-' || c == '_')
}
