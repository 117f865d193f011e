package grading

import (
	"strconv"
	"unicode"

	"github.com/pmezard/go-difflib/difflib"
)

// Kind classifies a token.
type Kind int

const (
	KindWord Kind = iota
	KindInteger
	KindFloat
)

func (k Kind) String() string {
	switch k {
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	default:
		return "word"
	}
}

// Token is one word or number from program output. Whitespace never forms a token.
type Token struct {
	Text  string
	Kind  Kind
	Value float64
}

// Numeric reports whether the token is an integer or a float.
func (t Token) Numeric() bool {
	return t.Kind == KindInteger || t.Kind == KindFloat
}

// Tokenize splits output into words and numbers.
//
// Numbers are an optional sign followed by digits, with an optional
// fractional part; a float may omit the integer digits ("-.5"). Words are
// runs of anything else except whitespace, digits, '.', '+' and '-'; a
// lone '.', '+' or '-' is a word of its own.
func Tokenize(s string) []Token {
	rs := []rune(s)
	var tokens []Token

	for i := 0; i < len(rs); {
		r := rs[i]
		if unicode.IsSpace(r) {
			i++
			continue
		}

		if end, kind, ok := scanNumber(rs, i); ok {
			text := string(rs[i:end])
			value, _ := strconv.ParseFloat(text, 64)
			tokens = append(tokens, Token{Text: text, Kind: kind, Value: value})
			i = end
			continue
		}

		if isPunct(r) {
			tokens = append(tokens, Token{Text: string(r), Kind: KindWord})
			i++
			continue
		}

		end := i
		for end < len(rs) && !unicode.IsSpace(rs[end]) && !isDigit(rs[end]) && !isPunct(rs[end]) {
			end++
		}
		tokens = append(tokens, Token{Text: string(rs[i:end]), Kind: KindWord})
		i = end
	}

	return tokens
}

func scanNumber(rs []rune, start int) (int, Kind, bool) {
	j := start
	if rs[j] == '+' || rs[j] == '-' {
		j++
	}

	digitsStart := j
	for j < len(rs) && isDigit(rs[j]) {
		j++
	}
	intDigits := j - digitsStart

	if j+1 < len(rs) && rs[j] == '.' && isDigit(rs[j+1]) {
		j++
		for j < len(rs) && isDigit(rs[j]) {
			j++
		}
		return j, KindFloat, true
	}
	if intDigits > 0 {
		return j, KindInteger, true
	}
	return start, KindWord, false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

func isPunct(r rune) bool {
	return r == '.' || r == '+' || r == '-'
}

// matchTokens marks the positions of a and b that fall inside the matching
// blocks difflib finds between the two token sequences.
func matchTokens(a, b []Token) ([]bool, []bool) {
	inA := make([]bool, len(a))
	inB := make([]bool, len(b))
	for _, m := range difflib.NewMatcher(texts(a), texts(b)).GetMatchingBlocks() {
		for k := 0; k < m.Size; k++ {
			inA[m.A+k] = true
			inB[m.B+k] = true
		}
	}
	return inA, inB
}

// editCount is the number of runes inserted or deleted to turn a into b.
func editCount(a, b string) int {
	ra, rb := runes(a), runes(b)
	matched := 0
	for _, m := range difflib.NewMatcher(ra, rb).GetMatchingBlocks() {
		matched += m.Size
	}
	return len(ra) + len(rb) - 2*matched
}

func texts(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Text
	}
	return out
}

func runes(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
