package routing

type tokenType int

const (
	tokenIllegal tokenType = iota
	tokenLParen
	tokenRParen
	tokenComma
	tokenAnd
	tokenOr
	tokenNot
	tokenEquals
	tokenStartsWith
	tokenAttribute
	tokenLiteral
)

func (t tokenType) String() string {
	switch t {
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenComma:
		return "','"
	case tokenAnd:
		return "'&'"
	case tokenOr:
		return "'|'"
	case tokenNot:
		return "'not'"
	case tokenEquals:
		return "'equals'"
	case tokenStartsWith:
		return "'startswith'"
	case tokenAttribute:
		return "attribute"
	case tokenLiteral:
		return "literal"
	default:
		return "illegal token"
	}
}

type token struct {
	typ  tokenType
	text string
	pos  int
}

// tokenize scans the whole match clause up front so the parser can report
// every problem in one pass. Illegal characters and unknown words become
// illegal tokens instead of aborting the scan.
func tokenize(input string) []token {
	var tokens []token
	i := 0
	for i < len(input) {
		c := input[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '(':
			tokens = append(tokens, token{typ: tokenLParen, text: "(", pos: i})
			i++
		case c == ')':
			tokens = append(tokens, token{typ: tokenRParen, text: ")", pos: i})
			i++
		case c == ',':
			tokens = append(tokens, token{typ: tokenComma, text: ",", pos: i})
			i++
		case c == '&':
			tokens = append(tokens, token{typ: tokenAnd, text: "&", pos: i})
			i++
		case c == '|':
			tokens = append(tokens, token{typ: tokenOr, text: "|", pos: i})
			i++
		case c == '\'':
			lit, end, ok := scanLiteral(input, i)
			if !ok {
				tokens = append(tokens, token{typ: tokenIllegal, text: input[i:], pos: i})
				return tokens
			}
			tokens = append(tokens, token{typ: tokenLiteral, text: lit, pos: i})
			i = end
		case isWordChar(c):
			start := i
			for i < len(input) && isWordChar(input[i]) {
				i++
			}
			word := input[start:i]
			tokens = append(tokens, classifyWord(word, start))
		default:
			tokens = append(tokens, token{typ: tokenIllegal, text: string(c), pos: i})
			i++
		}
	}
	return tokens
}

// scanLiteral consumes a single-quoted literal starting at input[start].
// Returns the unquoted value and the index after the closing quote.
func scanLiteral(input string, start int) (string, int, bool) {
	for j := start + 1; j < len(input); j++ {
		if input[j] == '\'' {
			return input[start+1 : j], j + 1, true
		}
	}
	return "", 0, false
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '_'
}

func classifyWord(word string, pos int) token {
	switch word {
	case "not":
		return token{typ: tokenNot, text: word, pos: pos}
	case "equals":
		return token{typ: tokenEquals, text: word, pos: pos}
	case "startswith":
		return token{typ: tokenStartsWith, text: word, pos: pos}
	}
	if _, ok := ParseAttribute(word); ok {
		return token{typ: tokenAttribute, text: word, pos: pos}
	}
	return token{typ: tokenIllegal, text: word, pos: pos}
}
