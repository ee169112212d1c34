package sql

import (
	"fmt"
	"strconv"
	"strings"
)

// splitCommaSeparated splits s on commas that are outside quotes and
// parentheses, trimming each part and dropping empty ones.
func splitCommaSeparated(s string) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			if p := strings.TrimSpace(s[start:i]); p != "" {
				out = append(out, p)
			}
			start = i + 1
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		out = append(out, p)
	}
	return out
}

// indexKeyword finds keyword (upper case) in s outside quotes, as a whole word.
func indexKeyword(s, keyword string) int {
	upper := strings.ToUpper(s)
	inQuote := false
	for i := 0; i+len(keyword) <= len(s); i++ {
		if s[i] == '\'' {
			inQuote = !inQuote
			continue
		}
		if inQuote || upper[i:i+len(keyword)] != keyword {
			continue
		}
		if i > 0 && isIdentByte(s[i-1]) {
			continue
		}
		if end := i + len(keyword); end < len(s) && isIdentByte(s[end]) {
			continue
		}
		return i
	}
	return -1
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// matchingParen returns the index of the ')' closing the '(' at open.
func matchingParen(s string, open int) int {
	depth := 0
	inQuote := false
	for i := open; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// parseValueExpr turns one VALUES item into a constant or bind-variable node.
func parseValueExpr(tok string, position int) (*ExpressionNode, error) {
	s := strings.TrimSpace(tok)
	if strings.HasPrefix(s, "$") {
		n, err := strconv.Atoi(s[1:])
		if err != nil || n < 1 {
			return nil, fmt.Errorf("invalid bind variable %q", s)
		}
		return &ExpressionNode{Type: ExprBindVariable, Token: s, Position: position}, nil
	}
	if _, err := ParseLiteral(s); err != nil {
		return nil, err
	}
	return &ExpressionNode{Type: ExprConstant, Token: s, Position: position}, nil
}

// BindVariableIndex returns n for a "$n" token.
func BindVariableIndex(token string) (int, error) {
	if !strings.HasPrefix(token, "$") {
		return 0, fmt.Errorf("not a bind variable: %q", token)
	}
	return strconv.Atoi(token[1:])
}

// ParseLiteral parses a single literal token into a Value.
// Supports:
//   - integers:  1, 42
//   - floats:    3.14, 1e3
//   - strings:   'Alice', 'O''Brien'
//   - booleans:  true / false (case-insensitive)
//   - NULL
func ParseLiteral(tok string) (Value, error) {
	s := strings.TrimSpace(tok)
	if s == "" {
		return Value{}, fmt.Errorf("empty literal")
	}

	upper := strings.ToUpper(s)

	if upper == "TRUE" {
		return BoolValue(true), nil
	}
	if upper == "FALSE" {
		return BoolValue(false), nil
	}
	if upper == "NULL" {
		return Null, nil
	}

	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return StringValue(strings.ReplaceAll(s[1:len(s)-1], "''", "'")), nil
	}

	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return IntValue(i), nil
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return DoubleValue(f), nil
	}

	return Value{}, fmt.Errorf("cannot parse literal %q", tok)
}
