package expr

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formval/pkg/visibility"
)

// Evaluator is a small, dependency-free evaluator for the JEXL subset used by
// question is_hidden/is_required expressions.
//
// Supported syntax:
//   - literals: 'text', "text", 12, 1.5, true, false, null, ['a', 'b']
//   - answer lookup: 'question-slug'|answer
//   - table columns: 'table-slug'|answer|mapby('column')
//   - the root form slug: form
//   - comparisons: ==, !=, <, <=, >, >=, in
//   - boolean composition: &&, ||, ! and parentheses
//
// Referencing a slug absent from visibility.Context.Answers fails with
// *visibility.MissingReferenceError. The final result is coerced to a boolean
// using JavaScript-like truthiness.
type Evaluator struct{}

func New() *Evaluator { return &Evaluator{} }

var _ visibility.Evaluator = (*Evaluator)(nil)

func (e *Evaluator) Evaluate(expression string, ctx visibility.Context) (bool, error) {
	trimmed := strings.TrimSpace(expression)
	if trimmed == "" {
		return false, errors.New("expr: empty expression")
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return false, err
	}

	node, err := parseExpression(tokens)
	if err != nil {
		return false, err
	}

	value, err := node.eval(ctx)
	if err != nil {
		return false, err
	}
	return truthy(value), nil
}

type tokenKind int

const (
	tokenIdentifier tokenKind = iota
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenEq
	tokenNeq
	tokenLt
	tokenLte
	tokenGt
	tokenGte
	tokenIn
	tokenAnd
	tokenOr
	tokenNot
	tokenPipe
	tokenComma
	tokenLParen
	tokenRParen
	tokenLBracket
	tokenRBracket
)

type token struct {
	kind tokenKind
	raw  string
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	consume := func() byte {
		if i >= len(input) {
			return 0
		}
		ch := input[i]
		i++
		return ch
	}

	emit := func(kind tokenKind, raw string) {
		tokens = append(tokens, token{kind: kind, raw: raw})
	}

	for i < len(input) {
		ch := next()
		if isSpace(ch) {
			i++
			continue
		}

		switch ch {
		case '(':
			consume()
			emit(tokenLParen, "(")
		case ')':
			consume()
			emit(tokenRParen, ")")
		case '[':
			consume()
			emit(tokenLBracket, "[")
		case ']':
			consume()
			emit(tokenRBracket, "]")
		case ',':
			consume()
			emit(tokenComma, ",")
		case '!':
			consume()
			if next() == '=' {
				consume()
				emit(tokenNeq, "!=")
				continue
			}
			emit(tokenNot, "!")
		case '=':
			consume()
			if next() != '=' {
				return nil, errors.New("expr: unexpected '='; use '=='")
			}
			consume()
			emit(tokenEq, "==")
		case '<':
			consume()
			if next() == '=' {
				consume()
				emit(tokenLte, "<=")
				continue
			}
			emit(tokenLt, "<")
		case '>':
			consume()
			if next() == '=' {
				consume()
				emit(tokenGte, ">=")
				continue
			}
			emit(tokenGt, ">")
		case '&':
			consume()
			if next() != '&' {
				return nil, errors.New("expr: unexpected '&'; use '&&'")
			}
			consume()
			emit(tokenAnd, "&&")
		case '|':
			consume()
			if next() == '|' {
				consume()
				emit(tokenOr, "||")
				continue
			}
			emit(tokenPipe, "|")
		case '"', '\'':
			value, err := readString(input, &i)
			if err != nil {
				return nil, err
			}
			emit(tokenString, value)
		default:
			start := i
			for i < len(input) && !isDelimiter(input[i]) {
				i++
			}
			raw := input[start:i]
			if raw == "" {
				return nil, fmt.Errorf("expr: unexpected character %q", string(ch))
			}
			switch raw {
			case "true", "false":
				emit(tokenBool, raw)
			case "null":
				emit(tokenNull, raw)
			case "in":
				emit(tokenIn, raw)
			default:
				if looksLikeNumber(raw) {
					emit(tokenNumber, raw)
				} else {
					emit(tokenIdentifier, raw)
				}
			}
		}
	}

	return tokens, nil
}

func readString(input string, pos *int) (string, error) {
	quote := input[*pos]
	*pos++
	var b strings.Builder
	for *pos < len(input) {
		c := input[*pos]
		*pos++
		switch {
		case c == '\\':
			if *pos >= len(input) {
				return "", errors.New("expr: unterminated string literal")
			}
			b.WriteByte(input[*pos])
			*pos++
		case c == quote:
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
	}
	return "", errors.New("expr: unterminated string literal")
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r'
}

func isDelimiter(ch byte) bool {
	if isSpace(ch) {
		return true
	}
	switch ch {
	case '(', ')', '[', ']', ',', '!', '=', '<', '>', '&', '|', '"', '\'':
		return true
	}
	return false
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	if raw[0] == '-' || raw[0] == '+' {
		raw = raw[1:]
	}
	if raw == "" {
		return false
	}
	_, err := strconv.ParseFloat(raw, 64)
	return err == nil
}

type tokenStream struct {
	tokens []token
	pos    int
}

func parseExpression(tokens []token) (exprNode, error) {
	if len(tokens) == 0 {
		return nil, errors.New("expr: empty expression")
	}
	stream := &tokenStream{tokens: tokens}
	node, err := parseOr(stream)
	if err != nil {
		return nil, err
	}
	if stream.pos < len(stream.tokens) {
		return nil, fmt.Errorf("expr: unexpected token %q", stream.tokens[stream.pos].raw)
	}
	return node, nil
}

func parseOr(stream *tokenStream) (exprNode, error) {
	left, err := parseAnd(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenOr) {
		right, err := parseAnd(stream)
		if err != nil {
			return nil, err
		}
		left = exprOr{left: left, right: right}
	}
	return left, nil
}

func parseAnd(stream *tokenStream) (exprNode, error) {
	left, err := parseComparison(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenAnd) {
		right, err := parseComparison(stream)
		if err != nil {
			return nil, err
		}
		left = exprAnd{left: left, right: right}
	}
	return left, nil
}

func parseComparison(stream *tokenStream) (exprNode, error) {
	left, err := parseUnary(stream)
	if err != nil {
		return nil, err
	}
	for _, op := range []tokenKind{tokenEq, tokenNeq, tokenLte, tokenLt, tokenGte, tokenGt, tokenIn} {
		if stream.match(op) {
			right, err := parseUnary(stream)
			if err != nil {
				return nil, err
			}
			return exprCompare{op: op, left: left, right: right}, nil
		}
	}
	return left, nil
}

func parseUnary(stream *tokenStream) (exprNode, error) {
	if stream.match(tokenNot) {
		inner, err := parseUnary(stream)
		if err != nil {
			return nil, err
		}
		return exprNot{inner: inner}, nil
	}
	return parsePostfix(stream)
}

func parsePostfix(stream *tokenStream) (exprNode, error) {
	node, err := parsePrimary(stream)
	if err != nil {
		return nil, err
	}
	for stream.match(tokenPipe) {
		name, ok := stream.consume(tokenIdentifier)
		if !ok {
			return nil, errors.New("expr: expected transform name after '|'")
		}
		var args []exprNode
		if stream.match(tokenLParen) {
			args, err = parseArguments(stream, tokenRParen)
			if err != nil {
				return nil, err
			}
		}
		node = exprTransform{subject: node, name: name.raw, args: args}
	}
	return node, nil
}

func parseArguments(stream *tokenStream, closing tokenKind) ([]exprNode, error) {
	var args []exprNode
	if stream.match(closing) {
		return args, nil
	}
	for {
		arg, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if stream.match(closing) {
			return args, nil
		}
		if !stream.match(tokenComma) {
			return nil, errors.New("expr: expected ',' or closing bracket")
		}
	}
}

func parsePrimary(stream *tokenStream) (exprNode, error) {
	if stream.pos >= len(stream.tokens) {
		return nil, errors.New("expr: unexpected end of expression")
	}
	tok := stream.tokens[stream.pos]
	stream.pos++

	switch tok.kind {
	case tokenLParen:
		inner, err := parseOr(stream)
		if err != nil {
			return nil, err
		}
		if !stream.match(tokenRParen) {
			return nil, errors.New("expr: missing closing ')'")
		}
		return inner, nil
	case tokenLBracket:
		items, err := parseArguments(stream, tokenRBracket)
		if err != nil {
			return nil, err
		}
		return exprList{items: items}, nil
	case tokenString:
		return exprLiteral{value: tok.raw}, nil
	case tokenNumber:
		f, err := strconv.ParseFloat(tok.raw, 64)
		if err != nil {
			return nil, fmt.Errorf("expr: invalid number literal %q", tok.raw)
		}
		return exprLiteral{value: f}, nil
	case tokenBool:
		return exprLiteral{value: tok.raw == "true"}, nil
	case tokenNull:
		return exprLiteral{value: nil}, nil
	case tokenIdentifier:
		return exprIdentifier{name: tok.raw}, nil
	default:
		return nil, fmt.Errorf("expr: unexpected token %q", tok.raw)
	}
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.pos >= len(s.tokens) {
		return false
	}
	if s.tokens[s.pos].kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) consume(kind tokenKind) (token, bool) {
	if s.pos >= len(s.tokens) {
		return token{}, false
	}
	if s.tokens[s.pos].kind != kind {
		return token{}, false
	}
	out := s.tokens[s.pos]
	s.pos++
	return out, true
}
