package expr

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/goliatone/go-formval/pkg/visibility"
)

type exprNode interface {
	eval(ctx visibility.Context) (any, error)
}

type exprLiteral struct {
	value any
}

func (n exprLiteral) eval(visibility.Context) (any, error) {
	return n.value, nil
}

type exprList struct {
	items []exprNode
}

func (n exprList) eval(ctx visibility.Context) (any, error) {
	out := make([]any, 0, len(n.items))
	for _, item := range n.items {
		value, err := item.eval(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, value)
	}
	return out, nil
}

// Unknown identifiers evaluate to null, mirroring JEXL's undefined.
type exprIdentifier struct {
	name string
}

func (n exprIdentifier) eval(ctx visibility.Context) (any, error) {
	if n.name == "form" {
		return ctx.Form, nil
	}
	return nil, nil
}

type exprOr struct {
	left  exprNode
	right exprNode
}

func (n exprOr) eval(ctx visibility.Context) (any, error) {
	left, right, err := evalBoth(n.left, n.right, ctx)
	if err != nil {
		return nil, err
	}
	return truthy(left) || truthy(right), nil
}

type exprAnd struct {
	left  exprNode
	right exprNode
}

func (n exprAnd) eval(ctx visibility.Context) (any, error) {
	left, right, err := evalBoth(n.left, n.right, ctx)
	if err != nil {
		return nil, err
	}
	return truthy(left) && truthy(right), nil
}

// evalBoth evaluates both operands before truthiness is applied, so a missing
// reference on either side is always reported.
func evalBoth(left, right exprNode, ctx visibility.Context) (any, any, error) {
	l, err := left.eval(ctx)
	if err != nil {
		return nil, nil, err
	}
	r, err := right.eval(ctx)
	if err != nil {
		return nil, nil, err
	}
	return l, r, nil
}

type exprNot struct {
	inner exprNode
}

func (n exprNot) eval(ctx visibility.Context) (any, error) {
	value, err := n.inner.eval(ctx)
	if err != nil {
		return nil, err
	}
	return !truthy(value), nil
}

type exprTransform struct {
	subject exprNode
	name    string
	args    []exprNode
}

func (n exprTransform) eval(ctx visibility.Context) (any, error) {
	subject, err := n.subject.eval(ctx)
	if err != nil {
		return nil, err
	}
	args := make([]any, 0, len(n.args))
	for _, arg := range n.args {
		value, err := arg.eval(ctx)
		if err != nil {
			return nil, err
		}
		args = append(args, value)
	}

	switch n.name {
	case "answer":
		slug, ok := subject.(string)
		if !ok {
			return nil, fmt.Errorf("expr: answer transform expects a question slug, got %T", subject)
		}
		value, ok := ctx.Answers[slug]
		if !ok {
			return nil, &visibility.MissingReferenceError{Slug: slug}
		}
		return value, nil
	case "mapby":
		if len(args) != 1 {
			return nil, fmt.Errorf("expr: mapby expects one argument, got %d", len(args))
		}
		key, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("expr: mapby expects a string key, got %T", args[0])
		}
		return mapBy(subject, key)
	default:
		return nil, fmt.Errorf("expr: unknown transform %q", n.name)
	}
}

func mapBy(subject any, key string) (any, error) {
	if subject == nil {
		return []any{}, nil
	}
	rows, ok := subject.([]any)
	if !ok {
		return nil, fmt.Errorf("expr: mapby expects a list, got %T", subject)
	}
	out := make([]any, 0, len(rows))
	for _, row := range rows {
		mapping, ok := row.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("expr: mapby expects a list of mappings, got %T", row)
		}
		out = append(out, mapping[key])
	}
	return out, nil
}

type exprCompare struct {
	op    tokenKind
	left  exprNode
	right exprNode
}

func (n exprCompare) eval(ctx visibility.Context) (any, error) {
	left, err := n.left.eval(ctx)
	if err != nil {
		return nil, err
	}
	right, err := n.right.eval(ctx)
	if err != nil {
		return nil, err
	}

	switch n.op {
	case tokenEq:
		return equal(left, right), nil
	case tokenNeq:
		return !equal(left, right), nil
	case tokenIn:
		return contains(right, left)
	default:
		return order(n.op, left, right)
	}
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, ok := number(a); ok {
		bf, ok := number(b)
		return ok && af == bf
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func contains(haystack, needle any) (bool, error) {
	switch h := haystack.(type) {
	case nil:
		return false, nil
	case []any:
		for _, item := range h {
			if equal(item, needle) {
				return true, nil
			}
		}
		return false, nil
	case []string:
		s, ok := needle.(string)
		if !ok {
			return false, nil
		}
		for _, item := range h {
			if item == s {
				return true, nil
			}
		}
		return false, nil
	case string:
		s, ok := needle.(string)
		if !ok {
			return false, fmt.Errorf("expr: cannot test %T in string", needle)
		}
		return strings.Contains(h, s), nil
	default:
		return false, fmt.Errorf("expr: 'in' expects a list or string, got %T", haystack)
	}
}

func order(op tokenKind, left, right any) (bool, error) {
	if lf, ok := number(left); ok {
		rf, ok := number(right)
		if !ok {
			return false, fmt.Errorf("expr: cannot compare %T with %T", left, right)
		}
		return compareOrdered(op, lf, rf), nil
	}
	ls, lok := left.(string)
	rs, rok := right.(string)
	if lok && rok {
		return compareOrdered(op, ls, rs), nil
	}
	return false, fmt.Errorf("expr: cannot compare %T with %T", left, right)
}

func compareOrdered[T float64 | string](op tokenKind, a, b T) bool {
	switch op {
	case tokenLt:
		return a < b
	case tokenLte:
		return a <= b
	case tokenGt:
		return a > b
	case tokenGte:
		return a >= b
	default:
		return false
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

func truthy(value any) bool {
	if value == nil {
		return false
	}
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v != ""
	case []any:
		return true
	case map[string]any:
		return true
	default:
		if f, ok := number(value); ok {
			return f != 0
		}
		return true
	}
}
