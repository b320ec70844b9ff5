// Package filter translates AIP-160 filter expressions into SQL conditions.
package filter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// Kind is the value type of a filterable field.
type Kind int

const (
	KindString Kind = iota
	KindInt
	KindBool
	// KindTimestamp fields are stored as unix milliseconds.
	KindTimestamp
)

// Field binds a filter identifier to a SQL column.
type Field struct {
	Column string
	Kind   Kind
	// Normalize rewrites string values before binding, e.g. to map
	// display names onto stored enum values.
	Normalize func(string) (string, error)
}

// Schema lists the fields a filter may reference, keyed by identifier.
type Schema map[string]Field

// Condition represents a SQL WHERE clause fragment with parameters.
type Condition struct {
	// Clause is the SQL WHERE clause (e.g., "status = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

// Empty reports whether the condition has no clause.
func (c Condition) Empty() bool {
	return c.Clause == ""
}

// Parse parses an AIP-160 filter expression against the schema.
// An empty filter string yields an empty condition.
func (s Schema) Parse(filterStr string) (Condition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return Condition{}, nil
	}

	decls, err := s.declarations()
	if err != nil {
		return Condition{}, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return Condition{}, fmt.Errorf("parse filter: %w", err)
	}

	return s.translateExpr(parsed.CheckedExpr.GetExpr())
}

func (s Schema) declarations() (*filtering.Declarations, error) {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	opts := []filtering.DeclarationOption{filtering.DeclareStandardFunctions()}
	for _, name := range names {
		opts = append(opts, filtering.DeclareIdent(name, declType(s[name].Kind)))
	}
	return filtering.NewDeclarations(opts...)
}

func declType(kind Kind) *expr.Type {
	switch kind {
	case KindInt:
		return filtering.TypeInt
	case KindBool:
		return filtering.TypeBool
	case KindTimestamp:
		return filtering.TypeTimestamp
	default:
		return filtering.TypeString
	}
}

func (s Schema) translateExpr(e *expr.Expr) (Condition, error) {
	if e == nil {
		return Condition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return s.translateCall(kind.CallExpr)
	case *expr.Expr_IdentExpr:
		// A bare boolean identifier, e.g. "reminded".
		field, ok := s[kind.IdentExpr.Name]
		if !ok || field.Kind != KindBool {
			return Condition{}, fmt.Errorf("unsupported bare identifier: %s", kind.IdentExpr.Name)
		}
		return Condition{Clause: field.Column + " = ?", Params: []any{true}}, nil
	default:
		return Condition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

var comparisons = map[string]string{
	"_==_": "=", "=": "=",
	"_!=_": "!=", "!=": "!=",
	"_<_": "<", "<": "<",
	"_<=_": "<=", "<=": "<=",
	"_>_": ">", ">": ">",
	"_>=_": ">=", ">=": ">=",
}

func (s Schema) translateCall(call *expr.Expr_Call) (Condition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return s.translateJunction(call.Args, "AND")
	case "_||_", "OR":
		return s.translateJunction(call.Args, "OR")
	case "NOT":
		if len(call.Args) != 1 {
			return Condition{}, fmt.Errorf("NOT requires 1 argument")
		}
		inner, err := s.translateExpr(call.Args[0])
		if err != nil {
			return Condition{}, err
		}
		return Condition{Clause: "NOT " + inner.Clause, Params: inner.Params}, nil
	}
	if op, ok := comparisons[call.Function]; ok {
		return s.translateComparison(call.Args, op)
	}
	return Condition{}, fmt.Errorf("unsupported function: %s", call.Function)
}

func (s Schema) translateJunction(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("%s requires 2 arguments", op)
	}

	left, err := s.translateExpr(args[0])
	if err != nil {
		return Condition{}, err
	}
	right, err := s.translateExpr(args[1])
	if err != nil {
		return Condition{}, err
	}

	params := make([]any, 0, len(left.Params)+len(right.Params))
	params = append(params, left.Params...)
	params = append(params, right.Params...)
	return Condition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: params,
	}, nil
}

func (s Schema) translateComparison(args []*expr.Expr, op string) (Condition, error) {
	if len(args) != 2 {
		return Condition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	name, err := identName(args[0])
	if err != nil {
		return Condition{}, err
	}
	field, ok := s[name]
	if !ok {
		return Condition{}, fmt.Errorf("unknown field: %s", name)
	}

	value, err := constValue(args[1])
	if err != nil {
		return Condition{}, err
	}
	value, err = field.bind(value)
	if err != nil {
		return Condition{}, fmt.Errorf("field %s: %w", name, err)
	}

	return Condition{
		Clause: fmt.Sprintf("%s %s ?", field.Column, op),
		Params: []any{value},
	}, nil
}

func (f Field) bind(value any) (any, error) {
	switch f.Kind {
	case KindTimestamp:
		t, ok := value.(time.Time)
		if !ok {
			return nil, fmt.Errorf("expected timestamp, got %T", value)
		}
		return t.UnixMilli(), nil
	case KindString:
		str, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", value)
		}
		if f.Normalize != nil {
			return f.Normalize(str)
		}
		return str, nil
	default:
		return value, nil
	}
}

func identName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}
	ident, ok := e.ExprKind.(*expr.Expr_IdentExpr)
	if !ok {
		return "", fmt.Errorf("expected identifier, got %T", e.ExprKind)
	}
	return ident.IdentExpr.Name, nil
}

func constValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_ConstExpr:
		switch c := kind.ConstExpr.GetConstantKind().(type) {
		case *expr.Constant_StringValue:
			return c.StringValue, nil
		case *expr.Constant_Int64Value:
			return c.Int64Value, nil
		case *expr.Constant_BoolValue:
			return c.BoolValue, nil
		default:
			return nil, fmt.Errorf("unsupported constant type: %T", c)
		}
	case *expr.Expr_IdentExpr:
		// Booleans parse as identifiers.
		switch kind.IdentExpr.Name {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
		return nil, fmt.Errorf("unexpected identifier in value position: %s", kind.IdentExpr.Name)
	case *expr.Expr_CallExpr:
		if kind.CallExpr.Function == "timestamp" && len(kind.CallExpr.Args) == 1 {
			return timestampValue(kind.CallExpr.Args[0])
		}
		return nil, fmt.Errorf("unsupported function in value position: %s", kind.CallExpr.Function)
	default:
		return nil, fmt.Errorf("expected constant or timestamp, got %T", kind)
	}
}

func timestampValue(e *expr.Expr) (time.Time, error) {
	c, ok := e.GetExprKind().(*expr.Expr_ConstExpr)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a constant string")
	}
	str, ok := c.ConstExpr.GetConstantKind().(*expr.Constant_StringValue)
	if !ok {
		return time.Time{}, fmt.Errorf("timestamp argument must be a string")
	}
	t, err := time.Parse(time.RFC3339Nano, str.StringValue)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp format: %s", str.StringValue)
	}
	return t.UTC(), nil
}
