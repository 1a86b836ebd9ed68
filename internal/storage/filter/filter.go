// Package filter translates AIP-160 filter expressions over archived rounds
// into SQL conditions.
package filter

import (
	"fmt"
	"strings"

	"github.com/louisbranch/cardguess/internal/guess/domain"
	"go.einride.tech/aip/filtering"
	expr "google.golang.org/genproto/googleapis/api/expr/v1alpha1"
)

// RoundDeclarations returns the field declarations for round filtering.
func RoundDeclarations() (*filtering.Declarations, error) {
	return filtering.NewDeclarations(
		filtering.DeclareStandardFunctions(),
		filtering.DeclareIdent("round", filtering.TypeInt),
		filtering.DeclareIdent("human_guess", filtering.TypeString),
		filtering.DeclareIdent("draw", filtering.TypeString),
		filtering.DeclareIdent("human_result", filtering.TypeString),
		filtering.DeclareIdent("opponent_guess", filtering.TypeString),
		filtering.DeclareIdent("opponent_result", filtering.TypeString),
		filtering.DeclareIdent("human_score", filtering.TypeInt),
		filtering.DeclareIdent("opponent_score", filtering.TypeInt),
	)
}

// SQLCondition represents a SQL WHERE clause fragment with parameters.
type SQLCondition struct {
	// Clause is the SQL WHERE clause (e.g., "draw = ?").
	Clause string
	// Params are the positional parameters for the clause.
	Params []any
}

type fieldKind int

const (
	kindNumber fieldKind = iota
	kindOutcome
	kindResult
)

type field struct {
	column string
	kind   fieldKind
}

// fields maps filter field names to SQL columns of the rounds table.
var fields = map[string]field{
	"round":           {column: "round_index", kind: kindNumber},
	"human_guess":     {column: "human_guess", kind: kindOutcome},
	"draw":            {column: "draw", kind: kindOutcome},
	"human_result":    {column: "human_result", kind: kindResult},
	"opponent_guess":  {column: "opponent_guess", kind: kindOutcome},
	"opponent_result": {column: "opponent_result", kind: kindResult},
	"human_score":     {column: "human_score", kind: kindNumber},
	"opponent_score":  {column: "opponent_score", kind: kindNumber},
}

// ParseRoundFilter parses an AIP-160 filter expression and returns a SQL
// condition. Returns an empty condition for an empty filter string.
//
// Colour and result values are matched case-insensitively, so
// `draw = "red"` selects the same rows as `draw = "Red"`.
func ParseRoundFilter(filterStr string) (SQLCondition, error) {
	if strings.TrimSpace(filterStr) == "" {
		return SQLCondition{}, nil
	}

	decls, err := RoundDeclarations()
	if err != nil {
		return SQLCondition{}, fmt.Errorf("create declarations: %w", err)
	}

	parsed, err := filtering.ParseFilterString(filterStr, decls)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("parse filter: %w", err)
	}

	return translateExpr(parsed.CheckedExpr.GetExpr())
}

// translateExpr translates a CEL expression to a SQL condition.
func translateExpr(e *expr.Expr) (SQLCondition, error) {
	if e == nil {
		return SQLCondition{}, nil
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_CallExpr:
		return translateCall(kind.CallExpr)
	default:
		return SQLCondition{}, fmt.Errorf("unsupported expression type: %T", kind)
	}
}

// translateCall translates a CEL function call to a SQL condition.
func translateCall(call *expr.Expr_Call) (SQLCondition, error) {
	switch call.Function {
	case "_&&_", "AND":
		return translateLogical(call.Args, "AND")
	case "_||_", "OR":
		return translateLogical(call.Args, "OR")
	case "_==_", "=":
		return translateComparison(call.Args, "=")
	case "_!=_", "!=":
		return translateComparison(call.Args, "!=")
	case "_<_", "<":
		return translateComparison(call.Args, "<")
	case "_<=_", "<=":
		return translateComparison(call.Args, "<=")
	case "_>_", ">":
		return translateComparison(call.Args, ">")
	case "_>=_", ">=":
		return translateComparison(call.Args, ">=")
	default:
		return SQLCondition{}, fmt.Errorf("unsupported function: %s", call.Function)
	}
}

func translateLogical(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("%s requires 2 arguments", op)
	}

	left, err := translateExpr(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	right, err := translateExpr(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	return SQLCondition{
		Clause: fmt.Sprintf("(%s %s %s)", left.Clause, op, right.Clause),
		Params: append(left.Params, right.Params...),
	}, nil
}

func translateComparison(args []*expr.Expr, op string) (SQLCondition, error) {
	if len(args) != 2 {
		return SQLCondition{}, fmt.Errorf("comparison requires 2 arguments")
	}

	name, err := extractFieldName(args[0])
	if err != nil {
		return SQLCondition{}, err
	}

	f, ok := fields[name]
	if !ok {
		return SQLCondition{}, fmt.Errorf("unknown field: %s", name)
	}

	value, err := extractConstValue(args[1])
	if err != nil {
		return SQLCondition{}, err
	}

	value, err = normalizeValue(f, op, value)
	if err != nil {
		return SQLCondition{}, fmt.Errorf("field %s: %w", name, err)
	}

	return SQLCondition{
		Clause: fmt.Sprintf("%s %s ?", f.column, op),
		Params: []any{value},
	}, nil
}

// normalizeValue maps enum values onto their stored spelling. Enum fields
// only support equality.
func normalizeValue(f field, op string, value any) (any, error) {
	if f.kind == kindNumber {
		return value, nil
	}
	if op != "=" && op != "!=" {
		return nil, fmt.Errorf("operator %s is not supported", op)
	}
	text, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("expected string value, got %T", value)
	}
	switch f.kind {
	case kindOutcome:
		outcome, err := domain.ParseOutcome(text)
		if err != nil {
			return nil, err
		}
		return outcome.String(), nil
	default:
		result, err := domain.ParseResult(text)
		if err != nil {
			return nil, err
		}
		return result.String(), nil
	}
}

func extractFieldName(e *expr.Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil expression")
	}

	switch kind := e.ExprKind.(type) {
	case *expr.Expr_IdentExpr:
		return kind.IdentExpr.Name, nil
	default:
		return "", fmt.Errorf("expected identifier, got %T", kind)
	}
}

func extractConstValue(e *expr.Expr) (any, error) {
	if e == nil {
		return nil, fmt.Errorf("nil expression")
	}
	constExpr, ok := e.ExprKind.(*expr.Expr_ConstExpr)
	if !ok || constExpr.ConstExpr == nil {
		return nil, fmt.Errorf("expected constant, got %T", e.ExprKind)
	}

	switch kind := constExpr.ConstExpr.ConstantKind.(type) {
	case *expr.Constant_StringValue:
		return kind.StringValue, nil
	case *expr.Constant_Int64Value:
		return kind.Int64Value, nil
	case *expr.Constant_Uint64Value:
		return kind.Uint64Value, nil
	case *expr.Constant_DoubleValue:
		return kind.DoubleValue, nil
	default:
		return nil, fmt.Errorf("unsupported constant type: %T", kind)
	}
}
