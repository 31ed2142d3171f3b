package ascgrid

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"

	"github.com/custodia-labs/lidarqc/internal/core/domain"
)

// evalFunc computes one output cell from the input cells indexed by variable.
type evalFunc func(vars *[26]float64) float64

// Expr is a compiled cell-wise expression over variables A to Z.
// Comparisons and logical operators yield 1 or 0.
type Expr struct {
	src  string
	eval evalFunc
	vars []byte
}

// Compile parses an algebra expression such as "A*(B==1) + -9999*(B!=1)".
func Compile(src string) (*Expr, error) {
	node, err := parser.ParseExpr(src)
	if err != nil {
		return nil, fmt.Errorf("%w: expression %q: %v", domain.ErrInvalidInput, src, err)
	}
	e := &Expr{src: src}
	seen := map[byte]bool{}
	e.eval, err = compile(node, seen)
	if err != nil {
		return nil, fmt.Errorf("%w: expression %q: %v", domain.ErrInvalidInput, src, err)
	}
	for v := byte('A'); v <= 'Z'; v++ {
		if seen[v] {
			e.vars = append(e.vars, v)
		}
	}
	return e, nil
}

// Vars returns the referenced variable letters in order.
func (e *Expr) Vars() []byte {
	return e.vars
}

// Eval evaluates the expression for one cell.
func (e *Expr) Eval(vars *[26]float64) float64 {
	return e.eval(vars)
}

func (e *Expr) String() string {
	return e.src
}

func boolf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

func compile(n ast.Expr, seen map[byte]bool) (evalFunc, error) {
	switch n := n.(type) {
	case *ast.ParenExpr:
		return compile(n.X, seen)

	case *ast.BasicLit:
		if n.Kind != token.INT && n.Kind != token.FLOAT {
			return nil, fmt.Errorf("unsupported literal %s", n.Value)
		}
		v, err := strconv.ParseFloat(n.Value, 64)
		if err != nil {
			return nil, err
		}
		return func(*[26]float64) float64 { return v }, nil

	case *ast.Ident:
		if len(n.Name) != 1 || n.Name[0] < 'A' || n.Name[0] > 'Z' {
			return nil, fmt.Errorf("unknown variable %s", n.Name)
		}
		idx := n.Name[0] - 'A'
		seen[n.Name[0]] = true
		return func(vars *[26]float64) float64 { return vars[idx] }, nil

	case *ast.UnaryExpr:
		x, err := compile(n.X, seen)
		if err != nil {
			return nil, err
		}
		switch n.Op {
		case token.SUB:
			return func(v *[26]float64) float64 { return -x(v) }, nil
		case token.ADD:
			return x, nil
		case token.NOT:
			return func(v *[26]float64) float64 { return boolf(x(v) == 0) }, nil
		}
		return nil, fmt.Errorf("unsupported operator %s", n.Op)

	case *ast.BinaryExpr:
		return compileBinary(n, seen)
	}
	return nil, fmt.Errorf("unsupported syntax %T", n)
}

func compileBinary(n *ast.BinaryExpr, seen map[byte]bool) (evalFunc, error) {
	x, err := compile(n.X, seen)
	if err != nil {
		return nil, err
	}
	y, err := compile(n.Y, seen)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case token.ADD:
		return func(v *[26]float64) float64 { return x(v) + y(v) }, nil
	case token.SUB:
		return func(v *[26]float64) float64 { return x(v) - y(v) }, nil
	case token.MUL:
		return func(v *[26]float64) float64 { return x(v) * y(v) }, nil
	case token.QUO:
		return func(v *[26]float64) float64 { return x(v) / y(v) }, nil
	case token.GTR:
		return func(v *[26]float64) float64 { return boolf(x(v) > y(v)) }, nil
	case token.GEQ:
		return func(v *[26]float64) float64 { return boolf(x(v) >= y(v)) }, nil
	case token.LSS:
		return func(v *[26]float64) float64 { return boolf(x(v) < y(v)) }, nil
	case token.LEQ:
		return func(v *[26]float64) float64 { return boolf(x(v) <= y(v)) }, nil
	case token.EQL:
		return func(v *[26]float64) float64 { return boolf(x(v) == y(v)) }, nil
	case token.NEQ:
		return func(v *[26]float64) float64 { return boolf(x(v) != y(v)) }, nil
	case token.LAND, token.AND:
		return func(v *[26]float64) float64 { return boolf(x(v) != 0 && y(v) != 0) }, nil
	case token.LOR, token.OR:
		return func(v *[26]float64) float64 { return boolf(x(v) != 0 || y(v) != 0) }, nil
	}
	return nil, fmt.Errorf("unsupported operator %s", n.Op)
}
