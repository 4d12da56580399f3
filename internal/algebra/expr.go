package algebra

import "github.com/aleksaelezovic/oxifuj/internal/rdf"

// Expr is a SPARQL scalar expression (§4.7's "Expression engine").
type Expr interface {
	exprNode()
}

// VarExpr references a variable's current binding.
type VarExpr struct{ Var Var }

// ConstExpr is a literal or IRI constant.
type ConstExpr struct{ Value rdf.Term }

// BinOp enumerates binary operators.
type BinOp int

const (
	OpOr BinOp = iota
	OpAnd
	OpEqual
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
	OpAdd
	OpSubtract
	OpMultiply
	OpDivide
	OpIn
	OpNotIn
)

// BinaryExpr is `left OP right`.
type BinaryExpr struct {
	Op          BinOp
	Left, Right Expr
}

// UnOp enumerates unary operators.
type UnOp int

const (
	OpNot UnOp = iota
	OpPlus
	OpMinus
)

// UnaryExpr is `OP operand`.
type UnaryExpr struct {
	Op      UnOp
	Operand Expr
}

// FuncCall is a built-in or extension function application (§4.7's
// "Functions covered": string ops, numeric ops, date/time extractors,
// hash functions, RDF term constructors, coercions, regex).
type FuncCall struct {
	Name string
	Args []Expr
}

// BoundExpr is `BOUND(?var)`.
type BoundExpr struct{ Var Var }

// ExistsExpr is `EXISTS {pattern}` or, when Negate, `NOT EXISTS {pattern}`.
type ExistsExpr struct {
	Pattern Node
	Negate  bool
}

// CoalesceExpr is `COALESCE(e1, e2, ...)`: the first operand that
// evaluates without a TypeError.
type CoalesceExpr struct{ Args []Expr }

// IfExpr is `IF(cond, then, else)`.
type IfExpr struct{ Cond, Then, Else Expr }

func (*VarExpr) exprNode()      {}
func (*ConstExpr) exprNode()    {}
func (*BinaryExpr) exprNode()   {}
func (*UnaryExpr) exprNode()    {}
func (*FuncCall) exprNode()     {}
func (*BoundExpr) exprNode()    {}
func (*ExistsExpr) exprNode()   {}
func (*CoalesceExpr) exprNode() {}
func (*IfExpr) exprNode()       {}

// AggFunc enumerates the SPARQL aggregate functions (§4.7's "Group/
// aggregate").
type AggFunc int

const (
	AggCount AggFunc = iota
	AggSum
	AggAvg
	AggMin
	AggMax
	AggSample
	AggGroupConcat
)

// AggregateBinding computes one aggregate in a Group node, binding its
// result to Result.
type AggregateBinding struct {
	Result   Var
	Func     AggFunc
	Arg      Expr // nil for COUNT(*)
	Distinct bool
	Sep      string // GROUP_CONCAT separator, default " "
}
