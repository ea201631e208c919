package script

// Node is an element of the parsed document tree. The set of node types is
// closed: *Document, *Text, *ForLoop and *Echo.
type Node interface {
	node()
}

// Document is the root of a parsed script.
type Document struct {
	Children []Node
}

// Text is literal text copied verbatim to the output.
type Text struct {
	Value string
}

// ForLoop repeats its children while Var does not exceed End. Step is nil
// when the tag omitted it.
type ForLoop struct {
	Var      string
	Start    Element
	End      Element
	Step     Element
	Children []Node
}

// Echo evaluates its elements as a postfix program and writes what is left
// on the operand stack.
type Echo struct {
	Elements []Element
}

func (*Document) node() {}
func (*Text) node()     {}
func (*ForLoop) node()  {}
func (*Echo) node()     {}

// Element is one term of an echo tag or a FOR argument. The set of element
// types is closed: Variable, ConstInt, ConstFloat, StringLit, Operator and
// FuncCall.
type Element interface {
	element()
}

// Variable reads the top of a named variable stack.
type Variable struct {
	Name string
}

// ConstInt is an integer literal.
type ConstInt struct {
	Value int64
}

// ConstFloat is a decimal literal.
type ConstFloat struct {
	Value float64
}

// StringLit is a quoted string literal with escapes resolved.
type StringLit struct {
	Value string
}

// Operator is one of + - * /.
type Operator struct {
	Symbol string
}

// FuncCall invokes a built-in function by name.
type FuncCall struct {
	Name string
}

func (Variable) element()   {}
func (ConstInt) element()   {}
func (ConstFloat) element() {}
func (StringLit) element()  {}
func (Operator) element()   {}
func (FuncCall) element()   {}

// container is implemented by nodes that own children.
type container interface {
	Node
	appendChild(Node)
}

func (d *Document) appendChild(n Node) { d.Children = append(d.Children, n) }
func (f *ForLoop) appendChild(n Node)  { f.Children = append(f.Children, n) }
