package model

type SpecOperator string

const (
	SpecOpEq      SpecOperator = "eq"
	SpecOpIn      SpecOperator = "in"
	SpecOpMust    SpecOperator = "must"
	SpecOpShould  SpecOperator = "should"
	SpecOpMustNot SpecOperator = "must_not"
)

// Specification is a storage independent predicate over device fields. Leaves compare
// one field; composites combine children.
type Specification interface {
	Operator() SpecOperator
	Field() string
	Value() any
	Children() []Specification
	IsComposite() bool
}

type (
	leafSpec struct {
		op    SpecOperator
		field string
		value any
	}

	compositeSpec struct {
		op       SpecOperator
		children []Specification
	}
)

func Eq(field string, value any) Specification {
	return leafSpec{op: SpecOpEq, field: field, value: value}
}

func In(field string, values ...any) Specification {
	return leafSpec{op: SpecOpIn, field: field, value: values}
}

func Must(specs ...Specification) Specification {
	return compositeSpec{op: SpecOpMust, children: specs}
}

func Should(specs ...Specification) Specification {
	return compositeSpec{op: SpecOpShould, children: specs}
}

// MustNot negates spec; negating a negation unwraps it.
func MustNot(spec Specification) Specification {
	if spec.Operator() == SpecOpMustNot {
		return spec.Children()[0]
	}

	return compositeSpec{op: SpecOpMustNot, children: []Specification{spec}}
}

func (s leafSpec) Operator() SpecOperator    { return s.op }
func (s leafSpec) Field() string             { return s.field }
func (s leafSpec) Value() any                { return s.value }
func (s leafSpec) Children() []Specification { return nil }
func (s leafSpec) IsComposite() bool         { return false }

func (s compositeSpec) Operator() SpecOperator    { return s.op }
func (s compositeSpec) Field() string             { return "" }
func (s compositeSpec) Value() any                { return nil }
func (s compositeSpec) Children() []Specification { return s.children }
func (s compositeSpec) IsComposite() bool         { return true }
