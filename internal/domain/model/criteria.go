package model

type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"

	FieldID           = "id"
	FieldName         = "name"
	FieldBrand        = "brand"
	FieldState        = "state"
	FieldCreationTime = "creationTime"
)

type (
	SortField struct {
		Field     string
		Direction SortDirection
	}

	// Criteria is a filter plus an ordering, ready to be translated by a store.
	Criteria struct {
		spec    Specification
		sorting []SortField
	}

	CriteriaBuilder struct {
		specs   []Specification
		sorting []SortField
	}
)

func (c Criteria) Spec() Specification  { return c.spec }
func (c Criteria) Sorting() []SortField { return c.sorting }
func (c Criteria) HasSpec() bool        { return c.spec != nil }
func (c Criteria) HasSorting() bool     { return len(c.sorting) > 0 }

func NewCriteria() *CriteriaBuilder {
	return &CriteriaBuilder{}
}

func (b *CriteriaBuilder) Where(field string, value any) *CriteriaBuilder {
	b.specs = append(b.specs, Eq(field, value))

	return b
}

func (b *CriteriaBuilder) WhereSpec(spec Specification) *CriteriaBuilder {
	b.specs = append(b.specs, spec)

	return b
}

// OrderBy appends a sort key; a leading '-' sorts descending.
func (b *CriteriaBuilder) OrderBy(field string) *CriteriaBuilder {
	direction := SortAsc

	if len(field) > 0 && field[0] == '-' {
		direction = SortDesc
		field = field[1:]
	}

	b.sorting = append(b.sorting, SortField{Field: field, Direction: direction})

	return b
}

func (b *CriteriaBuilder) Build() Criteria {
	var root Specification

	switch len(b.specs) {
	case 0:
	case 1:
		root = b.specs[0]
	default:
		root = Must(b.specs...)
	}

	return Criteria{spec: root, sorting: b.sorting}
}

// FromDeviceFilter lists newest devices first. Ids are time ordered and break ties.
func FromDeviceFilter(filter DeviceFilter) Criteria {
	builder := NewCriteria()

	if filter.Brand != nil {
		builder.Where(FieldBrand, *filter.Brand)
	}

	if filter.State != nil {
		builder.Where(FieldState, filter.State.String())
	}

	return builder.
		OrderBy("-" + FieldCreationTime).
		OrderBy("-" + FieldID).
		Build()
}
