package repos

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/architeacher/device-inventory/internal/domain/model"
)

var columnMapping = map[string]string{
	model.FieldID:           "id",
	model.FieldName:         "name",
	model.FieldBrand:        "brand",
	model.FieldState:        "state",
	model.FieldCreationTime: "creation_time",
}

// CriteriaTranslator renders model criteria as squirrel clauses. Placeholders stay
// neutral so the same translator serves every SQL dialect.
type CriteriaTranslator struct{}

func NewCriteriaTranslator() *CriteriaTranslator {
	return &CriteriaTranslator{}
}

func (t *CriteriaTranslator) ApplyToSelect(builder sq.SelectBuilder, criteria model.Criteria) (sq.SelectBuilder, error) {
	if criteria.HasSpec() {
		condition, err := t.translateSpec(criteria.Spec())
		if err != nil {
			return builder, err
		}

		builder = builder.Where(condition)
	}

	return t.applySorting(builder, criteria)
}

func (t *CriteriaTranslator) translateSpec(spec model.Specification) (sq.Sqlizer, error) {
	switch spec.Operator() {
	case model.SpecOpEq, model.SpecOpIn:
		col, err := t.col(spec.Field())
		if err != nil {
			return nil, err
		}

		return sq.Eq{col: spec.Value()}, nil

	case model.SpecOpMust:
		conditions := make(sq.And, 0, len(spec.Children()))
		for _, child := range spec.Children() {
			condition, err := t.translateSpec(child)
			if err != nil {
				return nil, err
			}

			conditions = append(conditions, condition)
		}

		return conditions, nil

	case model.SpecOpShould:
		if len(spec.Children()) == 0 {
			return sq.Expr("1=1"), nil
		}

		conditions := make(sq.Or, 0, len(spec.Children()))
		for _, child := range spec.Children() {
			condition, err := t.translateSpec(child)
			if err != nil {
				return nil, err
			}

			conditions = append(conditions, condition)
		}

		return conditions, nil

	case model.SpecOpMustNot:
		inner, err := t.translateSpec(spec.Children()[0])
		if err != nil {
			return nil, err
		}

		query, args, err := inner.ToSql()
		if err != nil {
			return nil, err
		}

		return sq.Expr("NOT ("+query+")", args...), nil
	}

	return nil, fmt.Errorf("unsupported operator %q", spec.Operator())
}

func (t *CriteriaTranslator) col(field string) (string, error) {
	col, ok := columnMapping[field]
	if !ok {
		return "", fmt.Errorf("%w: %s", model.ErrUnknownField, field)
	}

	return col, nil
}

func (t *CriteriaTranslator) applySorting(builder sq.SelectBuilder, c model.Criteria) (sq.SelectBuilder, error) {
	if !c.HasSorting() {
		return builder.OrderBy("creation_time DESC", "id DESC"), nil
	}

	for _, s := range c.Sorting() {
		col, err := t.col(s.Field)
		if err != nil {
			return builder, err
		}

		builder = builder.OrderBy(fmt.Sprintf("%s %s", col, s.Direction))
	}

	return builder, nil
}
