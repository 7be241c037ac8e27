package model

import (
	"cmp"
	"slices"
)

// Matches evaluates spec against a device in memory. A nil spec matches everything.
func Matches(spec Specification, device Device) bool {
	if spec == nil {
		return true
	}

	switch spec.Operator() {
	case SpecOpEq:
		return fieldValue(device, spec.Field()) == spec.Value()
	case SpecOpIn:
		values, _ := spec.Value().([]any)

		return slices.Contains(values, fieldValue(device, spec.Field()))
	case SpecOpMust:
		for _, child := range spec.Children() {
			if !Matches(child, device) {
				return false
			}
		}

		return true
	case SpecOpShould:
		for _, child := range spec.Children() {
			if Matches(child, device) {
				return true
			}
		}

		return len(spec.Children()) == 0
	case SpecOpMustNot:
		return !Matches(spec.Children()[0], device)
	default:
		return false
	}
}

// SortDevices orders devices in place following sorting.
func SortDevices(devices []Device, sorting []SortField) {
	slices.SortStableFunc(devices, func(a, b Device) int {
		for _, s := range sorting {
			c := compareField(a, b, s.Field)
			if c == 0 {
				continue
			}

			if s.Direction == SortDesc {
				return -c
			}

			return c
		}

		return 0
	})
}

func fieldValue(device Device, field string) any {
	switch field {
	case FieldID:
		return device.ID.String()
	case FieldName:
		return device.Name
	case FieldBrand:
		return device.Brand
	case FieldState:
		return device.State.String()
	case FieldCreationTime:
		return device.CreationTime
	default:
		return nil
	}
}

func compareField(a, b Device, field string) int {
	switch field {
	case FieldCreationTime:
		return a.CreationTime.Compare(b.CreationTime)
	case FieldID:
		return cmp.Compare(a.ID.String(), b.ID.String())
	case FieldName:
		return cmp.Compare(a.Name, b.Name)
	case FieldBrand:
		return cmp.Compare(a.Brand, b.Brand)
	case FieldState:
		return cmp.Compare(a.State, b.State)
	default:
		return 0
	}
}
