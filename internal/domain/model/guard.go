package model

// Verdict is the outcome of a lifecycle check: either allowed, or rejected with a reason.
type Verdict struct {
	rejection *IllegalStateError
}

func Allow() Verdict {
	return Verdict{}
}

func Reject(reason *IllegalStateError) Verdict {
	return Verdict{rejection: reason}
}

func (v Verdict) Allowed() bool {
	return v.rejection == nil
}

// Err returns nil when allowed, the rejection otherwise.
func (v Verdict) Err() error {
	if v.rejection == nil {
		return nil
	}

	return v.rejection
}

// CheckDelete rejects removing a device that is in use.
func CheckDelete(current State) Verdict {
	if current == StateInUse {
		return Reject(ErrCannotDeleteInUseDevice)
	}

	return Allow()
}

// CheckFullUpdate validates a complete replacement. The intended state is mandatory;
// an in-use device may only be replaced when it leaves the in-use state. Name and
// brand do not change the outcome.
func CheckFullUpdate(current State, intended Optional[State], _, _ Optional[string]) Verdict {
	target, ok := intended.Get()
	if !ok {
		return Reject(ErrIncompleteReplacement)
	}

	if current == StateInUse && target == StateInUse {
		return Reject(ErrCannotUpdateInUseDevice)
	}

	return Allow()
}

// CheckPartialUpdate rejects a patch of an in-use device unless the patch moves it
// out of the in-use state.
func CheckPartialUpdate(current State, intended Optional[State]) Verdict {
	if current != StateInUse {
		return Allow()
	}

	target, ok := intended.Get()
	if !ok || target == StateInUse {
		return Reject(ErrCannotUpdateInUseDevice)
	}

	return Allow()
}
