package types

// ValidationPolicy decides which input types are accepted verbatim without asking the oracle.
type ValidationPolicy interface {
	SkipValidation(inputType InputType) bool
}

type SkipSet map[InputType]struct{}

func NewSkipSet(inputTypes ...InputType) SkipSet {
	set := make(SkipSet, len(inputTypes))
	for _, t := range inputTypes {
		set[t] = struct{}{}
	}
	return set
}

// DefaultSkipSet covers the widget based inputs whose reply is already an exact value.
func DefaultSkipSet() SkipSet {
	return NewSkipSet(InputMultipleChoice, InputDropdownSelect, InputRating, InputDatePicker)
}

func (s SkipSet) SkipValidation(inputType InputType) bool {
	_, ok := s[inputType]
	return ok
}

type SkipFunc func(inputType InputType) bool

func (f SkipFunc) SkipValidation(inputType InputType) bool {
	return f(inputType)
}

var (
	_ ValidationPolicy = SkipSet(nil)
	_ ValidationPolicy = SkipFunc(nil)
)
