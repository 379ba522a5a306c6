package carbon

// constError is an immutable error type for sentinel errors.
type constError string

func (e constError) Error() string { return string(e) }

// ErrNegativeQuantity indicates a practice was given a negative quantity.
// Calculate never returns it; only Practices.Validate does.
var ErrNegativeQuantity = constError("negative practice quantity")
