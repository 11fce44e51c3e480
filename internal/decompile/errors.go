package decompile

// UserError is a failure caused by the run's inputs or environment: a file
// that cannot be opened or written, a missing export, an address the
// description names that nothing decoded. Its message is meant to be shown
// to the user as is.
type UserError struct {
	Msg string
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *UserError) Unwrap() error { return e.Err }

func userErr(err error, msg string) error {
	return &UserError{Msg: msg, Err: err}
}
