package errors

import (
	"fmt"
	"strings"
)

// Append clubs together all provided errors. Nil values are ignored.
//
// If none of the provided errors is non nil, nil is returned. When only a
// single error is provided, it is returned as it is.
func Append(errs ...error) error {
	var flat []error
	for _, e := range errs {
		if isNilErr(e) {
			continue
		}
		if m, ok := e.(*multiErr); ok {
			flat = append(flat, m.errs...)
		} else {
			flat = append(flat, e)
		}
	}

	switch len(flat) {
	case 0:
		return nil
	case 1:
		return flat[0]
	}
	return &multiErr{errs: flat}
}

// multiErr is an error that represents several failures at once. Collected
// validation errors (ie. all invalid CSV rows) are represented this way.
type multiErr struct {
	errs []error
}

func (e *multiErr) Error() string {
	points := make([]string, len(e.errs))
	for i, err := range e.errs {
		points[i] = fmt.Sprintf("* %s", err)
	}
	return fmt.Sprintf("%d errors occurred:\n\t%s\n", len(e.errs), strings.Join(points, "\n\t"))
}

// Unpack returns all errors that this multi error consists of.
func (e *multiErr) Unpack() []error {
	cp := make([]error, len(e.errs))
	copy(cp, e.errs)
	return cp
}

// unpacker is implemented by errors that represent more than one error.
type unpacker interface {
	Unpack() []error
}

// Unpack returns all errors that given error consists of. For a non multi
// error a single element list is returned.
func Unpack(err error) []error {
	if isNilErr(err) {
		return nil
	}
	if u, ok := err.(unpacker); ok {
		return u.Unpack()
	}
	return []error{err}
}
