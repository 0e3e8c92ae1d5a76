/*
Package errors implements the error handling used across multisend.

Every error returned by this module should wrap one of the root errors
declared in this package. Root errors carry a numeric code so that a caller
can categorize a failure (ie. network trouble versus a rejected transaction)
without parsing the message. Use Is to test an error against a root error.

To declare a custom root error use Register(code, description). To create an
error instance use ErrXyz.New("...") or errors.Wrap(err, "...") at the point
of creation so that a stack trace is attached. Only the innermost wrap records
the stack trace.

Once you have an error, you can use fmt.Printf/Sprintf to get more context
	%s is just the error message
	%+v is the full stack trace
*/
package errors
