package command

// Response pairs a command with the outcome of its execution. Exactly one
// of output and error is meaningful: responses created with NewResponse
// carry a value, responses created with NewErrorResponse carry the error
// of that single command. The response is parameterized by the output
// type, not by the command variant, so a boolean-producing SET and a
// boolean-producing SETBIT share Response[C, bool].
type Response[C any, V any] struct {
	input  C
	output V
	err    error
}

// NewResponse creates a successful response pairing input with output.
func NewResponse[C any, V any](input C, output V) Response[C, V] {
	return Response[C, V]{input: input, output: output}
}

// NewErrorResponse creates a failed response for input. The error is
// scoped to this command alone.
func NewErrorResponse[C any, V any](input C, err error) Response[C, V] {
	return Response[C, V]{input: input, err: err}
}

// Input returns the command this response answers.
func (r Response[C, V]) Input() C { return r.input }

// Output returns the produced value. It is the zero value if Err is
// non-nil.
func (r Response[C, V]) Output() V { return r.output }

// Err returns the per-command execution error, or nil on success.
func (r Response[C, V]) Err() error { return r.err }
