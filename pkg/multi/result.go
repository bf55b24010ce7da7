package multi

// Result is the outcome of a commit. It is immutable.
type Result struct {
	results Results
	err     *OperationFailure
}

func newResult(results Results, err *OperationFailure) *Result {
	return &Result{results: results, err: err}
}

// Results holds the outputs of the operations that completed, in execution order.
func (r *Result) Results() Results {
	return r.results
}

// Err is the failure that aborted the commit, nil on success.
func (r *Result) Err() *OperationFailure {
	return r.err
}

func (r *Result) Success() bool {
	return r.err == nil
}

func (r *Result) Failure() bool {
	return !r.Success()
}
