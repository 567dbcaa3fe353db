package reindex

// MaxErrorMessages bounds the error list carried in a bulk result.
const MaxErrorMessages = 50

// Result reports the outcome of a bulk reindex. Partial completion is a
// normal outcome: per-document failures are counted, never fatal.
type Result struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

// AddSuccess records one successfully reindexed document.
func (r *Result) AddSuccess() {
	r.Success++
}

// AddFailure records one failed document, keeping a bounded message list.
func (r *Result) AddFailure(msg string) {
	r.Failed++
	if len(r.Errors) < MaxErrorMessages {
		r.Errors = append(r.Errors, msg)
	}
}

// Total returns the number of documents visited.
func (r *Result) Total() int {
	return r.Success + r.Failed
}
