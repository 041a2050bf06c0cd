// Package model holds the values that flow through a plan capture run.
package model

// CandidateQuery is one row of the query source table.
// It is read once and never modified.
type CandidateQuery struct {
	ID        int64
	Name      string
	Object    string
	Statement string
	// ModifiedStatement is the rewritten variant. nil when the source row has none.
	ModifiedStatement *string
}

// HasModified reports whether the candidate carries a rewritten statement.
func (q CandidateQuery) HasModified() bool {
	return q.ModifiedStatement != nil
}
