package rag

// DomainRejectedError indicates the planner determined a query is outside
// the supported product domains. It is surfaced verbatim to the caller and
// no retrieval or generation is attempted.
type DomainRejectedError struct {
	Query string
}

func (e *DomainRejectedError) Error() string {
	return "This system supports only beauty, cosmetic, perfume, or body-care topics."
}
