package models

// ChangeStatus is the review state of a change.
type ChangeStatus string

const (
	ChangeStatusNew    ChangeStatus = "NEW"
	ChangeStatusMerged ChangeStatus = "MERGED"
)

// RawChange is one code-review record. All fields are comparable so that two
// records can be checked for exact equality during pagination.
type RawChange struct {
	Number  int          `json:"number"`
	URL     string       `json:"url"`
	Subject string       `json:"subject"`
	Project string       `json:"project"`
	Topic   string       `json:"topic,omitempty"`
	Status  ChangeStatus `json:"status"`
	SortKey string       `json:"sortKey"`
}

// ChangeSet maps a short project name to its changes in service order.
type ChangeSet map[string][]RawChange

// ReviewIndex holds the changes of every tracked project, split by state.
// It is built once per run and only read afterwards.
type ReviewIndex struct {
	Merged      ChangeSet
	UnderReview ChangeSet
}
