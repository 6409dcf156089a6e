package pipeline

// Outcome is the terminal state a post reaches within a run.
type Outcome int

const (
	// OutcomeUnknown is the zero value, returned alongside an error.
	OutcomeUnknown Outcome = iota
	// OutcomeDeduped means the post id was already recorded.
	OutcomeDeduped
	// OutcomeFilteredOut means the heuristic filter rejected the post.
	OutcomeFilteredOut
	// OutcomeSkipped means the classifier judged it not an opportunity.
	OutcomeSkipped
	// OutcomeClusteredNew means the post founded a new cluster.
	OutcomeClusteredNew
	// OutcomeClusteredExisting means the post joined an existing cluster.
	OutcomeClusteredExisting
)

// String returns the metric label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeDeduped:
		return "deduped"
	case OutcomeFilteredOut:
		return "filtered_out"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeClusteredNew:
		return "clustered_new"
	case OutcomeClusteredExisting:
		return "clustered_existing"
	default:
		return "unknown"
	}
}

// Clustered reports whether the post was written to a cluster.
func (o Outcome) Clustered() bool {
	return o == OutcomeClusteredNew || o == OutcomeClusteredExisting
}

// NotifyResult is the outcome of the best-effort notification that follows
// clustering. It never changes the persisted result.
type NotifyResult int

const (
	// NotifyNone means no notifier is configured or the mode sends none.
	NotifyNone NotifyResult = iota
	// NotifySent means the webhook accepted the message.
	NotifySent
	// NotifyFailed means delivery failed and was logged.
	NotifyFailed
)

// Stats are the aggregate counters returned by a run. Ingestion leaves
// ReusedAnalysis at zero; reanalysis leaves the filter and notify counters
// at zero.
type Stats struct {
	Total             int `json:"total"`
	Filtered          int `json:"filtered"`
	Deduped           int `json:"deduped"`
	Analyzed          int `json:"analyzed"`
	ClusteredNew      int `json:"clusteredNew"`
	ClusteredExisting int `json:"clusteredExisting"`
	Skipped           int `json:"skipped"`
	PrunedOrphans     int `json:"prunedOrphans"`
	Notified          int `json:"notified"`
	NotifyErrors      int `json:"notifyErrors"`
	ReusedAnalysis    int `json:"reusedAnalysis"`
}

// record folds one post's terminal state into the counters. Every outcome
// past the classifier implies the post was analyzed.
func (s *Stats) record(o Outcome, n NotifyResult) {
	switch o {
	case OutcomeDeduped:
		s.Deduped++
	case OutcomeFilteredOut:
	case OutcomeSkipped:
		s.Analyzed++
		s.Skipped++
	case OutcomeClusteredNew:
		s.Analyzed++
		s.ClusteredNew++
	case OutcomeClusteredExisting:
		s.Analyzed++
		s.ClusteredExisting++
	}

	switch n {
	case NotifySent:
		s.Notified++
	case NotifyFailed:
		s.NotifyErrors++
	}
}
