package metrics

type HubObserver interface {
	IncOnline()
	DecOnline()
	RecordPush()
	ObservePushLatency(duration float64)
	UpdateEventLag(lag int)
}

// WorkflowObserver counts workflow outcomes worth alerting on.
type WorkflowObserver interface {
	RecordPublish()
	RecordMergeConflict()
}
