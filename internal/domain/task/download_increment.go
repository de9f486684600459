package task

import "time"

const DownloadIncrementTaskType = "DownloadIncrementTask"

// DownloadIncrementTask asks a worker to add one download to a catalog document.
type DownloadIncrementTask struct {
	ItemID      string    `json:"item_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func (t *DownloadIncrementTask) TaskType() string {
	return DownloadIncrementTaskType
}

func (t *DownloadIncrementTask) TaskValue() ([]byte, error) {
	return DefaultTaskValue(t)
}
