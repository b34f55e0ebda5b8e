package model

import "time"

// RefreshRequest asks the service to re-fetch and re-aggregate the source.
type RefreshRequest struct {
	ID          string    // unique id, used in logs and API acks
	Reason      string    // who asked: "api", "timer", "startup"
	RequestedAt time.Time // enqueue time
}
