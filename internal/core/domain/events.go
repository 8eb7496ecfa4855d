package domain

// EventType defines the type of real-time event.
type EventType string

const (
	EventStatisticsUpdated EventType = "STATISTICS_UPDATED"
	EventJobCompleted      EventType = "JOB_COMPLETED"
)

// Event is the payload sent over WebSocket.
type Event struct {
	Type     EventType   `json:"type"`
	Payload  interface{} `json:"payload"`
	CourseID int64       `json:"courseId"` // Used for routing to course "rooms"; 0 reaches every client
}

// StatisticsUpdatedPayload describes statistics rewritten for one queue or course.
type StatisticsUpdatedPayload struct {
	Operation string `json:"operation"`
	QueueID   int64  `json:"queueId,omitempty"`
	Written   int    `json:"written"`
}

// JobCompletedPayload is sent once a batch operation finishes.
type JobCompletedPayload struct {
	RunID          string `json:"runId"`
	Operation      string `json:"operation"`
	UnitsProcessed int    `json:"unitsProcessed"`
	UnitsFailed    int    `json:"unitsFailed"`
	Written        int    `json:"written"`
}
