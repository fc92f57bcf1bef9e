package audit

import "time"

// Record is one change made to a session's entries or master data.
type Record struct {
	Id        int64
	SessionId string
	Action    string
	Count     int
	Detail    string
	CreatedAt time.Time
}
