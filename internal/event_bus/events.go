package event_bus

const (
	EntriesChangedType EventType = "entry.changed"
	MastersChangedType EventType = "masterdata.changed"
	SessionCreatedType EventType = "session.created"
	SessionsPurgedType EventType = "session.purged"
)

// EntriesChanged is published after budget entries of a session were created, edited or removed.
type EntriesChanged struct {
	SessionId string
	Action    string
	Count     int
	Detail    string
}

type MastersChanged struct {
	SessionId string
	Action    string
	Clients   int
	Products  int
}

type SessionCreated struct {
	SessionId string
}

type SessionsPurged struct {
	SessionIds []string
}
