package core

// Logger is any service that can log app events.
// Args may be an error, a map[string]interface{} of extra fields, or an Actor.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Actor identifies the staff member behind a logged event.
type Actor struct {
	ID   string
	Name string
}
