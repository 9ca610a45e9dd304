package core

// Logger is any service that can log messages at various levels.
// args may contain errors, extra data (map[string]interface{}) and the principal (user.User).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
