package core

// Logger is implemented by every logging backend of the app.
// args may hold errors and Fields; other values are printed as is.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Fields are extra key/values attached to a log entry.
type Fields map[string]interface{}

type NotificationLevel string

const (
	NotifySuccess NotificationLevel = "success"
	NotifyError   NotificationLevel = "error"
)

// Notification is a non-blocking feedback message meant for the console user.
type Notification struct {
	Level   NotificationLevel `json:"level"`
	Message string            `json:"message"`
}

type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc adapts a func to a Notifier.
type NotifierFunc func(n Notification)

func (fn NotifierFunc) Notify(n Notification) { fn(n) }
