// Package notifysvc collects the notifications raised for the console user.
package notifysvc

import (
	"sync"

	"github.com/formationpro/fichepresence/core"
)

// Recorder keeps the notifications of a single request, in order.
type Recorder struct {
	mu    sync.Mutex
	notes []core.Notification
}

var _ core.Notifier = (*Recorder)(nil)

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(n core.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *Recorder) Notifications() []core.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]core.Notification(nil), r.notes...)
}

// Last returns the latest notification, if any.
func (r *Recorder) Last() (core.Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notes) == 0 {
		return core.Notification{}, false
	}
	return r.notes[len(r.notes)-1], true
}

// LogNotifier writes notifications to a logger: errors at error level, the others at info level.
type LogNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger core.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(notif core.Notification) {
	if notif.Level == core.NotifyError {
		n.logger.Error(notif.Message)
		return
	}
	n.logger.Info(notif.Message)
}
