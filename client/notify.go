package client

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message for the user, like a toast.
type Notification struct {
	Level   Level
	Op      string
	Message string
	Err     error
}

type Notifier interface {
	Notify(n Notification)
}

// LogNotifier writes notifications to a logrus logger.
type LogNotifier struct {
	Logger *log.Logger
}

func (l LogNotifier) Notify(n Notification) {
	entry := l.logger().WithField("notification", string(n.Level))
	if n.Op != "" {
		entry = entry.WithField("op", n.Op)
	}
	if n.Err != nil {
		entry.WithError(n.Err).Error(n.Message)
		return
	}
	entry.Info(n.Message)
}

// Recorder keeps notifications in memory.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
}

func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.items...)
}

func (l LogNotifier) logger() *log.Logger {
	if l.Logger == nil {
		return log.StandardLogger()
	}
	return l.Logger
}
