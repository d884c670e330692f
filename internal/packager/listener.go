package packager

import "github.com/sirupsen/logrus"

// MessageLevel is the verbosity of a progress message
type MessageLevel int

const (
	MsgInfo MessageLevel = iota
	MsgVerbose
)

// Listener receives progress messages, one per packaging phase
type Listener interface {
	Start()
	Message(msg string, level MessageLevel)
	Stop()
}

// LogListener reports progress through logrus
type LogListener struct {
	log *logrus.Entry
}

// NewLogListener creates a listener logging under the packager component
func NewLogListener() *LogListener {
	return &LogListener{log: logrus.WithField("component", "packager")}
}

// Start implements Listener
func (l *LogListener) Start() {
	l.log.Info("[ Begin ]")
}

// Message implements Listener
func (l *LogListener) Message(msg string, level MessageLevel) {
	if level == MsgVerbose {
		l.log.Debug(msg)
		return
	}
	l.log.Info(msg)
}

// Stop implements Listener
func (l *LogListener) Stop() {
	l.log.Info("[ End ]")
}
