package services

import (
	"sync"

	"github.com/jeremysolarz/invoices-with-card-element/models"
	"go.uber.org/zap"
)

// MessageListener is called for every appended message, in append order.
type MessageListener func(models.Message)

// MessageLog is the append-only status area of a checkout page.
type MessageLog struct {
	mu        sync.RWMutex
	visible   bool
	messages  []models.Message
	listeners []MessageListener
	logger    *zap.Logger
}

func NewMessageLog(logger *zap.Logger, listeners ...MessageListener) *MessageLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MessageLog{logger: logger, listeners: listeners}
}

// Add shows the log, appends the linkified message and mirrors the raw text
// to the debug log.
func (l *MessageLog) Add(text string) models.Message {
	msg := Linkify(text)

	l.mu.Lock()
	l.visible = true
	l.messages = append(l.messages, msg)
	listeners := l.listeners
	l.mu.Unlock()

	for _, fn := range listeners {
		fn(msg)
	}
	l.logger.Debug("checkout message", zap.String("message", text))
	return msg
}

// Visible reports whether anything has been shown yet.
func (l *MessageLog) Visible() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.visible
}

// Messages returns a copy of the log.
func (l *MessageLog) Messages() []models.Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *MessageLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.messages)
}
