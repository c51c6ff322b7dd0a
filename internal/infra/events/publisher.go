// Package events provides the default EventPublisher: an append-only
// JSONL stream under the splice state directory that UIs tail.
package events

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mikan-dev/splice/internal/domain"
)

const eventsFileName = "events.jsonl"

// envelope wraps every published event with its kind and timestamp.
// Fields are ordered to minimize memory padding.
type envelope struct {
	Time    time.Time        `json:"time"`
	Payload any              `json:"payload"`
	Kind    domain.EventKind `json:"kind"`
}

// FilePublisher appends events to .git/splice/events.jsonl. Delivery is
// fire-and-forget: write failures are logged, never surfaced to the
// operation that published.
type FilePublisher struct {
	file      *os.File
	enc       *json.Encoder
	logger    domain.Logger
	spliceDir string
	mu        sync.Mutex
}

var _ domain.EventPublisher = (*FilePublisher)(nil)

// NewFilePublisher creates a publisher writing under spliceDir.
func NewFilePublisher(spliceDir string, logger domain.Logger) *FilePublisher {
	return &FilePublisher{spliceDir: spliceDir, logger: logger}
}

// Close closes the underlying event file.
func (p *FilePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.file == nil {
		return nil
	}
	err := p.file.Close()
	p.file = nil
	p.enc = nil
	return err
}

func (p *FilePublisher) publish(kind domain.EventKind, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.enc == nil {
		if err := p.open(); err != nil {
			if p.logger != nil {
				p.logger.Warn("", "events", fmt.Sprintf("open event stream: %v", err))
			}
			return
		}
	}

	if err := p.enc.Encode(envelope{Time: time.Now().UTC(), Payload: payload, Kind: kind}); err != nil {
		if p.logger != nil {
			p.logger.Warn("", "events", fmt.Sprintf("write event: %v", err))
		}
	}
}

// open lazily creates the event file. Callers hold p.mu.
func (p *FilePublisher) open() error {
	if err := os.MkdirAll(p.spliceDir, 0o750); err != nil {
		return err
	}
	path := filepath.Join(p.spliceDir, eventsFileName)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	p.file = file
	p.enc = json.NewEncoder(file)
	return nil
}

// SendLog publishes a log event.
func (p *FilePublisher) SendLog(ev domain.LogEvent) {
	p.publish(domain.EventLog, ev)
}

// SendResponseChunk publishes a streamed text chunk.
func (p *FilePublisher) SendResponseChunk(ev domain.ResponseChunkEvent) {
	p.publish(domain.EventResponseChunk, ev)
}

// SendResponseCompleted publishes the terminal signal for a message.
func (p *FilePublisher) SendResponseCompleted(ev domain.ResponseCompletedEvent) {
	p.publish(domain.EventResponseCompleted, ev)
}

// SendTaskUpdated publishes a task mutation.
func (p *FilePublisher) SendTaskUpdated(ev domain.TaskUpdatedEvent) {
	p.publish(domain.EventTaskUpdated, ev)
}

// SendWorktreeStatusUpdated publishes refreshed integration status.
func (p *FilePublisher) SendWorktreeStatusUpdated(ev domain.WorktreeStatusEvent) {
	p.publish(domain.EventWorktreeStatusUpdated, ev)
}

// SendUpdatedFilesUpdated publishes the touched-file list of a run.
func (p *FilePublisher) SendUpdatedFilesUpdated(ev domain.UpdatedFilesEvent) {
	p.publish(domain.EventUpdatedFilesUpdated, ev)
}

// SendNotification publishes a user-visible notification.
func (p *FilePublisher) SendNotification(ev domain.NotificationEvent) {
	p.publish(domain.EventNotification, ev)
}
