package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

// TestLogger captures every entry as a JSON line so tests can assert on
// messages and fields
type TestLogger struct {
	Logger
	out *lockedBuffer
}

// LogMessage represents a captured log entry
type LogMessage struct {
	Level   string
	Message string
	Fields  map[string]interface{}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func (b *lockedBuffer) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.Reset()
}

// NewTestLogger creates a debug-level logger recording into memory
func NewTestLogger() *TestLogger {
	out := &lockedBuffer{}
	return &TestLogger{
		Logger: NewWithWriter(out, zerolog.DebugLevel),
		out:    out,
	}
}

// GetMessages returns all captured log messages in order
func (l *TestLogger) GetMessages() []LogMessage {
	var messages []LogMessage
	scanner := bufio.NewScanner(bytes.NewReader(l.out.snapshot()))
	for scanner.Scan() {
		var entry map[string]interface{}
		if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
			continue
		}
		msg := LogMessage{Fields: make(map[string]interface{})}
		for k, v := range entry {
			switch k {
			case zerolog.LevelFieldName:
				msg.Level = strings.ToUpper(v.(string))
			case zerolog.MessageFieldName:
				msg.Message, _ = v.(string)
			case zerolog.TimestampFieldName, "app":
			default:
				msg.Fields[k] = v
			}
		}
		messages = append(messages, msg)
	}
	return messages
}

// GetMessagesByLevel returns all messages of a specific level (DEBUG, INFO, WARN, ERROR)
func (l *TestLogger) GetMessagesByLevel(level string) []LogMessage {
	var filtered []LogMessage
	for _, msg := range l.GetMessages() {
		if msg.Level == level {
			filtered = append(filtered, msg)
		}
	}
	return filtered
}

// HasMessage checks if a message with the given text was logged
func (l *TestLogger) HasMessage(text string) bool {
	for _, msg := range l.GetMessages() {
		if msg.Message == text {
			return true
		}
	}
	return false
}

// HasError checks if an error was logged
func (l *TestLogger) HasError() bool {
	return len(l.GetMessagesByLevel("ERROR")) > 0
}

// Clear drops everything captured so far
func (l *TestLogger) Clear() {
	l.out.reset()
}

// String returns the raw captured output
func (l *TestLogger) String() string {
	return string(l.out.snapshot())
}
