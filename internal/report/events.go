package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	EventScan      EventType = "scan"
	EventPathDate  EventType = "pathdate"
	EventMeta      EventType = "meta"
	EventPlan      EventType = "plan"
	EventSkip      EventType = "skip"
	EventDuplicate EventType = "duplicate"
	EventConflict  EventType = "conflict"
	EventError     EventType = "error"
)

// EventLevel represents the severity level.
type EventLevel string

const (
	LevelDebug   EventLevel = "debug"
	LevelInfo    EventLevel = "info"
	LevelWarning EventLevel = "warning"
	LevelError   EventLevel = "error"
)

var levelPriority = map[EventLevel]int{
	LevelDebug:   0,
	LevelInfo:    1,
	LevelWarning: 2,
	LevelError:   3,
}

// Event represents a single event in the pipeline.
type Event struct {
	Timestamp    time.Time         `json:"ts"`
	Level        EventLevel        `json:"level"`
	Event        EventType         `json:"event"`
	SessionID    int64             `json:"session_id,omitempty"`
	FileID       int64             `json:"file_id,omitempty"`
	SrcPath      string            `json:"src_path,omitempty"`
	DestPath     string            `json:"dest_path,omitempty"`
	FolderPath   string            `json:"folder_path,omitempty"`
	ResolvedDate int               `json:"resolved_date,omitempty"`
	Source       string            `json:"source,omitempty"`
	Action       string            `json:"action,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	Duration     int64             `json:"duration_ms,omitempty"`
	Error        string            `json:"error,omitempty"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// EventLogger writes events to a JSONL file, one per pipeline run.
type EventLogger struct {
	file     *os.File
	encoder  *json.Encoder
	mu       sync.Mutex
	path     string
	minLevel EventLevel
}

// NewEventLogger creates a new event logger under outputDir, named with the
// current timestamp. minLevel determines which events are written.
func NewEventLogger(outputDir string, minLevel EventLevel) (*EventLogger, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102-150405")
	filename := fmt.Sprintf("events-%s.jsonl", timestamp)
	path := filepath.Join(outputDir, filename)

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create event log: %w", err)
	}

	return &EventLogger{
		file:     file,
		encoder:  json.NewEncoder(file),
		path:     path,
		minLevel: minLevel,
	}, nil
}

// Log writes an event to the JSONL file.
func (l *EventLogger) Log(event *Event) error {
	if l == nil || l.file == nil {
		return nil
	}

	if levelPriority[event.Level] < levelPriority[l.minLevel] {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if err := l.encoder.Encode(event); err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	return nil
}

// LogScan logs a directory commit during the Scanner stage.
func (l *EventLogger) LogScan(sessionID int64, folderPath string, fileCount int) error {
	return l.Log(&Event{
		Level:      LevelInfo,
		Event:      EventScan,
		SessionID:  sessionID,
		FolderPath: folderPath,
		Extra: map[string]string{
			"file_count": fmt.Sprintf("%d", fileCount),
		},
	})
}

// LogPathDate logs one of the PathDateExtractor's per-file signal writes.
func (l *EventLogger) LogPathDate(fileID int64, srcPath, strategy string, resolvedDate int) error {
	return l.Log(&Event{
		Level:        LevelDebug,
		Event:        EventPathDate,
		FileID:       fileID,
		SrcPath:      srcPath,
		Source:       strategy,
		ResolvedDate: resolvedDate,
	})
}

// LogMeta logs a MetadataExtractor outcome for one file.
func (l *EventLogger) LogMeta(fileID int64, srcPath string, skipReason string, err error) error {
	level := LevelInfo
	errMsg := ""
	if err != nil {
		level = LevelError
		errMsg = err.Error()
	} else if skipReason != "" {
		level = LevelWarning
	}

	return l.Log(&Event{
		Level:   level,
		Event:   EventMeta,
		FileID:  fileID,
		SrcPath: srcPath,
		Reason:  skipReason,
		Error:   errMsg,
	})
}

// LogPlan logs the Planner's resolution for one file.
func (l *EventLogger) LogPlan(fileID int64, srcPath, destPath, action, reason string) error {
	event := EventPlan
	if action == "skip" {
		event = EventSkip
	}

	return l.Log(&Event{
		Level:    LevelInfo,
		Event:    event,
		FileID:   fileID,
		SrcPath:  srcPath,
		DestPath: destPath,
		Action:   action,
		Reason:   reason,
	})
}

// LogDuplicate logs a potential-duplicate detection.
func (l *EventLogger) LogDuplicate(fileID int64, srcPath, hash string) error {
	return l.Log(&Event{
		Level:   LevelWarning,
		Event:   EventDuplicate,
		FileID:  fileID,
		SrcPath: srcPath,
		Extra: map[string]string{
			"hash": hash,
		},
	})
}

// LogConflict logs a target-path collision the Planner had to resolve.
func (l *EventLogger) LogConflict(srcPath, destPath, reason string) error {
	return l.Log(&Event{
		Level:    LevelWarning,
		Event:    EventConflict,
		SrcPath:  srcPath,
		DestPath: destPath,
		Reason:   reason,
	})
}

// LogError logs a stage-level error event.
func (l *EventLogger) LogError(event EventType, srcPath string, err error) error {
	return l.Log(&Event{
		Level:   LevelError,
		Event:   event,
		SrcPath: srcPath,
		Error:   err.Error(),
	})
}

// Close closes the event log file.
func (l *EventLogger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	return l.file.Close()
}

// Path returns the path to the event log file.
func (l *EventLogger) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// NullLogger returns a no-op event logger.
func NullLogger() *EventLogger {
	return nil
}
