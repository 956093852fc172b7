package model

import (
	"fmt"
	"sync"
)

// WarningSink receives non-fatal diagnostics. Every operation that can warn takes one explicitly.
type WarningSink interface {
	Warn(message string)
}

// WarningLog accumulates warnings in emission order
type WarningLog struct {
	mutex    sync.Mutex
	messages []string
}

func (log *WarningLog) Warn(message string) {
	log.mutex.Lock()
	defer log.mutex.Unlock()
	log.messages = append(log.messages, message)
}

// Warnings returns a copy of every warning received so far
func (log *WarningLog) Warnings() []string {
	log.mutex.Lock()
	defer log.mutex.Unlock()
	return append([]string(nil), log.messages...)
}

func (log *WarningLog) Len() int {
	log.mutex.Lock()
	defer log.mutex.Unlock()
	return len(log.messages)
}

// WarningFunc adapts a function to the WarningSink interface
type WarningFunc func(message string)

func (f WarningFunc) Warn(message string) {
	f(message)
}

type teeSink []WarningSink

func (sinks teeSink) Warn(message string) {
	for _, sink := range sinks {
		sink.Warn(message)
	}
}

// TeeWarnings forwards every warning to all the given sinks (nil sinks are skipped)
func TeeWarnings(sinks ...WarningSink) WarningSink {
	filtered := make(teeSink, 0, len(sinks))
	for _, sink := range sinks {
		if sink != nil {
			filtered = append(filtered, sink)
		}
	}
	return filtered
}

// Discard drops every warning
var Discard WarningSink = WarningFunc(func(string) {})

func warnf(sink WarningSink, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Warn(fmt.Sprintf(format, args...))
}
