package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager holds one CronTrigger per store.
type Manager struct {
	triggers map[string]*CronTrigger
	order    []string
	logger   *slog.Logger
}

// NewManager creates an empty Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		triggers: make(map[string]*CronTrigger),
		logger:   logger,
	}
}

// Add registers a trigger that runs runnable on spec. Names must be unique.
func (m *Manager) Add(name, spec string, runnable Runnable) error {
	if _, exists := m.triggers[name]; exists {
		return fmt.Errorf("trigger %q already registered", name)
	}

	trigger, err := NewCronTrigger(name, spec, runnable, m.logger)
	if err != nil {
		return fmt.Errorf("creating trigger %q: %w", name, err)
	}

	m.triggers[name] = trigger
	m.order = append(m.order, name)

	m.logger.Info("trigger registered",
		"trigger", name,
		"schedule", spec,
		"next_run", trigger.NextRun(),
	)
	return nil
}

// Len returns the number of registered triggers.
func (m *Manager) Len() int {
	return len(m.order)
}

// Start launches all triggers. Each trigger runs in its own goroutine.
// Returns immediately. All goroutines exit when ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	for _, name := range m.order {
		m.triggers[name].Start(ctx)
	}
}

// NextRun returns the next scheduled run of the named trigger.
// The second value is false if no such trigger exists.
func (m *Manager) NextRun(name string) (time.Time, bool) {
	trigger, ok := m.triggers[name]
	if !ok {
		return time.Time{}, false
	}
	return trigger.NextRun(), true
}
