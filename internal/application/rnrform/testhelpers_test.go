package rnrform

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rnr/backend/internal/domain/rnrform"
	"github.com/rnr/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// mockRepository is a hand-rolled RnRFormRepository that records calls
// and returns configured results.
type mockRepository struct {
	mu sync.Mutex

	form        *rnrform.RnRForm
	findErr     error
	updateErr   error
	finaliseErr error

	findCalls     int
	updateCalls   [][]rnrform.RnRFormLine
	finaliseCalls int

	// onUpdate runs inside UpdateLines, before the configured error is
	// returned. Tests use it to interleave edits with an in-flight save.
	onUpdate func()
}

func (m *mockRepository) FindByID(ctx context.Context, id uuid.UUID) (*rnrform.RnRForm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.findCalls++
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.form, nil
}

func (m *mockRepository) UpdateLines(ctx context.Context, formID uuid.UUID, lines []rnrform.RnRFormLine) error {
	m.mu.Lock()
	copied := make([]rnrform.RnRFormLine, len(lines))
	copy(copied, lines)
	m.updateCalls = append(m.updateCalls, copied)
	hook := m.onUpdate
	err := m.updateErr
	m.mu.Unlock()

	if hook != nil {
		hook()
	}
	return err
}

func (m *mockRepository) Finalise(ctx context.Context, formID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finaliseCalls++
	return m.finaliseErr
}

func (m *mockRepository) updateCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.updateCalls)
}

func (m *mockRepository) lastUpdate() []rnrform.RnRFormLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updateCalls) == 0 {
		return nil
	}
	return m.updateCalls[len(m.updateCalls)-1]
}

// mockNotifier captures user-facing notifications
type mockNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *mockNotifier) Success(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, message)
}

func (n *mockNotifier) Error(message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, message)
}

func (n *mockNotifier) errorCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.errors)
}

// mockPublisher captures published domain events
type mockPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *mockPublisher) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *mockPublisher) eventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.events))
	for i, e := range p.events {
		types[i] = e.EventType()
	}
	return types
}

// mockScheduler satisfies FlushScheduler without any timer
type mockScheduler struct {
	mu         sync.Mutex
	started    int
	stopped    int
	flush      func(ctx context.Context) error
}

func (s *mockScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started++
	return nil
}

func (s *mockScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped++
	return nil
}

func newTestForm(lineCount int) *rnrform.RnRForm {
	form, err := rnrform.NewRnRForm(uuid.New(), uuid.New(), uuid.New(), "2026-Q1", 30)
	if err != nil {
		panic(err)
	}
	for i := 0; i < lineCount; i++ {
		form.Lines = append(form.Lines, newTestLine(form.ID))
	}
	return form
}

func newTestLine(formID uuid.UUID) rnrform.RnRFormLine {
	return rnrform.RnRFormLine{
		ID:                               uuid.New(),
		FormID:                           formID,
		ItemID:                           uuid.New(),
		ItemCode:                         "amox250",
		ItemName:                         "Amoxicillin 250mg tabs",
		PreviousMonthlyConsumptionValues: "40,60",
		InitialBalance:                   decimal.NewFromInt(100),
		QuantityConsumed:                 decimal.NewFromInt(50),
		FinalBalance:                     decimal.NewFromInt(50),
	}
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func boolPtr(v bool) *bool {
	return &v
}
