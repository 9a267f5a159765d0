package service

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/spec-kit/hms-gateway/internal/domain"
	"github.com/spec-kit/hms-gateway/internal/events"
	"github.com/spec-kit/hms-gateway/internal/realtime"
	"github.com/spec-kit/hms-gateway/internal/repository"
)

// stubStaffRepo delegates to an in-memory repository unless a func is set.
type stubStaffRepo struct {
	*repository.MemoryStaffRepository

	createFunc  func(ctx context.Context, staff *domain.StaffProfile) error
	getByIDFunc func(ctx context.Context, id string) (*domain.StaffProfile, error)

	creates      atomic.Int32
	createdOK    atomic.Int32
	getByIDCalls atomic.Int32
}

func newStubStaffRepo() *stubStaffRepo {
	return &stubStaffRepo{MemoryStaffRepository: repository.NewMemoryStaffRepository()}
}

func (s *stubStaffRepo) Create(ctx context.Context, staff *domain.StaffProfile) error {
	s.creates.Add(1)
	var err error
	if s.createFunc != nil {
		err = s.createFunc(ctx, staff)
	} else {
		err = s.MemoryStaffRepository.Create(ctx, staff)
	}
	if err == nil {
		s.createdOK.Add(1)
	}
	return err
}

func (s *stubStaffRepo) GetByID(ctx context.Context, id string) (*domain.StaffProfile, error) {
	s.getByIDCalls.Add(1)
	if s.getByIDFunc != nil {
		return s.getByIDFunc(ctx, id)
	}
	return s.MemoryStaffRepository.GetByID(ctx, id)
}

// recordingDispatcher captures published events.
type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		out = append(out, e.Type)
	}
	return out
}

// recordingPublisher captures relayed changes.
type recordingPublisher struct {
	mu      sync.Mutex
	changes []realtime.Change
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, change realtime.Change) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.changes = append(p.changes, change)
	return nil
}
