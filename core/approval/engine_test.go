package approval

import (
	"context"
	"testing"

	"schooltone/core/registry"
	"schooltone/model"
)

type memTrackRepo struct {
	nextID int64
	tracks map[int64]*model.Track
}

func (m *memTrackRepo) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	id := m.nextID
	m.nextID++
	cp := *track
	cp.ID = id
	m.tracks[id] = &cp
	return id, nil
}

func (m *memTrackRepo) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	t, ok := m.tracks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *memTrackRepo) GetTracksByEventID(ctx context.Context, eventID int64) ([]*model.Track, error) {
	out := make([]*model.Track, 0)
	for id := int64(1); id < m.nextID; id++ {
		if t, ok := m.tracks[id]; ok && t.EventID == eventID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTrackRepo) GetTracksByClassID(ctx context.Context, classID int64) ([]*model.Track, error) {
	out := make([]*model.Track, 0)
	for id := int64(1); id < m.nextID; id++ {
		if t, ok := m.tracks[id]; ok && t.ClassID == classID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTrackRepo) UpdateApproval(ctx context.Context, trackID int64, status model.ApprovalStatus, comment string) error {
	if t, ok := m.tracks[trackID]; ok {
		t.ApprovalStatus = status
		t.RejectionComment = comment
	}
	return nil
}

type memEventRepo struct {
	events  map[int64]*model.Event
	classes map[int64]*model.Class
}

func (m *memEventRepo) CreateEvent(ctx context.Context, event *model.Event) error {
	m.events[event.ID] = event
	return nil
}

func (m *memEventRepo) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	return m.events[id], nil
}

func (m *memEventRepo) SetAllTracksApproved(ctx context.Context, eventID int64, approved bool) error {
	if e, ok := m.events[eventID]; ok {
		e.AllTracksApproved = approved
	}
	return nil
}

func (m *memEventRepo) CreateClass(ctx context.Context, class *model.Class) error {
	m.classes[class.ID] = class
	return nil
}

func (m *memEventRepo) GetClassByID(ctx context.Context, id int64) (*model.Class, error) {
	return m.classes[id], nil
}

func (m *memEventRepo) GetClassesByEventID(ctx context.Context, eventID int64) ([]*model.Class, error) {
	out := make([]*model.Class, 0)
	for _, c := range m.classes {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

func newTestEngine(t *testing.T) (*Engine, *registry.Service, *memEventRepo) {
	t.Helper()
	tracks := &memTrackRepo{nextID: 1, tracks: make(map[int64]*model.Track)}
	events := &memEventRepo{
		events:  map[int64]*model.Event{1: {ID: 1}},
		classes: map[int64]*model.Class{10: {ID: 10, EventID: 1, Name: "3b", ExpectedSongs: 2}},
	}
	reg := registry.NewService(tracks, events)
	return NewEngine(reg), reg, events
}

func TestBatchAccumulatesFailures(t *testing.T) {
	engine, reg, events := newTestEngine(t)
	ctx := context.Background()

	a, err := reg.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-a", "events/1/classes/10/a.mp3", 1)
	if err != nil {
		t.Fatalf("RegisterAsset failed: %v", err)
	}
	b, err := reg.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-b", "events/1/classes/10/b.mp3", 1)
	if err != nil {
		t.Fatalf("RegisterAsset failed: %v", err)
	}

	result, err := engine.ApplyApprovals(ctx, 1, []Decision{
		{TrackID: a.ID, Status: model.ApprovalApproved},
		{TrackID: b.ID, Status: model.ApprovalRejected}, // missing comment
		{TrackID: 999, Status: model.ApprovalApproved},  // unknown track
	})
	if err != nil {
		t.Fatalf("ApplyApprovals failed: %v", err)
	}
	if len(result.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(result.Items))
	}
	if !result.Items[0].OK {
		t.Errorf("decision on track %d should have applied: %s", a.ID, result.Items[0].Error)
	}
	if result.Items[1].OK || result.Items[2].OK {
		t.Error("invalid decisions must fail per-item")
	}
	if result.AllTracksApproved {
		t.Error("aggregate must stay false with track b still pending")
	}
	if events.events[1].AllTracksApproved != result.AllTracksApproved {
		t.Error("persisted aggregate diverged from reported aggregate")
	}
}

func TestBatchCompletesEvent(t *testing.T) {
	engine, reg, events := newTestEngine(t)
	ctx := context.Background()

	a, _ := reg.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-a", "events/1/classes/10/a.mp3", 1)
	b, _ := reg.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-b", "events/1/classes/10/b.mp3", 1)

	result, err := engine.ApplyApprovals(ctx, 1, []Decision{
		{TrackID: a.ID, Status: model.ApprovalApproved},
		{TrackID: b.ID, Status: model.ApprovalRejected, Comment: "distorted"},
	})
	if err != nil {
		t.Fatalf("ApplyApprovals failed: %v", err)
	}
	if !result.AllTracksApproved {
		t.Error("approved + rejected leaves only approved tracks in the aggregate")
	}
	if !events.events[1].AllTracksApproved {
		t.Error("event flag not persisted")
	}
}

func TestEmptyBatchStillRecomputes(t *testing.T) {
	engine, reg, _ := newTestEngine(t)
	ctx := context.Background()

	a, _ := reg.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-a", "events/1/classes/10/a.mp3", 1)
	if _, err := reg.SetApproval(ctx, a.ID, model.ApprovalApproved, ""); err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}

	result, err := engine.ApplyApprovals(ctx, 1, nil)
	if err != nil {
		t.Fatalf("ApplyApprovals failed: %v", err)
	}
	if len(result.Items) != 0 {
		t.Errorf("items = %d, want 0", len(result.Items))
	}
	if !result.AllTracksApproved {
		t.Error("empty batch should still report the current aggregate")
	}
}
