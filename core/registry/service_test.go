package registry

import (
	"context"
	"errors"
	"testing"

	"schooltone/core/apperr"
	"schooltone/model"
)

type fakeTrackRepo struct {
	nextID int64
	tracks map[int64]*model.Track
}

func newFakeTrackRepo() *fakeTrackRepo {
	return &fakeTrackRepo{nextID: 1, tracks: make(map[int64]*model.Track)}
}

func (f *fakeTrackRepo) CreateTrack(ctx context.Context, track *model.Track) (int64, error) {
	id := f.nextID
	f.nextID++
	cp := *track
	cp.ID = id
	f.tracks[id] = &cp
	return id, nil
}

func (f *fakeTrackRepo) GetTrackByID(ctx context.Context, id int64) (*model.Track, error) {
	t, ok := f.tracks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTrackRepo) GetTracksByEventID(ctx context.Context, eventID int64) ([]*model.Track, error) {
	out := make([]*model.Track, 0)
	for id := int64(1); id < f.nextID; id++ {
		if t, ok := f.tracks[id]; ok && t.EventID == eventID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTrackRepo) GetTracksByClassID(ctx context.Context, classID int64) ([]*model.Track, error) {
	out := make([]*model.Track, 0)
	for id := int64(1); id < f.nextID; id++ {
		if t, ok := f.tracks[id]; ok && t.ClassID == classID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTrackRepo) UpdateApproval(ctx context.Context, trackID int64, status model.ApprovalStatus, comment string) error {
	if t, ok := f.tracks[trackID]; ok {
		t.ApprovalStatus = status
		t.RejectionComment = comment
	}
	return nil
}

type fakeEventRepo struct {
	events  map[int64]*model.Event
	classes map[int64]*model.Class
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events:  make(map[int64]*model.Event),
		classes: make(map[int64]*model.Class),
	}
}

func (f *fakeEventRepo) CreateEvent(ctx context.Context, event *model.Event) error {
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) GetEventByID(ctx context.Context, id int64) (*model.Event, error) {
	return f.events[id], nil
}

func (f *fakeEventRepo) SetAllTracksApproved(ctx context.Context, eventID int64, approved bool) error {
	if e, ok := f.events[eventID]; ok {
		e.AllTracksApproved = approved
	}
	return nil
}

func (f *fakeEventRepo) CreateClass(ctx context.Context, class *model.Class) error {
	f.classes[class.ID] = class
	return nil
}

func (f *fakeEventRepo) GetClassByID(ctx context.Context, id int64) (*model.Class, error) {
	return f.classes[id], nil
}

func (f *fakeEventRepo) GetClassesByEventID(ctx context.Context, eventID int64) ([]*model.Class, error) {
	out := make([]*model.Class, 0)
	for _, c := range f.classes {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *fakeTrackRepo, *fakeEventRepo) {
	t.Helper()
	tracks := newFakeTrackRepo()
	events := newFakeEventRepo()
	events.events[1] = &model.Event{ID: 1}
	events.classes[10] = &model.Class{ID: 10, EventID: 1, Name: "3b", ExpectedSongs: 2}
	events.classes[11] = &model.Class{ID: 11, EventID: 1, Name: "4a", ExpectedSongs: 1}
	return NewService(tracks, events), tracks, events
}

func TestRegisterAssetStartsPending(t *testing.T) {
	s, _, events := newTestService(t)

	track, err := s.RegisterAsset(context.Background(), 1, 10, model.KindFinalMix, "song-1", "events/1/classes/10/a.mp3", 1024)
	if err != nil {
		t.Fatalf("RegisterAsset failed: %v", err)
	}
	if track.ApprovalStatus != model.ApprovalPending {
		t.Errorf("status = %s, want pending", track.ApprovalStatus)
	}
	if events.events[1].AllTracksApproved {
		t.Error("a fresh pending track must pull the aggregate to false")
	}
}

func TestRegisterAssetUnknownClass(t *testing.T) {
	s, _, _ := newTestService(t)

	_, err := s.RegisterAsset(context.Background(), 1, 999, model.KindFinalMix, "x", "events/1/classes/999/a.mp3", 1)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRejectionRequiresComment(t *testing.T) {
	s, _, _ := newTestService(t)
	track, err := s.RegisterAsset(context.Background(), 1, 10, model.KindFinalMix, "x", "events/1/classes/10/a.mp3", 1)
	if err != nil {
		t.Fatalf("RegisterAsset failed: %v", err)
	}

	if _, err := s.SetApproval(context.Background(), track.ID, model.ApprovalRejected, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("rejection without comment should fail validation, got %v", err)
	}

	rejected, err := s.SetApproval(context.Background(), track.ID, model.ApprovalRejected, "clipping in the chorus")
	if err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}
	if rejected.RejectionComment != "clipping in the chorus" {
		t.Errorf("comment = %q", rejected.RejectionComment)
	}

	// Re-approving discards the stale comment.
	approved, err := s.SetApproval(context.Background(), track.ID, model.ApprovalApproved, "ignored")
	if err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}
	if approved.RejectionComment != "" {
		t.Errorf("comment should be cleared on approval, got %q", approved.RejectionComment)
	}
}

func TestApproveWithoutAssetFails(t *testing.T) {
	s, tracks, _ := newTestService(t)
	id, _ := tracks.CreateTrack(context.Background(), &model.Track{
		EventID: 1, ClassID: 10, Kind: model.KindFinalMix, ApprovalStatus: model.ApprovalPending,
	})

	if _, err := s.SetApproval(context.Background(), id, model.ApprovalApproved, ""); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("approving a track without an asset should fail validation, got %v", err)
	}
}

func TestAggregateOverAssetBearingSet(t *testing.T) {
	s, _, events := newTestService(t)
	ctx := context.Background()

	a, _ := s.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-a", "events/1/classes/10/a.mp3", 1)
	b, _ := s.RegisterAsset(ctx, 1, 11, model.KindFinalMix, "song-b", "events/1/classes/11/b.mp3", 1)

	if _, err := s.SetApproval(ctx, a.ID, model.ApprovalApproved, ""); err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}
	if events.events[1].AllTracksApproved {
		t.Error("aggregate must stay false while b is pending")
	}

	if _, err := s.SetApproval(ctx, b.ID, model.ApprovalApproved, ""); err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}
	if !events.events[1].AllTracksApproved {
		t.Error("aggregate should be true with every asset-bearing track approved")
	}

	// Class 3b expected 2 songs but only one was uploaded: the missing song
	// does not block the aggregate.
}

func TestRejectedTracksLeaveAggregate(t *testing.T) {
	s, _, events := newTestService(t)
	ctx := context.Background()

	a, _ := s.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-a", "events/1/classes/10/a.mp3", 1)
	b, _ := s.RegisterAsset(ctx, 1, 11, model.KindFinalMix, "song-b", "events/1/classes/11/b.mp3", 1)

	if _, err := s.SetApproval(ctx, a.ID, model.ApprovalApproved, ""); err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}
	if _, err := s.SetApproval(ctx, b.ID, model.ApprovalRejected, "re-record"); err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}
	if !events.events[1].AllTracksApproved {
		t.Error("a rejected track must drop out of the aggregate")
	}
}

func TestEmptyEventNeverApproved(t *testing.T) {
	s, _, events := newTestService(t)

	ok, err := s.RecomputeAggregate(context.Background(), 1)
	if err != nil {
		t.Fatalf("RecomputeAggregate failed: %v", err)
	}
	if ok || events.events[1].AllTracksApproved {
		t.Error("an event with no asset-bearing tracks must not be approved")
	}
}

func TestEventOverviewCounts(t *testing.T) {
	s, _, _ := newTestService(t)
	ctx := context.Background()

	a, _ := s.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-a", "events/1/classes/10/a.mp3", 1)
	if _, err := s.SetApproval(ctx, a.ID, model.ApprovalRejected, "redo"); err != nil {
		t.Fatalf("SetApproval failed: %v", err)
	}
	if _, err := s.RegisterAsset(ctx, 1, 10, model.KindFinalMix, "song-a", "events/1/classes/10/a2.mp3", 1); err != nil {
		t.Fatalf("RegisterAsset failed: %v", err)
	}

	overview, err := s.EventOverview(ctx, 1)
	if err != nil {
		t.Fatalf("EventOverview failed: %v", err)
	}
	for _, ov := range overview {
		switch ov.Class.ID {
		case 10:
			if ov.UploadedSongs != 1 {
				t.Errorf("class 10 uploadedSongs = %d, want 1 (rejected track excluded)", ov.UploadedSongs)
			}
			if len(ov.Tracks) != 2 {
				t.Errorf("class 10 should still list both rows, got %d", len(ov.Tracks))
			}
		case 11:
			if ov.UploadedSongs != 0 {
				t.Errorf("class 11 uploadedSongs = %d, want 0", ov.UploadedSongs)
			}
		}
	}
}
