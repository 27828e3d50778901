// Package access decides what a caller may retrieve for an asset: nothing,
// a short preview, or full streaming plus download. The deciding inputs are
// the externally supplied entitlement fact and the relevant release gate.
package access

import (
	"context"
	"errors"
	"path"
	"time"

	"schooltone/core/apperr"
	"schooltone/core/registry"
	"schooltone/core/release"
	"schooltone/logger"
	"schooltone/model"
	"schooltone/repository"
	"schooltone/storage"
)

// URL lifetime policy. These belong here, not in the storage gateway.
const (
	previewTTL  = 1800 * time.Second
	streamTTL   = 3600 * time.Second
	downloadTTL = 86400 * time.Second
)

// previewPrefix 预览对象与完整对象同名，存放在该前缀下
const previewPrefix = "previews/"

// Tier is the closed set of access levels. A decision is exactly one tier,
// never a combination of independent booleans.
type Tier int

const (
	TierNone Tier = iota
	TierPreview
	TierFull
)

// Decision is the caller-facing result. URL fields are pointers with
// omitempty so that ungranted keys are physically absent from the JSON,
// never null.
type Decision struct {
	Tier          Tier       `json:"-"`
	HasAudio      bool       `json:"hasAudio"`
	AudioURL      *string    `json:"audioUrl,omitempty"`
	DownloadURL   *string    `json:"downloadUrl,omitempty"`
	PreviewURL    *string    `json:"previewUrl,omitempty"`
	NotYetVisible *bool      `json:"notYetVisible,omitempty"`
	VisibleAfter  *time.Time `json:"visibleAfter,omitempty"`
}

// TrackAccess is one member of a fanned-out class or group resolution.
type TrackAccess struct {
	TrackID int64  `json:"trackId"`
	SongRef string `json:"songRef,omitempty"`
	Decision
}

// Resolver applies the release gates and entitlement to produce decisions.
type Resolver struct {
	events   repository.EventRepository
	registry *registry.Service
	releases *release.Pipeline
	store    storage.Gateway
	loc      *time.Location
	now      func() time.Time
}

// NewResolver creates an access resolver. loc pins the calendar used for the
// 7-day boundary.
func NewResolver(events repository.EventRepository, reg *registry.Service, releases *release.Pipeline, store storage.Gateway, loc *time.Location) *Resolver {
	return &Resolver{
		events:   events,
		registry: reg,
		releases: releases,
		store:    store,
		loc:      loc,
		now:      time.Now,
	}
}

// ResolveClass resolves every track of a class independently. Members whose
// asset is missing are omitted; partial availability is expected and the
// list may be shorter than the track count.
func (r *Resolver) ResolveClass(ctx context.Context, eventID, classID int64, hasEntitlement bool) ([]*TrackAccess, error) {
	event, err := r.getEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	tracks, err := r.registry.ListTracksForClass(ctx, classID)
	if err != nil {
		return nil, err
	}

	gateOpen, visibleAfter := r.genericGate(event)
	result := make([]*TrackAccess, 0, len(tracks))
	for _, track := range tracks {
		if track.EventID != eventID {
			continue
		}
		// The generic gate opens per track only once that track cleared
		// admin approval; the schoolsong path never takes this branch.
		trackGate := gateOpen && track.ApprovalStatus == model.ApprovalApproved
		decision := r.resolveTrack(ctx, track, hasEntitlement, trackGate, visibleAfter)
		if !decision.HasAudio {
			continue
		}
		result = append(result, &TrackAccess{
			TrackID:  track.ID,
			SongRef:  track.SongRef,
			Decision: decision,
		})
	}
	return result, nil
}

// ResolveSchoolsong resolves the event's flagship track. The generic 7-day
// gate does not apply here; the schoolsong release pipeline is the only gate.
func (r *Resolver) ResolveSchoolsong(ctx context.Context, eventID int64, hasEntitlement bool) (*Decision, error) {
	if _, err := r.getEvent(ctx, eventID); err != nil {
		return nil, err
	}

	rel, err := r.releases.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}

	track, err := r.registry.GetTrack(ctx, rel.SchoolsongTrackID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return &Decision{Tier: TierNone, HasAudio: false}, nil
		}
		return nil, err
	}

	gateOpen := rel.IsReleasedAt(r.now())
	decision := r.resolveTrack(ctx, track, hasEntitlement, gateOpen, rel.ReleasedAt)
	return &decision, nil
}

func (r *Resolver) getEvent(ctx context.Context, eventID int64) (*model.Event, error) {
	event, err := r.events.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, apperr.NotFoundf("event %d", eventID)
	}
	return event, nil
}

// genericGate evaluates the default release condition: every track approved
// and at least 7 calendar days elapsed since the event date, both measured
// in the configured release timezone.
func (r *Resolver) genericGate(event *model.Event) (bool, *time.Time) {
	eventDay := event.Date.In(r.loc)
	boundary := time.Date(eventDay.Year(), eventDay.Month(), eventDay.Day(), 0, 0, 0, 0, r.loc).
		AddDate(0, 0, 7)

	open := event.AllTracksApproved && !r.now().Before(boundary)
	return open, &boundary
}

// resolveTrack maps one track onto a tier. The single most important
// invariant lives here: the full branch is the only place audioUrl and
// downloadUrl are ever populated, and it is unreachable without both the
// entitlement and an open gate. Each caller supplies exactly one gate — the
// 7-day condition for class tracks, the release pipeline for the schoolsong —
// so the two are never combined for the same asset.
func (r *Resolver) resolveTrack(ctx context.Context, track *model.Track, hasEntitlement, gateOpen bool, visibleAfter *time.Time) Decision {
	if !track.HasAsset() || track.ApprovalStatus == model.ApprovalRejected {
		return Decision{Tier: TierNone, HasAudio: false}
	}

	exists, err := r.store.Exists(ctx, track.StorageKey)
	if err != nil {
		// 存储故障对调用方降级为"暂无音频"，网关已单独记录故障日志
		return Decision{Tier: TierNone, HasAudio: false}
	}
	if !exists {
		return Decision{Tier: TierNone, HasAudio: false}
	}

	if hasEntitlement && gateOpen {
		return r.fullDecision(ctx, track)
	}
	return r.previewDecision(ctx, track, hasEntitlement, visibleAfter)
}

func (r *Resolver) fullDecision(ctx context.Context, track *model.Track) Decision {
	audioURL, err := r.store.SignedURL(ctx, track.StorageKey, streamTTL, "")
	if err != nil {
		logger.Error("生成播放链接失败",
			logger.Int64("trackId", track.ID),
			logger.ErrorField(err))
		return Decision{Tier: TierNone, HasAudio: false}
	}
	downloadURL, err := r.store.SignedURL(ctx, track.StorageKey, downloadTTL, path.Base(track.StorageKey))
	if err != nil {
		logger.Error("生成下载链接失败",
			logger.Int64("trackId", track.ID),
			logger.ErrorField(err))
		return Decision{Tier: TierNone, HasAudio: false}
	}

	return Decision{
		Tier:        TierFull,
		HasAudio:    true,
		AudioURL:    &audioURL,
		DownloadURL: &downloadURL,
	}
}

func (r *Resolver) previewDecision(ctx context.Context, track *model.Track, hasEntitlement bool, visibleAfter *time.Time) Decision {
	decision := Decision{Tier: TierPreview, HasAudio: true}

	if hasEntitlement {
		// Entitled but gated: tell the caller when to come back. This is a
		// normal, cacheable response shape, not an error.
		notYet := true
		decision.NotYetVisible = &notYet
		decision.VisibleAfter = visibleAfter
	}

	previewKey := previewPrefix + track.StorageKey
	exists, err := r.store.Exists(ctx, previewKey)
	if err != nil || !exists {
		return decision
	}

	previewURL, err := r.store.SignedURL(ctx, previewKey, previewTTL, "")
	if err != nil {
		logger.Error("生成预览链接失败",
			logger.Int64("trackId", track.ID),
			logger.ErrorField(err))
		return decision
	}
	decision.PreviewURL = &previewURL
	return decision
}
