package fillsign

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/docspace-portals/backend/internal/metrics"
	"github.com/docspace-portals/backend/internal/models"
	"go.uber.org/zap"
)

// ErrFormsRoomUnavailable is returned when the forms room cannot be resolved.
var ErrFormsRoomUnavailable = errors.New("fillsign: forms room unavailable")

// Platform is the subset of the DocSpace API the resolver needs.
type Platform interface {
	RequireFormsRoom(ctx context.Context) (*models.Room, error)
	GetFormsRoomFolders(ctx context.Context, roomID string) (*models.FormsRoomFolders, error)
	GetFolderContents(ctx context.Context, folderID string) (*models.FolderListing, error)
	GetFileInfo(ctx context.Context, fileID string) (*models.FileInfo, error)
	// GetFillOutLink returns nil, nil when the file has no fill-out link.
	GetFillOutLink(ctx context.Context, fileID string) (*models.ShareLink, error)
	SetFileExternalLink(ctx context.Context, fileID, auth string, opts models.LinkOptions) (*models.ShareLink, error)
}

// Resolver classifies fill-and-sign assignments by workflow status.
type Resolver struct {
	platform Platform
	logger   *zap.Logger
}

// NewResolver creates a Resolver backed by platform.
func NewResolver(platform Platform, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		platform: platform,
		logger:   logger.Named("fillsign"),
	}
}

// ResolveAssignments reconciles assignments for patientName against the
// forms room and returns them most recent first.
//
// Platform lookup failures degrade to "no data"; only a missing forms room
// is reported as an error.
func (r *Resolver) ResolveAssignments(ctx context.Context, assignments []models.Assignment, patientName string) ([]models.ResolvedAssignment, error) {
	start := time.Now()

	if strings.TrimSpace(patientName) == "" {
		resolved := make([]models.ResolvedAssignment, 0, len(assignments))
		for _, a := range assignments {
			resolved = append(resolved, actionNeeded(a, ""))
		}
		sortNewestFirst(resolved)
		r.record("no_patient", resolved, start)
		return resolved, nil
	}

	if len(assignments) == 0 {
		r.record("empty", nil, start)
		return []models.ResolvedAssignment{}, nil
	}

	room, err := r.platform.RequireFormsRoom(ctx)
	if err != nil {
		metrics.RecordResolution("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %w", ErrFormsRoomUnavailable, err)
	}

	var folders models.FormsRoomFolders
	if f, err := r.platform.GetFormsRoomFolders(ctx, room.ID); err != nil {
		r.logger.Warn("forms room folders unavailable, reporting all assignments as action needed",
			zap.String("room_id", room.ID), zap.Error(err))
		metrics.RecordLookupFailure("room_folders")
	} else if f != nil {
		folders = *f
	}

	p := newPass(r.platform, r.logger)
	resolved := make([]models.ResolvedAssignment, 0, len(assignments))
	for _, cohort := range groupCohorts(assignments) {
		resolved = append(resolved, r.resolveCohort(ctx, p, folders, cohort, patientName)...)
	}

	sortNewestFirst(resolved)
	r.record("ok", resolved, start)
	return resolved, nil
}

// resolveCohort pairs the assignments of one template with its instances.
func (r *Resolver) resolveCohort(ctx context.Context, p *pass, folders models.FormsRoomFolders, cohort []models.Assignment, patientName string) []models.ResolvedAssignment {
	sort.SliceStable(cohort, func(i, j int) bool {
		return cohort[i].CreatedAt.Before(cohort[j].CreatedAt)
	})
	title := cohort[0].TemplateTitle

	inProcessIDs := p.resolveFormFolderIDs(ctx, folders.InProcess.ID, title)
	completeIDs := p.resolveFormFolderIDs(ctx, folders.Complete.ID, title)

	complete := p.listInstances(ctx, completeIDs, patientName, title)
	var submitted, active []models.FileInfo
	for _, inst := range p.listInstances(ctx, inProcessIDs, patientName, title) {
		if isSubmitted(inst) {
			submitted = append(submitted, inst)
		} else {
			active = append(active, inst)
		}
	}

	// Complete folder first, then in-process files already marked complete,
	// then files still being filled.
	queue := newInstanceQueue(complete, submitted, active)

	out := make([]models.ResolvedAssignment, 0, len(cohort))
	for _, a := range cohort {
		inst, done, ok := queue.next()
		switch {
		case !ok:
			out = append(out, actionNeeded(a, ""))
		case done:
			out = append(out, models.ResolvedAssignment{
				Assignment:     a,
				Status:         models.AssignmentStatusCompleted,
				InstanceFileID: inst.ID,
				OpenURL:        r.ensurePublicLink(ctx, inst.ID, a.ShareLink),
			})
		default:
			out = append(out, actionNeeded(a, inst.ID))
		}
	}
	return out
}

// ensurePublicLink returns a shareable link for a completed instance,
// falling back to the assignment's own link.
func (r *Resolver) ensurePublicLink(ctx context.Context, fileID, fallback string) string {
	link, err := r.platform.GetFillOutLink(ctx, fileID)
	if err == nil && link != nil && link.ShareLink != "" {
		return link.ShareLink
	}
	if err != nil {
		r.logger.Debug("fill-out link lookup failed", zap.String("file_id", fileID), zap.Error(err))
	}

	created, err := r.platform.SetFileExternalLink(ctx, fileID, "", models.LinkOptions{Access: models.AccessRead})
	if err != nil || created == nil || created.ShareLink == "" {
		r.logger.Debug("creating read link failed, using assignment link",
			zap.String("file_id", fileID), zap.Error(err))
		metrics.RecordLookupFailure("link")
		return fallback
	}
	return created.ShareLink
}

func (r *Resolver) record(outcome string, resolved []models.ResolvedAssignment, start time.Time) {
	metrics.RecordResolution(outcome, time.Since(start).Seconds())
	for _, ra := range resolved {
		metrics.RecordAssignment(string(ra.Status))
	}
}

// isSubmitted reports whether an in-process instance is already complete
// according to its metadata.
func isSubmitted(info models.FileInfo) bool {
	return Normalize(info.FormFillingStatus) == "complete" ||
		Normalize(info.Comment) == "submitted form"
}

func actionNeeded(a models.Assignment, instanceFileID string) models.ResolvedAssignment {
	return models.ResolvedAssignment{
		Assignment:     a,
		Status:         models.AssignmentStatusAction,
		InstanceFileID: instanceFileID,
		OpenURL:        a.ShareLink,
	}
}

// groupCohorts groups assignments by template, keeping first-seen order.
func groupCohorts(assignments []models.Assignment) [][]models.Assignment {
	index := make(map[string]int)
	var cohorts [][]models.Assignment
	for _, a := range assignments {
		key := templateKey(a.TemplateTitle)
		i, ok := index[key]
		if !ok {
			i = len(cohorts)
			index[key] = i
			cohorts = append(cohorts, nil)
		}
		cohorts[i] = append(cohorts[i], a)
	}
	return cohorts
}

func sortNewestFirst(resolved []models.ResolvedAssignment) {
	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].CreatedAt.After(resolved[j].CreatedAt)
	})
}

// instanceQueue hands out instances from prioritized sources, each at most once.
type instanceQueue struct {
	sources [][]models.FileInfo
	done    []bool
	src     int
	pos     int
}

func newInstanceQueue(complete, submitted, active []models.FileInfo) *instanceQueue {
	return &instanceQueue{
		sources: [][]models.FileInfo{complete, submitted, active},
		done:    []bool{true, true, false},
	}
}

// next returns the next instance and whether it counts as completed.
func (q *instanceQueue) next() (models.FileInfo, bool, bool) {
	for q.src < len(q.sources) {
		if q.pos < len(q.sources[q.src]) {
			inst := q.sources[q.src][q.pos]
			q.pos++
			return inst, q.done[q.src], true
		}
		q.src++
		q.pos = 0
	}
	return models.FileInfo{}, false, false
}
