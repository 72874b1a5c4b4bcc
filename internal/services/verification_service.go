package services

import (
	"context"
	"fmt"
	"log"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/authz"
	"tripseal-backend/internal/models"
)

const missingSealComment = "Not scanned during verification"

type VerificationService struct {
	Accounts AccountStore
	Sessions SessionStore
	Seals    SealStore
	Tags     SealTagStore
	Activity ActivityStore
	Notifier Notifier // nil disables notifications
}

func NewVerificationService(
	accounts AccountStore,
	sessions SessionStore,
	seals SealStore,
	tags SealTagStore,
	activity ActivityStore,
	notifier Notifier,
) *VerificationService {
	return &VerificationService{
		Accounts: accounts,
		Sessions: sessions,
		Seals:    seals,
		Tags:     tags,
		Activity: activity,
		Notifier: notifier,
	}
}

// Complete reconciles a multi-tag session: every declared tag the guard did
// not scan is marked MISSING, broken/tampered escalations are tallied, the
// summary is logged and the session is completed. Per-tag failures are
// tolerated; failing to write the summary entry or the session status is
// fatal because it would leave the session inconsistent.
func (s *VerificationService) Complete(ctx context.Context, guardID, sessionID int, unscannedTagIDs []string, fields map[string]any) (*models.Session, *models.VerificationSummary, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}

	guard, err := s.Accounts.Get(ctx, guardID)
	if err != nil {
		return nil, nil, fmt.Errorf("load guard: %w", err)
	}
	if d := authz.CanVerifySeal(guard); !d.Allowed {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	if session.Status == models.SessionCompleted {
		return nil, nil, apperrors.NewInvalidTransition("session", string(session.Status), string(models.SessionCompleted))
	}

	declared, err := s.declaredTagIDs(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("recover declared tags: %w", err)
	}

	missing := 0
	for _, tagID := range unscannedTagIDs {
		if err := s.Seals.UpsertMissing(ctx, sessionID, tagID, missingSealComment); err != nil {
			// Per-tag tolerance: a tag that cannot be marked is skipped,
			// not fatal to the reconciliation
			log.Printf("[Verification] session %d: marking tag %s missing failed: %v", sessionID, tagID, err)
			continue
		}
		missing++
	}

	counts, err := s.Seals.CountByStatus(ctx, sessionID)
	if err != nil {
		log.Printf("[Verification] session %d: counting seal statuses failed: %v", sessionID, err)
		counts = map[models.SealStatus]int{}
	}

	summary := &models.VerificationSummary{
		SessionID: sessionID,
		Total:     len(declared),
		Verified:  len(declared) - missing,
		Missing:   missing,
		Broken:    counts[models.SealBroken],
		Tampered:  counts[models.SealTampered],
		Fields:    fields,
	}

	entry := &models.ActivityLog{
		UserID:     guardID,
		Action:     models.ActionUpdate,
		TargetType: "session",
		TargetID:   &sessionID,
		Details: map[string]any{
			"verification_summary": map[string]any{
				"total":    summary.Total,
				"verified": summary.Verified,
				"missing":  summary.Missing,
				"broken":   summary.Broken,
				"tampered": summary.Tampered,
			},
			"fields": fields,
		},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		return nil, nil, fmt.Errorf("%w: writing verification summary: %v", apperrors.ErrInternal, err)
	}

	if err := s.Sessions.UpdateStatus(ctx, sessionID, models.SessionCompleted); err != nil {
		return nil, nil, err
	}
	session.Status = models.SessionCompleted

	// Best-effort: a notification failure is reported in the summary, never
	// rolled into the reconciliation result
	if s.Notifier != nil {
		if err := s.Notifier.SessionCompleted(ctx, session.CompanyID, sessionID, summary); err != nil {
			log.Printf("[Verification] session %d: company notification failed: %v", sessionID, err)
			summary.NotifyError = err.Error()
		}
	}

	return session, summary, nil
}

// declaredTagIDs returns the authoritative declared-tag set for a session.
// The seal_tags table is the source of truth; sessions predating it carry
// their tags only inside CREATE activity payloads, in one of three historical
// shapes: a flat list, a list nested under trip details, or the key set of an
// image attachment map.
func (s *VerificationService) declaredTagIDs(ctx context.Context, sessionID int) ([]string, error) {
	tags, err := s.Tags.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(tags) > 0 {
		ids := make([]string, 0, len(tags))
		for _, t := range tags {
			ids = append(ids, t.TagID)
		}
		return ids, nil
	}

	entries, err := s.Activity.ListSessionCreateEntries(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	for _, entry := range entries {
		if entry.Details == nil {
			continue
		}
		for _, id := range extractTagList(entry.Details["seal_tag_ids"]) {
			add(id)
		}
		if trip, ok := entry.Details["trip_details"].(map[string]any); ok {
			for _, id := range extractTagList(trip["seal_tag_ids"]) {
				add(id)
			}
		}
		if images, ok := entry.Details["tag_images"].(map[string]any); ok {
			for id := range images {
				add(id)
			}
		}
	}
	return ids, nil
}

// extractTagList coerces a JSON array of tag ids into strings
func extractTagList(v any) []string {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, item := range list {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
