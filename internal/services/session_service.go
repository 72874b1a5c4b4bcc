package services

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/authz"
	"tripseal-backend/internal/models"
)

type SessionService struct {
	Accounts AccountStore
	Perms    OperatorPermissionsStore
	Sessions SessionStore
	Seals    SealStore
	Tags     SealTagStore
	Activity ActivityStore
	Evidence EvidenceStore // nil when no bucket is configured
}

func NewSessionService(
	accounts AccountStore,
	perms OperatorPermissionsStore,
	sessions SessionStore,
	seals SealStore,
	tags SealTagStore,
	activity ActivityStore,
	evidence EvidenceStore,
) *SessionService {
	return &SessionService{
		Accounts: accounts,
		Perms:    perms,
		Sessions: sessions,
		Seals:    seals,
		Tags:     tags,
		Activity: activity,
		Evidence: evidence,
	}
}

// CreateSession creates a trip with its primary seal. The 1-coin spend, the
// session row, the seal row and the ledger row commit as one unit in the
// store, so a failure at any point leaves nothing behind.
func (s *SessionService) CreateSession(ctx context.Context, operatorID int, req *models.CreateSessionRequest) (*models.SessionDetail, error) {
	operator, err := s.Accounts.Get(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("load operator: %w", err)
	}

	perms, err := s.Perms.Get(ctx, operatorID)
	if err != nil {
		return nil, fmt.Errorf("load operator permissions: %w", err)
	}
	if d := authz.CanMutateSession(operator, perms, authz.SessionActionCreate); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	if operator.CompanyID == nil {
		return nil, fmt.Errorf("%w: operator %d has no company affiliation", apperrors.ErrInvalidArgument, operatorID)
	}
	if req.Barcode == "" {
		return nil, fmt.Errorf("%w: barcode is required", apperrors.ErrInvalidArgument)
	}
	if req.Source == "" || req.Destination == "" {
		return nil, fmt.Errorf("%w: source and destination are required", apperrors.ErrInvalidArgument)
	}

	session := &models.Session{
		CreatedByID: operatorID,
		CompanyID:   *operator.CompanyID,
		Source:      req.Source,
		Destination: req.Destination,
	}
	seal, err := s.Sessions.CreateWithSeal(ctx, session, req.Barcode)
	if err != nil {
		return nil, err
	}

	entry := &models.ActivityLog{
		UserID:     operatorID,
		Action:     models.ActionCreate,
		TargetType: "session",
		TargetID:   &session.ID,
		Details: map[string]any{
			"source":      req.Source,
			"destination": req.Destination,
			"barcode":     req.Barcode,
		},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[SessionService] activity log for session %d failed: %v", session.ID, err)
	}

	return &models.SessionDetail{Session: session, Seal: seal}, nil
}

// DeclareSealTags records ad-hoc tags for a session. A session with declared
// tags completes through reconciliation instead of direct seal verification.
func (s *SessionService) DeclareSealTags(ctx context.Context, operatorID, sessionID int, tags []models.DeclaredTag) error {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}

	operator, err := s.Accounts.Get(ctx, operatorID)
	if err != nil {
		return fmt.Errorf("load operator: %w", err)
	}
	perms, err := s.Perms.Get(ctx, operatorID)
	if err != nil {
		return fmt.Errorf("load operator permissions: %w", err)
	}
	if d := authz.CanMutateSession(operator, perms, authz.SessionActionModify); !d.Allowed {
		return fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	if session.Status == models.SessionCompleted {
		return apperrors.NewInvalidTransition("session", string(session.Status), string(session.Status))
	}
	if len(tags) == 0 {
		return fmt.Errorf("%w: no tags supplied", apperrors.ErrInvalidArgument)
	}
	for _, tag := range tags {
		if tag.TagID == "" {
			return fmt.Errorf("%w: empty tag id", apperrors.ErrInvalidArgument)
		}
	}

	if err := s.Tags.Declare(ctx, sessionID, tags); err != nil {
		return err
	}

	entry := &models.ActivityLog{
		UserID:     operatorID,
		Action:     models.ActionUpdate,
		TargetType: "session",
		TargetID:   &session.ID,
		Details:    map[string]any{"declared_tags": len(tags)},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[SessionService] activity log for tag declaration on session %d failed: %v", sessionID, err)
	}
	return nil
}

// VerifySeal records a guard's scan of a seal. For single-seal sessions the
// verification completes the session immediately; sessions with declared tags
// only move to IN_PROGRESS and complete through reconciliation.
func (s *SessionService) VerifySeal(ctx context.Context, guardID int, barcode string) (*models.Seal, *models.Session, error) {
	seal, err := s.Seals.GetByBarcode(ctx, barcode)
	if err != nil {
		return nil, nil, fmt.Errorf("load seal: %w", err)
	}

	guard, err := s.Accounts.Get(ctx, guardID)
	if err != nil {
		return nil, nil, fmt.Errorf("load guard: %w", err)
	}
	if d := authz.CanVerifySeal(guard); !d.Allowed {
		return nil, nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	tagCount, err := s.Tags.CountBySession(ctx, seal.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("count declared tags: %w", err)
	}

	seal, err = s.Seals.Verify(ctx, barcode, guardID, tagCount == 0)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.Sessions.Get(ctx, seal.SessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}

	entry := &models.ActivityLog{
		UserID:     guardID,
		Action:     models.ActionUpdate,
		TargetType: "seal",
		TargetID:   &seal.ID,
		Details: map[string]any{
			"barcode":        barcode,
			"status":         string(models.SealVerified),
			"session_id":     seal.SessionID,
			"session_status": string(session.Status),
		},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[SessionService] activity log for seal %d failed: %v", seal.ID, err)
	}

	return seal, session, nil
}

// UpdateSealStatus escalates a verified seal to BROKEN or TAMPERED. Both
// require evidence; MISSING is reserved for the reconciliation pass.
func (s *SessionService) UpdateSealStatus(ctx context.Context, guardID, sessionID, sealID int, status models.SealStatus, comment, evidenceB64 string) (*models.Seal, error) {
	seal, err := s.Seals.Get(ctx, sealID)
	if err != nil {
		return nil, fmt.Errorf("load seal: %w", err)
	}
	if seal.SessionID != sessionID {
		return nil, fmt.Errorf("%w: seal %d does not belong to session %d", apperrors.ErrNotFound, sealID, sessionID)
	}

	guard, err := s.Accounts.Get(ctx, guardID)
	if err != nil {
		return nil, fmt.Errorf("load guard: %w", err)
	}
	if d := authz.CanVerifySeal(guard); !d.Allowed {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, d.Reason)
	}

	if !models.ValidSealStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", apperrors.ErrInvalidArgument, status)
	}
	if status == models.SealMissing {
		return nil, fmt.Errorf("%w: MISSING is assigned only by reconciliation", apperrors.ErrInvalidArgument)
	}
	if status == models.SealBroken || status == models.SealTampered {
		if evidenceB64 == "" {
			return nil, apperrors.ErrMissingEvidence
		}
	}

	evidence := evidenceB64
	if s.Evidence != nil && evidenceB64 != "" {
		data, err := base64.StdEncoding.DecodeString(evidenceB64)
		if err != nil {
			return nil, fmt.Errorf("%w: evidence is not valid base64", apperrors.ErrInvalidArgument)
		}
		key := fmt.Sprintf("evidence/%d/%d", sessionID, sealID)
		ref, err := s.Evidence.Put(ctx, key, data)
		if err != nil {
			// Keep the inline payload rather than losing the evidence
			log.Printf("[SessionService] evidence upload for seal %d failed, storing inline: %v", sealID, err)
		} else {
			evidence = ref
		}
	}

	prevStatus := ""
	if seal.Status != nil {
		prevStatus = string(*seal.Status)
	}

	updated, err := s.Seals.UpdateStatus(ctx, sealID, sessionID, status, comment, evidence)
	if err != nil {
		return nil, err
	}

	entry := &models.ActivityLog{
		UserID:     guardID,
		Action:     models.ActionUpdate,
		TargetType: "seal",
		TargetID:   &sealID,
		Details: map[string]any{
			"previous_status": prevStatus,
			"new_status":      string(status),
			"comment":         comment,
			"evidence":        evidence,
		},
	}
	if err := s.Activity.Create(ctx, entry); err != nil {
		log.Printf("[SessionService] activity log for seal %d status failed: %v", sealID, err)
	}

	return updated, nil
}

// GetDetail returns a session with its primary seal and declared tags
func (s *SessionService) GetDetail(ctx context.Context, sessionID int) (*models.SessionDetail, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	seal, err := s.Seals.GetPrimaryBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load primary seal: %w", err)
	}
	tags, err := s.Tags.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	return &models.SessionDetail{Session: session, Seal: seal, Tags: tags}, nil
}
