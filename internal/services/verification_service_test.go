package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"tripseal-backend/internal/apperrors"
	"tripseal-backend/internal/models"
)

func newVerificationService(m *memStore, n Notifier) *VerificationService {
	return NewVerificationService(m, sessionStore{m}, sealStore{m}, tagStore{m}, activityStore{m}, n)
}

// seedMultiTagSession builds a session with declared tags A, B, C and the
// primary seal already scanned by the guard.
func seedMultiTagSession(t *testing.T, m *memStore) *models.Session {
	t.Helper()
	op := m.accounts[4]
	op.Coins = 1
	sessSvc := newSessionService(m)
	detail, err := sessSvc.CreateSession(context.Background(), op.ID, createReq("SEAL-001"))
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	tags := []models.DeclaredTag{
		{TagID: "A", CaptureMethod: "scan"},
		{TagID: "B", CaptureMethod: "scan"},
		{TagID: "C", CaptureMethod: "manual"},
	}
	if err := sessSvc.DeclareSealTags(context.Background(), op.ID, detail.Session.ID, tags); err != nil {
		t.Fatalf("declare tags: %v", err)
	}
	if _, _, err := sessSvc.VerifySeal(context.Background(), 5, "SEAL-001"); err != nil {
		t.Fatalf("verify primary seal: %v", err)
	}
	return detail.Session
}

func TestCompleteMarksUnscannedMissing(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)
	session := seedMultiTagSession(t, m)
	svc := newVerificationService(m, nil)

	completed, summary, err := svc.Complete(context.Background(), 5, session.ID, []string{"C"}, map[string]any{"vehicle_no": "UP32AB1234"})
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.SessionCompleted {
		t.Fatalf("session status = %s, want COMPLETED", completed.Status)
	}
	if summary.Total != 3 || summary.Verified != 2 || summary.Missing != 1 {
		t.Fatalf("summary = %+v, want total 3 verified 2 missing 1", summary)
	}

	// tag C now exists as a MISSING seal with the reconciliation comment
	var found *models.Seal
	for _, seal := range m.seals {
		if seal.SessionID == session.ID && seal.Barcode == "C" {
			found = seal
		}
	}
	if found == nil || found.Status == nil || *found.Status != models.SealMissing {
		t.Fatalf("tag C seal = %+v, want MISSING", found)
	}
	if found.StatusComment != missingSealComment {
		t.Fatalf("comment = %q", found.StatusComment)
	}
}

func TestCompleteCountsEscalations(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)
	session := seedMultiTagSession(t, m)
	// escalate the primary seal before reconciling
	sessSvc := newSessionService(m)
	seal, err := sealStore{m}.GetPrimaryBySession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("primary seal: %v", err)
	}
	if _, err := sessSvc.UpdateSealStatus(context.Background(), 5, session.ID, seal.ID, models.SealBroken, "wire cut", "ZXZpZGVuY2U="); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	svc := newVerificationService(m, nil)
	_, summary, err := svc.Complete(context.Background(), 5, session.ID, nil, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if summary.Broken != 1 || summary.Tampered != 0 || summary.Missing != 0 {
		t.Fatalf("summary = %+v, want broken 1", summary)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)
	session := seedMultiTagSession(t, m)
	svc := newVerificationService(m, nil)

	if _, _, err := svc.Complete(context.Background(), 5, session.ID, nil, nil); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	_, _, err := svc.Complete(context.Background(), 5, session.ID, nil, nil)
	if !apperrors.IsInvalidTransition(err) {
		t.Fatalf("want InvalidStateTransition, got %v", err)
	}
}

func TestCompleteGuardOnly(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)
	session := seedMultiTagSession(t, m)
	svc := newVerificationService(m, nil)

	if _, _, err := svc.Complete(context.Background(), 4, session.ID, nil, nil); !errors.Is(err, apperrors.ErrUnauthorized) {
		t.Fatalf("operator completing: want ErrUnauthorized, got %v", err)
	}
	if _, _, err := svc.Complete(context.Background(), 5, 99999, nil, nil); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("unknown session: want ErrNotFound, got %v", err)
	}
}

func TestCompleteSummaryWriteFailureIsFatal(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)
	session := seedMultiTagSession(t, m)
	svc := newVerificationService(m, nil)

	m.failActivity = true
	_, _, err := svc.Complete(context.Background(), 5, session.ID, []string{"C"}, nil)
	if !errors.Is(err, apperrors.ErrInternal) {
		t.Fatalf("want ErrInternal, got %v", err)
	}
	if m.sessions[session.ID].Status == models.SessionCompleted {
		t.Fatal("session must not complete when the summary cannot be recorded")
	}
}

func TestCompleteNotifierFailureIsBestEffort(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)
	session := seedMultiTagSession(t, m)
	notifier := &recordingNotifier{err: fmt.Errorf("webhook timeout")}
	svc := newVerificationService(m, notifier)

	completed, summary, err := svc.Complete(context.Background(), 5, session.ID, nil, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if completed.Status != models.SessionCompleted {
		t.Fatal("notification failure must not block completion")
	}
	if summary.NotifyError == "" {
		t.Fatal("notify error should surface in the summary")
	}
	if len(notifier.calls) != 1 || notifier.calls[0] != session.ID {
		t.Fatalf("notifier calls = %v", notifier.calls)
	}
}

// Sessions created before declared tags were stored in their own table carry
// the tag list only inside the CREATE activity payload. All three historical
// payload shapes must be recovered.
func TestCompleteRecoversTagsFromActivityLog(t *testing.T) {
	shapes := map[string]map[string]any{
		"flat list": {
			"barcode":      "SEAL-OLD",
			"seal_tag_ids": []any{"A", "B", "C"},
		},
		"nested trip details": {
			"barcode":      "SEAL-OLD",
			"trip_details": map[string]any{"seal_tag_ids": []any{"A", "B", "C"}},
		},
		"tag image map": {
			"barcode":    "SEAL-OLD",
			"tag_images": map[string]any{"A": "img1.jpg", "B": "img2.jpg", "C": "img3.jpg"},
		},
	}

	for name, details := range shapes {
		t.Run(name, func(t *testing.T) {
			m := newMemStore()
			seedHierarchy(m)

			// historical session: no seal_tags rows, tags only in the log
			session := &models.Session{ID: 100, CompanyID: 3, CreatedByID: 4, Source: "Kanpur", Destination: "Lucknow", Status: models.SessionInProgress}
			m.sessions[session.ID] = session
			entry := &models.ActivityLog{UserID: 4, Action: models.ActionCreate, TargetType: "session", TargetID: &session.ID, Details: details}
			if err := (activityStore{m}).Create(context.Background(), entry); err != nil {
				t.Fatalf("seed log: %v", err)
			}

			svc := newVerificationService(m, nil)
			_, summary, err := svc.Complete(context.Background(), 5, session.ID, []string{"B", "C"}, nil)
			if err != nil {
				t.Fatalf("complete: %v", err)
			}
			if summary.Total != 3 || summary.Missing != 2 || summary.Verified != 1 {
				t.Fatalf("summary = %+v, want total 3 missing 2 verified 1", summary)
			}
		})
	}
}

func TestCompleteDeduplicatesMinedTags(t *testing.T) {
	m := newMemStore()
	seedHierarchy(m)

	session := &models.Session{ID: 100, CompanyID: 3, CreatedByID: 4, Status: models.SessionInProgress}
	m.sessions[session.ID] = session
	details := map[string]any{
		"seal_tag_ids": []any{"A", "B"},
		"trip_details": map[string]any{"seal_tag_ids": []any{"B", "C"}},
		"tag_images":   map[string]any{"C": "img.jpg"},
	}
	entry := &models.ActivityLog{UserID: 4, Action: models.ActionCreate, TargetType: "session", TargetID: &session.ID, Details: details}
	if err := (activityStore{m}).Create(context.Background(), entry); err != nil {
		t.Fatalf("seed log: %v", err)
	}

	svc := newVerificationService(m, nil)
	_, summary, err := svc.Complete(context.Background(), 5, session.ID, nil, nil)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if summary.Total != 3 {
		t.Fatalf("total = %d, want 3 distinct tags", summary.Total)
	}
}
