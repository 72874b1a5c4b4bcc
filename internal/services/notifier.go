package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"tripseal-backend/internal/models"
)

// NotificationLogStore records delivery attempts for the ops dashboard
type NotificationLogStore interface {
	Create(ctx context.Context, n *models.NotificationLog) error
}

// WebhookNotifier delivers session-completion notices to a company-facing
// webhook. Delivery is best-effort: errors are logged and returned to the
// caller for reporting, never escalated into the core result.
type WebhookNotifier struct {
	URL     string
	Client  *http.Client
	LogRepo NotificationLogStore // optional
}

func NewWebhookNotifier(url string, timeout time.Duration, logRepo NotificationLogStore) *WebhookNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookNotifier{
		URL:     url,
		Client:  &http.Client{Timeout: timeout},
		LogRepo: logRepo,
	}
}

type completionNotice struct {
	Event     string                      `json:"event"`
	CompanyID int                         `json:"company_id"`
	SessionID int                         `json:"session_id"`
	Summary   *models.VerificationSummary `json:"summary"`
	SentAt    time.Time                   `json:"sent_at"`
}

// SessionCompleted posts the verification summary to the webhook
func (n *WebhookNotifier) SessionCompleted(ctx context.Context, companyID, sessionID int, summary *models.VerificationSummary) error {
	err := n.post(ctx, &completionNotice{
		Event:     "session.completed",
		CompanyID: companyID,
		SessionID: sessionID,
		Summary:   summary,
		SentAt:    time.Now(),
	})

	if n.LogRepo != nil {
		logEntry := &models.NotificationLog{
			CompanyID: companyID,
			SessionID: sessionID,
			Kind:      "session.completed",
			Success:   err == nil,
		}
		if err != nil {
			logEntry.Error = err.Error()
		}
		if logErr := n.LogRepo.Create(ctx, logEntry); logErr != nil {
			log.Printf("[Notifier] recording delivery attempt failed: %v", logErr)
		}
	}

	return err
}

func (n *WebhookNotifier) post(ctx context.Context, notice *completionNotice) error {
	if n.URL == "" {
		return nil
	}

	body, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal notice: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.Client.Do(req)
	if err != nil {
		return fmt.Errorf("deliver notice: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
