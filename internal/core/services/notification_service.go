package services

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// TransitionNotification is the webhook payload sent after a stage change
type TransitionNotification struct {
	LeadID      uint      `json:"lead_id"`
	LeadName    string    `json:"lead_name"`
	FromStage   string    `json:"from_stage,omitempty"`
	ToStage     string    `json:"to_stage"`
	Event       string    `json:"event"`
	TriggeredBy uint      `json:"triggered_by"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// SLANotification is the webhook payload sent when a lead breaches its
// stage SLA
type SLANotification struct {
	LeadID       uint   `json:"lead_id"`
	LeadName     string `json:"lead_name"`
	Stage        string `json:"stage"`
	HoursInStage int    `json:"hours_in_stage"`
	SLAHours     int    `json:"sla_hours"`
}

// NotificationService posts pipeline events to a configured webhook.
// Delivery is best-effort: failures are logged, never surfaced.
type NotificationService struct {
	webhookURL string
	client     *http.Client
}

// NewNotificationService creates a new notification service. An empty
// URL disables delivery.
func NewNotificationService(webhookURL string, timeout time.Duration) *NotificationService {
	return &NotificationService{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: timeout},
	}
}

// Enabled reports whether a webhook is configured
func (s *NotificationService) Enabled() bool {
	return s.webhookURL != ""
}

// NotifyTransition sends a stage-change event
func (s *NotificationService) NotifyTransition(ctx context.Context, n TransitionNotification) {
	s.post(ctx, "lead.stage_changed", n)
}

// NotifySLABreach sends an SLA breach event
func (s *NotificationService) NotifySLABreach(ctx context.Context, n SLANotification) {
	s.post(ctx, "lead.sla_breached", n)
}

func (s *NotificationService) post(ctx context.Context, event string, payload interface{}) {
	if !s.Enabled() {
		return
	}

	body, err := json.Marshal(map[string]interface{}{
		"event": event,
		"data":  payload,
	})
	if err != nil {
		log.Printf("⚠️ Webhook payload encode failed: %v", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Printf("⚠️ Webhook request build failed: %v", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("⚠️ Webhook delivery failed [%s]: %v", event, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("⚠️ Webhook delivery rejected [%s]: %s", event, resp.Status)
	}
}
