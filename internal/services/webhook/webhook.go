// Package webhook delivers summary.completed and summary.failed events to
// user-registered endpoints.
//
// Deliveries are signed with HMAC-SHA256 and logged in webhook_deliveries.
// Delivery runs in the background and never blocks or fails a summary run.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/Shimizu-Technology/sommaire-api/internal/models"
	"github.com/Shimizu-Technology/sommaire-api/internal/services/notify"
)

// Store is the slice of the database the webhook service needs.
type Store interface {
	GetActiveWebhooksForEvent(ctx context.Context, userID, event string) ([]models.Webhook, error)
	CreateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error
	UpdateWebhookDelivery(ctx context.Context, d *models.WebhookDelivery) error
}

// Service handles webhook notification delivery.
type Service struct {
	store       Store
	client      *http.Client
	retryDelays []time.Duration
	shutdownCh  chan struct{} // Signals pending deliveries to stop
	wg          sync.WaitGroup
}

// New creates a new webhook service.
func New(store Store) *Service {
	return &Service{
		store: store,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		retryDelays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
		shutdownCh:  make(chan struct{}),
	}
}

// Shutdown signals pending deliveries to stop and waits for them to record
// their final state.
func (s *Service) Shutdown() {
	close(s.shutdownCh)
	s.wg.Wait()
}

// GenerateSecret creates a random HMAC secret for a webhook.
func GenerateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// SignPayload creates an HMAC-SHA256 signature for a payload.
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// EventData is the "data" object of a webhook payload.
type EventData struct {
	RunID     string `json:"run_id"`
	SummaryID string `json:"summary_id,omitempty"`
	Stage     string `json:"stage,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Notifier returns a sink that turns a run's terminal events into webhook
// deliveries for userID. Progress events are ignored.
func (s *Service) Notifier(userID string) notify.Notifier {
	return notify.Func(func(ctx context.Context, e notify.Event) error {
		switch {
		case e.Kind == notify.KindDone:
			s.NotifyEvent(ctx, userID, models.EventSummaryCompleted, EventData{RunID: e.RunID, SummaryID: e.SummaryID})
		case notify.IsError(e.Kind):
			s.NotifyEvent(ctx, userID, models.EventSummaryFailed, EventData{RunID: e.RunID, Stage: e.Stage, Message: e.Description})
		}
		return nil
	})
}

// NotifyEvent sends event to every active webhook of userID that subscribes
// to it. Delivery happens asynchronously with retries.
func (s *Service) NotifyEvent(ctx context.Context, userID, event string, data interface{}) {
	if userID == "" {
		return
	}
	webhooks, err := s.store.GetActiveWebhooksForEvent(ctx, userID, event)
	if err != nil {
		log.Printf("⚠️  Failed to get webhooks for event %s: %v", event, err)
		return
	}
	if len(webhooks) == 0 {
		return
	}

	payloadJSON, err := json.Marshal(models.WebhookPayload{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		log.Printf("⚠️  Failed to marshal webhook payload: %v", err)
		return
	}

	for _, wh := range webhooks {
		s.wg.Add(1)
		go func(wh models.Webhook) {
			defer s.wg.Done()
			s.deliverWithRetry(wh, event, payloadJSON)
		}(wh)
	}
}

// deliverWithRetry attempts delivery on the retryDelays schedule.
// Delivery respects shutdown signals for graceful termination.
func (s *Service) deliverWithRetry(wh models.Webhook, event string, payloadJSON []byte) {
	// Independent of the request that triggered it.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	delivery := &models.WebhookDelivery{
		WebhookID: wh.ID,
		Event:     event,
		Payload:   string(payloadJSON),
		Status:    "pending",
	}
	if err := s.store.CreateWebhookDelivery(ctx, delivery); err != nil {
		log.Printf("⚠️  Failed to create webhook delivery record: %v", err)
		return
	}

	for attempt, delay := range s.retryDelays {
		if attempt > 0 {
			select {
			case <-s.shutdownCh:
				s.finish(ctx, delivery, "shutdown during delivery")
				log.Printf("⚠️  Webhook delivery aborted due to shutdown: %s → %s", event, wh.URL)
				return
			case <-ctx.Done():
				s.finish(ctx, delivery, "delivery timeout")
				log.Printf("⚠️  Webhook delivery timed out: %s → %s", event, wh.URL)
				return
			case <-time.After(delay):
			}
		}

		delivery.Attempts = attempt + 1
		statusCode, err := s.deliver(ctx, wh, payloadJSON)
		delivery.ResponseCode = statusCode

		if err == nil && statusCode >= 200 && statusCode < 300 {
			now := time.Now()
			delivery.Status = "success"
			delivery.DeliveredAt = &now
			delivery.LastError = ""
			s.update(ctx, delivery)
			log.Printf("✅ Webhook delivered: %s → %s (attempt %d)", event, wh.URL, attempt+1)
			return
		}

		if err != nil {
			delivery.LastError = err.Error()
		} else {
			delivery.LastError = fmt.Sprintf("HTTP %d", statusCode)
		}
		s.update(ctx, delivery)
		log.Printf("⚠️  Webhook delivery failed (attempt %d/%d): %s → %s: %s",
			attempt+1, len(s.retryDelays), event, wh.URL, delivery.LastError)
	}

	s.finish(ctx, delivery, delivery.LastError)
	log.Printf("❌ Webhook delivery failed permanently: %s → %s", event, wh.URL)
}

func (s *Service) finish(ctx context.Context, d *models.WebhookDelivery, reason string) {
	d.Status = "failed"
	d.LastError = reason
	// ctx may be the one that just expired.
	s.update(context.WithoutCancel(ctx), d)
}

func (s *Service) update(ctx context.Context, d *models.WebhookDelivery) {
	if err := s.store.UpdateWebhookDelivery(ctx, d); err != nil {
		log.Printf("⚠️  Failed to update delivery record: %v", err)
	}
}

// deliver sends a single webhook HTTP request.
func (s *Service) deliver(ctx context.Context, wh models.Webhook, payloadJSON []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, wh.URL, bytes.NewReader(payloadJSON))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Sommaire-Webhook/1.0")
	if wh.Secret != "" {
		req.Header.Set("X-Webhook-Signature", SignPayload(payloadJSON, wh.Secret))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
