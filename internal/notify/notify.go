// Package notify delivers alert and badge-update notifications to the
// configured channels.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"market-scanner/internal/config"
	"market-scanner/internal/models"
	"market-scanner/pkg/utils"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendAlert(ctx context.Context, hit models.Hit) error
	SendBadgeUpdate(ctx context.Context, total, custom int) error
	SendError(ctx context.Context, err error, context string) error
}

// NotificationChannel defines the interface for one delivery channel.
type NotificationChannel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationAlert NotificationType = "alert"
	NotificationBadge NotificationType = "badge"
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
)

// MultiNotifier sends notifications to multiple channels.
type MultiNotifier struct {
	channels []NotificationChannel
	mu       sync.RWMutex
}

// NewMultiNotifier creates a MultiNotifier with the configured channels.
func NewMultiNotifier(cfg config.NotificationConfig) *MultiNotifier {
	mn := &MultiNotifier{channels: make([]NotificationChannel, 0)}
	if cfg.Webhook.Enabled {
		mn.channels = append(mn.channels, NewWebhookNotifier(cfg.Webhook))
	}
	return mn
}

// AddChannel adds a notification channel.
func (mn *MultiNotifier) AddChannel(ch NotificationChannel) {
	mn.mu.Lock()
	defer mn.mu.Unlock()
	mn.channels = append(mn.channels, ch)
}

// Send sends a notification to all enabled channels.
func (mn *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	mn.mu.RLock()
	channels := mn.channels
	mn.mu.RUnlock()

	var errs []string
	for _, ch := range channels {
		if ch.IsEnabled() {
			if err := ch.Send(ctx, n); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", ch.Name(), err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("notification errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SendAlert sends one presented alert.
func (mn *MultiNotifier) SendAlert(ctx context.Context, hit models.Hit) error {
	title := fmt.Sprintf("Alert: %s %s", hit.Code, hit.Intent)
	message := fmt.Sprintf(
		"Code: %s\nIntent: %s\nPrice: %s\nMove: %s (%s)",
		hit.Code,
		hit.Intent,
		utils.FormatMoney(hit.Price),
		utils.FormatMoney(hit.Change),
		utils.FormatPercent(hit.Pct),
	)
	if hit.Intent == models.IntentTarget {
		message += fmt.Sprintf("\nTarget: %s %s", hit.TargetDirection, utils.FormatMoney(hit.Target))
	}

	return mn.Send(ctx, Notification{
		Type:    NotificationAlert,
		Title:   title,
		Message: message,
		Data: map[string]interface{}{
			"code":      hit.Code,
			"intent":    string(hit.Intent),
			"direction": string(hit.Direction),
			"price":     hit.Price,
			"change":    hit.Change,
			"pct":       hit.Pct,
		},
	})
}

// SendBadgeUpdate sends the latest badge counts.
func (mn *MultiNotifier) SendBadgeUpdate(ctx context.Context, total, custom int) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationBadge,
		Title:   "Badge counts updated",
		Message: fmt.Sprintf("Total: %d, Custom: %d", total, custom),
		Data: map[string]interface{}{
			"total":  total,
			"custom": custom,
		},
	})
}

// SendError sends an error notification.
func (mn *MultiNotifier) SendError(ctx context.Context, err error, errContext string) error {
	return mn.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "Error",
		Message: fmt.Sprintf("Context: %s\nError: %v", errContext, err),
		Data: map[string]interface{}{
			"context": errContext,
			"error":   err.Error(),
		},
	})
}

// WebhookNotifier sends notifications via HTTP webhook.
type WebhookNotifier struct {
	url     string
	enabled bool
	client  *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(cfg config.WebhookConfig) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		enabled: cfg.Enabled && cfg.URL != "",
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns the name of the notifier.
func (w *WebhookNotifier) Name() string {
	return "webhook"
}

// IsEnabled returns whether the notifier is enabled.
func (w *WebhookNotifier) IsEnabled() bool {
	return w.enabled
}

// Send sends a notification via webhook.
func (w *WebhookNotifier) Send(ctx context.Context, n Notification) error {
	if !w.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"type":      n.Type,
		"title":     n.Title,
		"message":   n.Message,
		"data":      n.Data,
		"timestamp": n.Timestamp.Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "MarketScanner/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// NoOpNotifier is a notifier that does nothing.
type NoOpNotifier struct{}

// NewNoOpNotifier creates a new NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// Send does nothing.
func (n *NoOpNotifier) Send(ctx context.Context, notif Notification) error {
	return nil
}

// SendAlert does nothing.
func (n *NoOpNotifier) SendAlert(ctx context.Context, hit models.Hit) error {
	return nil
}

// SendBadgeUpdate does nothing.
func (n *NoOpNotifier) SendBadgeUpdate(ctx context.Context, total, custom int) error {
	return nil
}

// SendError does nothing.
func (n *NoOpNotifier) SendError(ctx context.Context, err error, context string) error {
	return nil
}
