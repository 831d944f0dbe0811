package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"market-scanner/internal/models"
	"market-scanner/pkg/utils"
)

// TerminalNotificationType represents the type of terminal notification.
type TerminalNotificationType int

const (
	TerminalNotifyTarget TerminalNotificationType = iota
	TerminalNotifyMover
	TerminalNotifyHilo
	TerminalNotifyBadge
	TerminalNotifyError
	TerminalNotifyInfo
)

// TerminalNotification represents a notification to be displayed in the terminal.
type TerminalNotification struct {
	Type      TerminalNotificationType
	Code      string
	Message   string
	Price     float64
	Pct       float64
	Timestamp time.Time
	Priority  int // Higher = more important
}

// TerminalNotifier handles real-time terminal notifications.
type TerminalNotifier struct {
	notifications chan TerminalNotification
	handlers      []TerminalNotificationHandler
	mu            sync.RWMutex
	enabled       bool
	bellEnabled   bool
	colorEnabled  bool
}

// TerminalNotificationHandler is a function that handles terminal notifications.
type TerminalNotificationHandler func(n TerminalNotification)

// NewTerminalNotifier creates a new TerminalNotifier.
func NewTerminalNotifier(bufferSize int) *TerminalNotifier {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &TerminalNotifier{
		notifications: make(chan TerminalNotification, bufferSize),
		handlers:      make([]TerminalNotificationHandler, 0),
		enabled:       true,
		bellEnabled:   true,
		colorEnabled:  true,
	}
}

// Name returns the name of the notifier.
func (tn *TerminalNotifier) Name() string {
	return "terminal"
}

// IsEnabled returns whether the notifier is enabled.
func (tn *TerminalNotifier) IsEnabled() bool {
	tn.mu.RLock()
	defer tn.mu.RUnlock()
	return tn.enabled
}

// SetBellEnabled enables or disables the terminal bell.
func (tn *TerminalNotifier) SetBellEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.bellEnabled = enabled
}

// SetColorEnabled enables or disables colored output.
func (tn *TerminalNotifier) SetColorEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.colorEnabled = enabled
}

// SetEnabled enables or disables the notifier.
func (tn *TerminalNotifier) SetEnabled(enabled bool) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.enabled = enabled
}

// AddHandler adds a notification handler.
func (tn *TerminalNotifier) AddHandler(handler TerminalNotificationHandler) {
	tn.mu.Lock()
	defer tn.mu.Unlock()
	tn.handlers = append(tn.handlers, handler)
}

// Send adapts a channel-agnostic Notification onto the terminal, so a
// TerminalNotifier can be registered on a MultiNotifier.
func (tn *TerminalNotifier) Send(ctx context.Context, n Notification) error {
	tnType := TerminalNotifyInfo
	priority := 1
	switch n.Type {
	case NotificationAlert:
		tnType = TerminalNotifyMover
		priority = 2
	case NotificationBadge:
		tnType = TerminalNotifyBadge
	case NotificationError:
		tnType = TerminalNotifyError
		priority = 3
	}
	code, _ := n.Data["code"].(string)
	price, _ := n.Data["price"].(float64)
	pct, _ := n.Data["pct"].(float64)

	tn.Notify(TerminalNotification{
		Type:      tnType,
		Code:      code,
		Message:   n.Message,
		Price:     price,
		Pct:       pct,
		Timestamp: n.Timestamp,
		Priority:  priority,
	})
	return nil
}

// Notify sends a notification to the terminal.
func (tn *TerminalNotifier) Notify(n TerminalNotification) {
	tn.mu.RLock()
	enabled := tn.enabled
	tn.mu.RUnlock()

	if !enabled {
		return
	}

	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	select {
	case tn.notifications <- n:
	default:
		// Buffer full, drop oldest notification
		select {
		case <-tn.notifications:
		default:
		}
		tn.notifications <- n
	}
}

// Start starts processing notifications.
func (tn *TerminalNotifier) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case n := <-tn.notifications:
				tn.processNotification(n)
			}
		}
	}()
}

// processNotification processes a single notification.
func (tn *TerminalNotifier) processNotification(n TerminalNotification) {
	tn.mu.RLock()
	handlers := tn.handlers
	bellEnabled := tn.bellEnabled
	tn.mu.RUnlock()

	// Ring bell for important notifications
	if bellEnabled && n.Priority > 1 {
		fmt.Print("\a")
	}

	for _, handler := range handlers {
		handler(n)
	}
}

// NotifyHit sends a notification for one presented alert.
func (tn *TerminalNotifier) NotifyHit(hit models.Hit) {
	var tnType TerminalNotificationType
	var message string
	switch {
	case hit.Intent == models.IntentTarget:
		tnType = TerminalNotifyTarget
		message = fmt.Sprintf("Target %s %s crossed", hit.TargetDirection, utils.FormatMoney(hit.Target))
	case hit.Intent.IsHilo():
		tnType = TerminalNotifyHilo
		if hit.Intent == models.IntentHiloHigh {
			message = "New 52-week high"
		} else {
			message = "New 52-week low"
		}
	default:
		tnType = TerminalNotifyMover
		message = fmt.Sprintf("Moved %s (%s)", utils.FormatMoney(hit.Change), utils.FormatPercent(hit.Pct))
	}

	tn.Notify(TerminalNotification{
		Type:      tnType,
		Code:      hit.Code,
		Message:   message,
		Price:     hit.Price,
		Pct:       hit.Pct,
		Timestamp: hit.Timestamp,
		Priority:  2,
	})
}

// NotifyBadge sends the latest badge counts.
func (tn *TerminalNotifier) NotifyBadge(total, custom int) {
	tn.Notify(TerminalNotification{
		Type:     TerminalNotifyBadge,
		Message:  fmt.Sprintf("New alerts: %d total, %d custom", total, custom),
		Priority: 1,
	})
}

// NotifyError sends an error notification.
func (tn *TerminalNotifier) NotifyError(err error, context string) {
	tn.Notify(TerminalNotification{
		Type:     TerminalNotifyError,
		Message:  fmt.Sprintf("Error in %s: %v", context, err),
		Priority: 3,
	})
}

// NotifyInfo sends an informational notification.
func (tn *TerminalNotifier) NotifyInfo(message string) {
	tn.Notify(TerminalNotification{
		Type:     TerminalNotifyInfo,
		Message:  message,
		Priority: 0,
	})
}

// FormatNotification formats a notification for terminal display.
func FormatNotification(n TerminalNotification, colorEnabled bool) string {
	var sb strings.Builder

	timestamp := n.Timestamp.Format("15:04:05")

	var typeIndicator, color, resetColor string
	if colorEnabled {
		resetColor = "\033[0m"
	}

	switch n.Type {
	case TerminalNotifyTarget:
		typeIndicator = "TARGET"
		if colorEnabled {
			color = "\033[36m" // Cyan
		}
	case TerminalNotifyMover:
		typeIndicator = "MOVER"
		if colorEnabled {
			if n.Pct < 0 {
				color = "\033[31m" // Red
			} else {
				color = "\033[32m" // Green
			}
		}
	case TerminalNotifyHilo:
		typeIndicator = "HILO"
		if colorEnabled {
			color = "\033[33m" // Yellow
		}
	case TerminalNotifyBadge:
		typeIndicator = "BADGE"
		if colorEnabled {
			color = "\033[35m" // Magenta
		}
	case TerminalNotifyError:
		typeIndicator = "ERROR"
		if colorEnabled {
			color = "\033[31m" // Red
		}
	case TerminalNotifyInfo:
		typeIndicator = "INFO"
		if colorEnabled {
			color = "\033[37m" // White
		}
	}

	sb.WriteString(fmt.Sprintf("%s[%s] %s%s", color, timestamp, typeIndicator, resetColor))

	if n.Code != "" {
		sb.WriteString(fmt.Sprintf(" | %s", n.Code))
	}

	sb.WriteString(fmt.Sprintf(" | %s", n.Message))

	if n.Price > 0 {
		sb.WriteString(fmt.Sprintf(" | %s", utils.FormatMoney(n.Price)))
	}

	return sb.String()
}

// DefaultTerminalHandler returns a default handler that prints to stdout.
func DefaultTerminalHandler(colorEnabled bool) TerminalNotificationHandler {
	return func(n TerminalNotification) {
		fmt.Println(FormatNotification(n, colorEnabled))
	}
}

// Announcer tracks which alerts have already been announced so each alert
// key is spoken at most once per session. Re-triggering across a refresh is
// expected; the user only wants to hear about it the first time.
type Announcer struct {
	notifier  *TerminalNotifier
	announced map[string]bool
	mu        sync.Mutex
}

// NewAnnouncer creates a new Announcer on top of a TerminalNotifier.
func NewAnnouncer(tn *TerminalNotifier) *Announcer {
	return &Announcer{
		notifier:  tn,
		announced: make(map[string]bool),
	}
}

// Announce notifies each hit that has not been announced yet.
func (a *Announcer) Announce(hits []models.Hit) {
	a.mu.Lock()
	fresh := make([]models.Hit, 0, len(hits))
	for _, hit := range hits {
		key := hit.Key()
		if a.announced[key] {
			continue
		}
		a.announced[key] = true
		fresh = append(fresh, hit)
	}
	a.mu.Unlock()

	for _, hit := range fresh {
		a.notifier.NotifyHit(hit)
	}
}

// Reset clears the announced set, typically at the start of a new session.
func (a *Announcer) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.announced = make(map[string]bool)
}
