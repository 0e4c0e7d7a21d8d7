package models

// CheckoutSession is a hosted payment page handed back to the client. It is
// never persisted.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// WebhookEventKind is the normalized meaning of a payment provider event.
type WebhookEventKind string

const (
	EventCheckoutCompleted WebhookEventKind = "checkout_completed"
	EventSubscriptionEnded WebhookEventKind = "subscription_ended"
	EventIgnored           WebhookEventKind = "ignored"
)

// WebhookEvent is a verified, decoded payment provider event.
type WebhookEvent struct {
	ID             string
	Type           string
	Kind           WebhookEventKind
	UserID         string
	CustomerID     string
	SubscriptionID string
	Status         string
}

// UploadResult describes a stored upload.
type UploadResult struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
}
