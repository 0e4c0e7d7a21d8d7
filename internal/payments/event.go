package payments

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v79/webhook"

	"audiostory-backend-go/internal/models"
)

const (
	eventCheckoutCompleted   = "checkout.session.completed"
	eventSubscriptionDeleted = "customer.subscription.deleted"
	eventSubscriptionUpdated = "customer.subscription.updated"
)

// Subscription statuses after which the subscription grants nothing.
var terminalStatuses = map[string]bool{
	"canceled":           true,
	"unpaid":             true,
	"incomplete_expired": true,
}

type rawEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// eventObject holds the fields shared by checkout sessions and
// subscriptions that the billing flow reads.
type eventObject struct {
	ID                string            `json:"id"`
	Customer          expandableID      `json:"customer"`
	Subscription      expandableID      `json:"subscription"`
	ClientReferenceID string            `json:"client_reference_id"`
	Status            string            `json:"status"`
	Metadata          map[string]string `json:"metadata"`
}

// expandableID accepts either an object id or the expanded object.
type expandableID string

func (e *expandableID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*e = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*e = expandableID(id)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

// ParseEvent verifies payload against sigHeader with secret and decodes it
// into a WebhookEvent. Nothing is decoded before the signature checks out.
func ParseEvent(payload []byte, sigHeader, secret string) (*models.WebhookEvent, error) {
	if secret == "" {
		return nil, ErrWebhookNotConfigured
	}
	if sigHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	if err := webhook.ValidatePayload(payload, sigHeader, secret); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var raw rawEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if raw.ID == "" || raw.Type == "" {
		return nil, fmt.Errorf("%w: event id and type are required", ErrMalformedEvent)
	}

	event := &models.WebhookEvent{ID: raw.ID, Type: raw.Type, Kind: models.EventIgnored}
	switch raw.Type {
	case eventCheckoutCompleted, eventSubscriptionDeleted, eventSubscriptionUpdated:
	default:
		return event, nil
	}

	var obj eventObject
	if err := json.Unmarshal(raw.Data.Object, &obj); err != nil {
		return nil, fmt.Errorf("%w: decoding %s object: %v", ErrMalformedEvent, raw.Type, err)
	}
	event.CustomerID = string(obj.Customer)
	event.UserID = metadataUserID(obj.Metadata)
	event.Status = obj.Status

	switch raw.Type {
	case eventCheckoutCompleted:
		event.Kind = models.EventCheckoutCompleted
		event.SubscriptionID = string(obj.Subscription)
		if event.UserID == "" {
			event.UserID = obj.ClientReferenceID
		}
	case eventSubscriptionDeleted:
		event.Kind = models.EventSubscriptionEnded
		event.SubscriptionID = obj.ID
	case eventSubscriptionUpdated:
		event.SubscriptionID = obj.ID
		if terminalStatuses[obj.Status] {
			event.Kind = models.EventSubscriptionEnded
		}
	}
	return event, nil
}

func metadataUserID(metadata map[string]string) string {
	if uid := metadata[MetadataUserIDKey]; uid != "" {
		return uid
	}
	return metadata[legacyUserIDKey]
}
