package models

import (
	"slices"
	"time"
)

// SubscriptionState is the slice of a profile written by payment events.
// Repositories load it inside a transaction, let the caller mutate it and
// persist it only when it changed.
type SubscriptionState struct {
	Tier                    Tier
	CustomerID              string
	SubscriptionID          string
	CanceledSubscriptionIDs []string
	PremiumSince            *time.Time
}

// ActivationResult describes what ActivatePremium did.
type ActivationResult string

const (
	ActivationApplied   ActivationResult = "applied"
	ActivationDuplicate ActivationResult = "duplicate"
	ActivationStale     ActivationResult = "stale"
)

// Equal reports whether s and other would persist to the same fields.
func (s SubscriptionState) Equal(other SubscriptionState) bool {
	if s.Tier != other.Tier || s.CustomerID != other.CustomerID || s.SubscriptionID != other.SubscriptionID {
		return false
	}
	if !slices.Equal(s.CanceledSubscriptionIDs, other.CanceledSubscriptionIDs) {
		return false
	}
	if s.PremiumSince == nil || other.PremiumSince == nil {
		return s.PremiumSince == nil && other.PremiumSince == nil
	}
	return s.PremiumSince.Equal(*other.PremiumSince)
}

// IsCanceled reports whether subscriptionID has ended for this profile.
func (s SubscriptionState) IsCanceled(subscriptionID string) bool {
	return subscriptionID != "" && slices.Contains(s.CanceledSubscriptionIDs, subscriptionID)
}

// ActivatePremium grants the premium tier for subscriptionID.
//
// A subscription recorded as canceled is never re-activated, and neither is
// one that would displace a different subscription that is still granting
// premium. A replay of the activation already in place changes nothing.
// PremiumSince is only stamped when the subscription changes.
func (s *SubscriptionState) ActivatePremium(customerID, subscriptionID string, at time.Time) ActivationResult {
	if s.IsCanceled(subscriptionID) {
		return ActivationStale
	}
	if s.Tier == TierPremium && s.SubscriptionID != "" && s.SubscriptionID != subscriptionID {
		return ActivationStale
	}
	sameCustomer := customerID == "" || customerID == s.CustomerID
	if s.Tier == TierPremium && s.SubscriptionID == subscriptionID && sameCustomer {
		return ActivationDuplicate
	}
	if s.Tier != TierPremium || s.SubscriptionID != subscriptionID || s.PremiumSince == nil {
		stamped := at.UTC()
		s.PremiumSince = &stamped
	}
	s.Tier = TierPremium
	s.SubscriptionID = subscriptionID
	if customerID != "" {
		s.CustomerID = customerID
	}
	return ActivationApplied
}

// EndSubscription reverts the tier to free if subscriptionID is the one
// currently granting premium. Every ended id is remembered as canceled so a
// late activation for it is rejected. Reports whether the tier was reverted.
func (s *SubscriptionState) EndSubscription(subscriptionID string) bool {
	if subscriptionID == "" {
		return false
	}
	if !s.IsCanceled(subscriptionID) {
		s.CanceledSubscriptionIDs = append(slices.Clone(s.CanceledSubscriptionIDs), subscriptionID)
	}
	if s.SubscriptionID != subscriptionID {
		return false
	}
	s.Tier = TierFree
	s.SubscriptionID = ""
	return true
}
