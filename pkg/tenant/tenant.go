// Package tenant describes the businesses the receptionist answers calls for
package tenant

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
)

// ErrNotFound is returned when a tenant cannot be resolved, or is inactive
var ErrNotFound = errors.New("tenant not found")

// weekdays is the order business hours are rendered in
var weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Hours is the opening window for a single day, in the tenant's local "15:04" notation
type Hours struct {
	Open   string `json:"open" yaml:"open"`
	Close  string `json:"close" yaml:"close"`
	Closed bool   `json:"closed,omitempty" yaml:"closed,omitempty"`
}

// Profile is a read-only snapshot of a tenant used for the duration of a call
type Profile struct {
	ID           string           `json:"id" yaml:"id"`
	BusinessName string           `json:"business_name" yaml:"business_name"`
	PhoneNumber  string           `json:"phone_number" yaml:"phone_number"`
	Industry     string           `json:"industry,omitempty" yaml:"industry,omitempty"`
	Services     string           `json:"services,omitempty" yaml:"services,omitempty"`
	FAQ          string           `json:"faq,omitempty" yaml:"faq,omitempty"`
	Hours        map[string]Hours `json:"business_hours,omitempty" yaml:"business_hours,omitempty"`
	WebhookURL   string           `json:"webhook_url,omitempty" yaml:"webhook_url,omitempty"`
	VoiceID      string           `json:"voice_id,omitempty" yaml:"voice_id,omitempty"`
	Active       bool             `json:"active" yaml:"active"`
}

// Directory resolves tenant profiles
type Directory interface {
	// Get returns the profile for a tenant identifier
	Get(ctx context.Context, tenantID string) (*Profile, error)

	// GetByPhone returns the profile owning an inbound phone number
	GetByPhone(ctx context.Context, phoneNumber string) (*Profile, error)
}

// HasWebhook reports whether bookings can be forwarded for this tenant
func (p *Profile) HasWebhook() bool {
	return strings.TrimSpace(p.WebhookURL) != ""
}

// HoursDays returns the days present in Hours, weekdays first in calendar order and any
// other keys after them in lexical order
func (p *Profile) HoursDays() []string {
	days := make([]string, 0, len(p.Hours))
	var extra []string

	for _, day := range weekdays {
		if _, ok := p.Hours[day]; ok {
			days = append(days, day)
		}
	}
	for day := range p.Hours {
		if !slices.Contains(weekdays, day) {
			extra = append(extra, day)
		}
	}
	sort.Strings(extra)

	return append(days, extra...)
}

// Clone returns a deep copy so callers cannot mutate directory state
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}

	out := *p
	if p.Hours != nil {
		out.Hours = make(map[string]Hours, len(p.Hours))
		for k, v := range p.Hours {
			out.Hours[k] = v
		}
	}
	return &out
}
