// ABOUTME: Provider settings: the single configuration document
// ABOUTME: Saves shallow-merge supplied fields and record who configured them

package store

import (
	"context"
	"fmt"
	"time"
)

const redactedValue = "********"

// Settings holds WhatsApp Business credentials and webhook configuration.
// JSON names match the dashboard's configuration form.
type Settings struct {
	AppID             string     `json:"app_id,omitempty"`
	AppSecret         string     `json:"app_password,omitempty"`
	PhoneNumberID     string     `json:"whatsapp_id,omitempty"`
	BusinessAccountID string     `json:"whatsapp_business_id,omitempty"`
	WebhookURL        string     `json:"webhook_url,omitempty"`
	WebhookToken      string     `json:"webhook_token,omitempty"`
	VerifyToken       string     `json:"verify_token,omitempty"`
	ConfiguredBy      string     `json:"configured_by,omitempty"`
	WebhookVerified   bool       `json:"webhook_verified,omitempty"`
	WebhookVerifiedAt *time.Time `json:"webhook_verified_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// SettingsPatch carries the fields supplied on a save. Nil fields keep
// their stored value.
type SettingsPatch struct {
	AppID             *string `json:"app_id"`
	AppSecret         *string `json:"app_password"`
	PhoneNumberID     *string `json:"whatsapp_id"`
	BusinessAccountID *string `json:"whatsapp_business_id"`
	WebhookURL        *string `json:"webhook_url"`
	WebhookToken      *string `json:"webhook_token"`
	VerifyToken       *string `json:"verify_token"`
}

// Redacted returns a copy safe to send to the browser.
func (st Settings) Redacted() Settings {
	if st.AppSecret != "" {
		st.AppSecret = redactedValue
	}
	if st.WebhookToken != "" {
		st.WebhookToken = redactedValue
	}
	return st
}

// CanSend reports whether outbound sends are configured.
func (st Settings) CanSend() bool {
	return st.AppID != "" && st.AppSecret != "" && st.PhoneNumberID != ""
}

// CanReadProfile reports whether the business profile can be fetched.
func (st Settings) CanReadProfile() bool {
	return st.AppID != "" && st.AppSecret != "" && st.BusinessAccountID != ""
}

// ReadConfig returns the stored settings, or zero Settings if none.
func (s *Store) ReadConfig(ctx context.Context) Settings {
	return load(ctx, s, CollectionConfiguration, Settings{})
}

// SaveConfig merges patch into the stored settings, records configuredBy
// and refreshes UpdatedAt.
func (s *Store) SaveConfig(ctx context.Context, patch SettingsPatch, configuredBy string) (Settings, error) {
	var saved Settings
	err := update(ctx, s, CollectionConfiguration, Settings{}, func(st Settings) (Settings, error) {
		patch.applyTo(&st)
		if configuredBy != "" {
			st.ConfiguredBy = configuredBy
		}
		now := s.now().UTC()
		st.UpdatedAt = &now
		saved = st
		return st, nil
	})
	if err != nil {
		return Settings{}, fmt.Errorf("saving configuration: %w", err)
	}

	s.logger.Info("configuration saved", "configured_by", configuredBy)
	return saved, nil
}

// MarkWebhookVerified records a successful webhook verification.
func (s *Store) MarkWebhookVerified(ctx context.Context) error {
	err := update(ctx, s, CollectionConfiguration, Settings{}, func(st Settings) (Settings, error) {
		now := s.now().UTC()
		st.WebhookVerified = true
		st.WebhookVerifiedAt = &now
		st.UpdatedAt = &now
		return st, nil
	})
	if err != nil {
		return fmt.Errorf("marking webhook verified: %w", err)
	}
	return nil
}

func (p SettingsPatch) applyTo(st *Settings) {
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = *v
		}
	}
	set(&st.AppID, p.AppID)
	set(&st.AppSecret, p.AppSecret)
	set(&st.PhoneNumberID, p.PhoneNumberID)
	set(&st.BusinessAccountID, p.BusinessAccountID)
	set(&st.WebhookURL, p.WebhookURL)
	set(&st.WebhookToken, p.WebhookToken)
	set(&st.VerifyToken, p.VerifyToken)
}
