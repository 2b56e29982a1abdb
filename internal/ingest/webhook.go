// ABOUTME: Wire types for WhatsApp Business webhook deliveries
// ABOUTME: Batches nest entries, changes and messages as delivered by the Graph API

package ingest

// ObjectBusinessAccount is the only batch object the pipeline accepts.
const ObjectBusinessAccount = "whatsapp_business_account"

// fieldMessages is the change field carrying inbound messages. Status
// callbacks arrive under other fields and are ignored.
const fieldMessages = "messages"

// WebhookBatch is one POST /webhook body.
type WebhookBatch struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID      string   `json:"id"`
	Changes []Change `json:"changes"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	MessagingProduct string            `json:"messaging_product"`
	Metadata         Metadata          `json:"metadata"`
	Contacts         []ProviderContact `json:"contacts,omitempty"`
	Messages         []ProviderMessage `json:"messages,omitempty"`
}

type Metadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

// ProviderContact is the sender profile delivered alongside messages.
type ProviderContact struct {
	WaID    string `json:"wa_id"`
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
}

// ProviderMessage is one inbound message as the provider sends it.
// Timestamp is epoch seconds as a string.
type ProviderMessage struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Text      *TextBody `json:"text,omitempty"`
}

type TextBody struct {
	Body string `json:"body"`
}

// profileName returns the profile name the provider sent for phone.
func (v ChangeValue) profileName(phone string) string {
	for _, c := range v.Contacts {
		if c.WaID == phone {
			return c.Profile.Name
		}
	}
	return ""
}
