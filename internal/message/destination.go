package message

import (
	"strings"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Destination types.
const (
	TypeSMS   = "sms"
	TypeEmail = "email"
	TypePush  = "push"
)

// Providers.
const (
	ProviderTwilio  = "twilio"
	ProviderYunpian = "yunpian"
	ProviderSMTP    = "smtp"
	ProviderFCM     = "fcm"
	ProviderAPNS    = "apns"
	ProviderBaidu   = "baidu"
)

const chinaCountryCode = "86"

// Destination is where the message service delivers a rule action: a
// phone, a mailbox or a mobile push registration.
//
// The type-specific fields are only set for their type: CountryCode for
// SMS, UserName and UserMessage for email, AppID and Sound for push.
type Destination struct {
	UUID              string `json:"uuid,omitempty"`
	Provider          string `json:"provider,omitempty"`
	Type              string `json:"type"`
	DeliverTo         string `json:"deliver_to"`
	MessageTemplateID string `json:"message_template_id,omitempty"`
	Title             string `json:"title,omitempty"`
	Body              string `json:"body,omitempty"`
	CreatedBy         string `json:"created_by,omitempty"`
	CreatedAt         string `json:"created_at,omitempty"`
	UpdatedAt         string `json:"updated_at,omitempty"`
	MetaData          string `json:"meta_data,omitempty"`
	OemID             string `json:"oem_id,omitempty"`

	CountryCode string `json:"country_code,omitempty"`

	UserName    string `json:"user_name,omitempty"`
	UserMessage string `json:"user_message,omitempty"`

	AppID string `json:"app_id,omitempty"`
	Sound string `json:"sound,omitempty"`
}

// NewSMS creates an SMS destination. Numbers in China go through Yunpian,
// everything else through Twilio.
func NewSMS(phone, countryCode, title, body string) *Destination {
	provider := ProviderTwilio
	if strings.Contains(countryCode, chinaCountryCode) {
		provider = ProviderYunpian
	}
	return &Destination{
		Type:        TypeSMS,
		Provider:    provider,
		DeliverTo:   phone,
		CountryCode: countryCode,
		Title:       title,
		Body:        body,
	}
}

// NewEmail creates an SMTP email destination.
func NewEmail(address, title, body, userName, userMessage string) *Destination {
	return &Destination{
		Type:        TypeEmail,
		Provider:    ProviderSMTP,
		DeliverTo:   address,
		Title:       title,
		Body:        body,
		UserName:    userName,
		UserMessage: userMessage,
	}
}

// NewPush creates a push destination for a device token.
func NewPush(provider, appID, deviceToken, title, body, sound, metaData string) *Destination {
	return &Destination{
		Type:      TypePush,
		Provider:  provider,
		AppID:     appID,
		DeliverTo: deviceToken,
		Title:     title,
		Body:      body,
		Sound:     sound,
		MetaData:  metaData,
	}
}

// Validate checks the type, the target and the provider.
func (d *Destination) Validate() error {
	if d == nil {
		return cloud.InvalidArgument("destination is required")
	}
	if d.DeliverTo == "" {
		return cloud.InvalidArgument("destination needs deliver_to")
	}
	switch d.Type {
	case TypeSMS:
		if d.CountryCode == "" {
			return cloud.InvalidArgument("sms destination needs a country code")
		}
	case TypeEmail:
	case TypePush:
		switch d.Provider {
		case ProviderFCM, ProviderAPNS, ProviderBaidu:
		default:
			return cloud.InvalidArgument("push provider %q is not fcm, apns or baidu", d.Provider)
		}
	default:
		return cloud.InvalidArgument("unknown destination type %q", d.Type)
	}
	return nil
}

type destinationWrapper struct {
	Destination *Destination `json:"destination"`
}

type destinationsWrapper struct {
	Destinations []Destination `json:"destinations"`
}
