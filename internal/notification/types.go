package notification

import (
	"strconv"
	"strings"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/user"
)

// Device notification types.
const (
	OnConnect           = "on_connect"
	IPChange            = "ip_change"
	OnConnectionLost    = "on_connection_lost"
	OnConnectionRestore = "on_connection_restore"
)

// App types shared by notification apps and trigger apps.
const (
	AppSMS         = "sms"
	AppEmail       = "email"
	AppPushAndroid = "push_android"
	AppPushFCM     = "push_android_fcm"
	AppPushBaidu   = "push_baidu"
	AppPushIOS     = "push_ios"
	AppForward     = "forward"
)

// defaultCountryCode is sent when an SMS target has none.
const defaultCountryCode = "1"

// DeviceNotification fires its apps when the connection state or the IP
// address of a device changes.
type DeviceNotification struct {
	ID               int64  `json:"id,omitempty"`
	NotificationType string `json:"notification_type"`
	DeviceNickname   string `json:"device_nickname,omitempty"`
	// Threshold is the number of seconds a condition must hold before firing.
	Threshold int    `json:"threshold,omitempty"`
	URL       string `json:"url,omitempty"`
	Message   string `json:"message,omitempty"`
	Active    bool   `json:"active"`
}

// EmailTemplate selects an OEM email template for email apps.
type EmailTemplate struct {
	ID       string
	Subject  string
	BodyHTML string
}

// AppParameters carries the app-type specific settings of a NotificationApp.
type AppParameters struct {
	ContactID      string `json:"contact_id,omitempty"`
	Email          string `json:"email,omitempty"`
	EmailTemplate  string `json:"email_template_id,omitempty"`
	EmailSubject   string `json:"email_subject,omitempty"`
	EmailBodyHTML  string `json:"email_body_html,omitempty"`
	RegistrationID string `json:"registration_id,omitempty"`
	PushMetadata   string `json:"push_mdata,omitempty"`
	PushSound      string `json:"push_sound,omitempty"`
	CountryCode    string `json:"country_code,omitempty"`
	PhoneNumber    string `json:"phone_number,omitempty"`
	AppID          string `json:"app_id,omitempty"`
	ChannelID      string `json:"channel_id,omitempty"`
	Message        string `json:"message,omitempty"`
	Username       string `json:"username,omitempty"`
}

// NotificationApp delivers a device notification by SMS, email or push.
type NotificationApp struct {
	ID             int64         `json:"id,omitempty"`
	NotificationID int64         `json:"notification_id,omitempty"`
	AppType        string        `json:"app_type"`
	Nickname       string        `json:"nickname,omitempty"`
	Parameters     AppParameters `json:"notification_app_parameters"`
}

// SMSApp sends message to a phone number.
func SMSApp(countryCode, phone, username, message string) NotificationApp {
	return NotificationApp{AppType: AppSMS, Parameters: AppParameters{
		CountryCode: normalizeCountryCode(countryCode),
		PhoneNumber: phone,
		Username:    username,
		Message:     message,
	}}
}

// SMSAppForContact sends message to the phone of an address book contact.
func SMSAppForContact(c user.Contact, message string) NotificationApp {
	app := SMSApp(c.PhoneCountryCode, c.PhoneNumber, c.DisplayName, message)
	app.Parameters.ContactID = contactID(c)
	return app
}

// EmailApp sends message to an email address, optionally through an OEM
// template.
func EmailApp(email, username, message string, tmpl *EmailTemplate) NotificationApp {
	app := NotificationApp{AppType: AppEmail, Parameters: AppParameters{
		Email:    email,
		Username: username,
		Message:  message,
	}}
	if tmpl != nil {
		app.Parameters.EmailTemplate = tmpl.ID
		app.Parameters.EmailSubject = tmpl.Subject
		app.Parameters.EmailBodyHTML = tmpl.BodyHTML
	}
	return app
}

// EmailAppForContact sends message to the email of an address book contact.
func EmailAppForContact(c user.Contact, message string, tmpl *EmailTemplate) NotificationApp {
	app := EmailApp(c.Email, c.DisplayName, message, tmpl)
	app.Parameters.ContactID = contactID(c)
	return app
}

// PushApp sends a push message to a mobile registration. appType is one of
// AppPushAndroid, AppPushFCM or AppPushIOS; appID is only sent for FCM and
// iOS.
func PushApp(appType, appID, registrationID, message, sound, metadata string) NotificationApp {
	app := NotificationApp{AppType: appType, Parameters: AppParameters{
		RegistrationID: registrationID,
		Message:        message,
		PushSound:      sound,
		PushMetadata:   metadata,
	}}
	if appType != AppPushAndroid {
		app.Parameters.AppID = appID
	}
	return app
}

// BaiduPushApp sends a push message through Baidu.
func BaiduPushApp(appID, channelID, sound, metadata string) NotificationApp {
	return NotificationApp{AppType: AppPushBaidu, Parameters: AppParameters{
		AppID:        appID,
		ChannelID:    channelID,
		PushSound:    sound,
		PushMetadata: metadata,
	}}
}

func normalizeCountryCode(cc string) string {
	cc = strings.TrimLeft(strings.TrimPrefix(strings.TrimSpace(cc), "+"), "0")
	if cc == "" {
		return defaultCountryCode
	}
	return cc
}

func contactID(c user.Contact) string {
	if c.ID == 0 {
		return ""
	}
	return strconv.FormatInt(c.ID, 10)
}

type notificationWrapper struct {
	Notification *DeviceNotification `json:"notification"`
}

type appWrapper struct {
	App *NotificationApp `json:"notification_app"`
}
