package notification

import (
	"encoding/json"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Trigger types.
const (
	TriggerOnChange = "on_change"
	TriggerAbsolute = "compare_absolute"
	TriggerAlways   = "always"
)

var compareTypes = map[string]bool{"==": true, ">": true, "<": true, ">=": true, "<=": true}

// PropertyTrigger fires its apps when a property value meets a condition.
type PropertyTrigger struct {
	Key              int64  `json:"key,omitempty"`
	TriggerType      string `json:"trigger_type"`
	CompareType      string `json:"compare_type,omitempty"`
	Value            string `json:"value,omitempty"`
	PropertyNickname string `json:"property_nickname,omitempty"`
	DeviceNickname   string `json:"device_nickname,omitempty"`
	Active           bool   `json:"active"`
	Period           string `json:"period,omitempty"`
	BaseType         string `json:"base_type,omitempty"`
	RetrievedAt      string `json:"retrieved_at,omitempty"`
	TriggeredAt      string `json:"triggered_at,omitempty"`
}

// Validate checks the trigger type and, for absolute comparisons, the
// comparison operator and value.
func (t *PropertyTrigger) Validate() error {
	switch {
	case t == nil:
		return cloud.InvalidArgument("property trigger is required")
	case t.TriggerType == TriggerOnChange, t.TriggerType == TriggerAlways:
		return nil
	case t.TriggerType != TriggerAbsolute:
		return cloud.InvalidArgument("invalid trigger type %q", t.TriggerType)
	case !compareTypes[t.CompareType]:
		return cloud.InvalidArgument("invalid compare type %q", t.CompareType)
	case t.Value == "":
		return cloud.InvalidArgument("compare_absolute trigger needs a value")
	}
	return nil
}

// TriggerApp delivers a property trigger. Its three positional parameters
// mean different things per app name; use the constructors to fill them.
type TriggerApp struct {
	Key             int64  `json:"key,omitempty"`
	Name            string `json:"name"`
	Nickname        string `json:"nickname,omitempty"`
	Param1          string `json:"param1,omitempty"`
	Param2          string `json:"param2,omitempty"`
	Param3          string `json:"param3,omitempty"`
	EmailTemplateID string `json:"email_template_id,omitempty"`
	EmailSubject    string `json:"email_subject,omitempty"`
	EmailBodyHTML   string `json:"email_body_html,omitempty"`
}

// baiduMessage is the JSON carried in param3 of a Baidu trigger app.
type baiduMessage struct {
	Msg     string `json:"msg"`
	Sound   string `json:"sound,omitempty"`
	Data    string `json:"data,omitempty"`
	MsgType int    `json:"msgType"`
}

// SMSTrigger texts message to a phone number.
func SMSTrigger(countryCode, phone, message string) TriggerApp {
	return TriggerApp{Name: AppSMS, Param1: normalizeCountryCode(countryCode), Param2: phone, Param3: message}
}

// EmailTrigger mails message to an address, optionally through an OEM
// template.
func EmailTrigger(email, message string, tmpl *EmailTemplate) TriggerApp {
	app := TriggerApp{Name: AppEmail, Param1: email, Param3: message}
	if tmpl != nil {
		app.EmailTemplateID = tmpl.ID
		app.EmailSubject = tmpl.Subject
		app.EmailBodyHTML = tmpl.BodyHTML
	}
	return app
}

// PushTrigger sends a push message to a mobile registration. appType is
// AppPushAndroid, AppPushFCM or AppPushIOS.
func PushTrigger(appType, appID, registrationID, message string) TriggerApp {
	return TriggerApp{Name: appType, Param1: registrationID, Param2: appID, Param3: message}
}

// BaiduPushTrigger sends a push message through Baidu.
func BaiduPushTrigger(appID, channelID, message, sound, data string) (TriggerApp, error) {
	b, err := json.Marshal(baiduMessage{Msg: message, Sound: sound, Data: data})
	if err != nil {
		return TriggerApp{}, cloud.Internal("encoding baidu message: %v", err)
	}
	return TriggerApp{Name: AppPushBaidu, Param1: appID, Param2: channelID, Param3: string(b)}, nil
}

// Message returns the text the app delivers.
func (a *TriggerApp) Message() string {
	if a.Name != AppPushBaidu {
		return a.Param3
	}
	var m baiduMessage
	if err := json.Unmarshal([]byte(a.Param3), &m); err != nil {
		return a.Param3
	}
	return m.Msg
}

// Validate checks the parameters the app name requires.
func (a *TriggerApp) Validate() error {
	if a == nil {
		return cloud.InvalidArgument("trigger app is required")
	}
	switch a.Name {
	case AppSMS:
		if a.Param2 == "" {
			return cloud.InvalidArgument("sms trigger app needs a phone number")
		}
	case AppEmail:
		if a.Param1 == "" {
			return cloud.InvalidArgument("email trigger app needs an address")
		}
	case AppPushAndroid, AppPushFCM, AppPushIOS:
		if a.Param1 == "" {
			return cloud.InvalidArgument("push trigger app needs a registration id")
		}
	case AppPushBaidu:
		if a.Param2 == "" {
			return cloud.InvalidArgument("baidu trigger app needs a channel id")
		}
	case AppForward:
	default:
		return cloud.InvalidArgument("unknown trigger app %q", a.Name)
	}
	return nil
}

type triggerWrapper struct {
	Trigger *PropertyTrigger `json:"trigger"`
}

type triggerAppWrapper struct {
	App *TriggerApp `json:"trigger_app"`
}
