package rules

import (
	"encoding/json"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
)

// Action types.
const (
	ActionURL       = "URL"
	ActionSMS       = "SMS"
	ActionEmail     = "EMAIL"
	ActionDatapoint = "DATAPOINT"
	ActionAMSSMS    = "AMS_SMS"
	ActionAMSEmail  = "AMS_EMAIL"
	ActionAMSPush   = "AMS_PUSH"
)

var actionTypes = map[string]bool{
	ActionURL: true, ActionSMS: true, ActionEmail: true, ActionDatapoint: true,
	ActionAMSSMS: true, ActionAMSEmail: true, ActionAMSPush: true,
}

// Rule type filters for FetchRules.
const (
	RuleTypeDevice = "device"
	RuleTypeUser   = "user"
)

// Rule runs its actions whenever its expression becomes true.
type Rule struct {
	UUID        string   `json:"rule_uuid,omitempty"`
	Name        string   `json:"name"`
	Enabled     bool     `json:"is_enabled"`
	Description string   `json:"description,omitempty"`
	Expression  string   `json:"expression"`
	ActionIDs   []string `json:"action_ids"`
	CreatedAt   string   `json:"created_at,omitempty"`
	UpdatedAt   string   `json:"updated_at,omitempty"`
}

// Parameters is one of DatapointParameters, URLParameters, EmailParameters
// or EmptyParameters.
type Parameters interface {
	actionParameters()
}

// DatapointParameters sets a property: "DATAPOINT(dsn, prop) = value".
type DatapointParameters struct {
	Datapoint string `json:"datapoint"`
}

// URLParameters calls an HTTP endpoint.
type URLParameters struct {
	Scheme   string `json:"scheme,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	Endpoint string `json:"endpoint"`
	Body     string `json:"body,omitempty"`
}

// EmailParameters sends a plain email without a message destination.
type EmailParameters struct {
	EmailTo      []string `json:"email_to"`
	EmailSubject string   `json:"email_subject,omitempty"`
	EmailBody    string   `json:"email_body,omitempty"`
}

// EmptyParameters is used by destination based actions such as AMS_PUSH.
type EmptyParameters struct{}

func (DatapointParameters) actionParameters() {}
func (URLParameters) actionParameters()       {}
func (EmailParameters) actionParameters()     {}
func (EmptyParameters) actionParameters()     {}

// Action is what a rule does when it fires.
type Action struct {
	UUID           string
	Name           string
	Type           string
	Parameters     Parameters
	DestinationIDs []string
	RuleIDs        []string
	CreatedAt      string
	UpdatedAt      string
}

type actionJSON struct {
	UUID           string          `json:"action_uuid,omitempty"`
	Name           string          `json:"name"`
	Type           string          `json:"type"`
	Parameters     json.RawMessage `json:"parameters"`
	DestinationIDs []string        `json:"destination_ids,omitempty"`
	RuleIDs        []string        `json:"rule_ids,omitempty"`
	CreatedAt      string          `json:"created_at,omitempty"`
	UpdatedAt      string          `json:"updated_at,omitempty"`
}

// MarshalJSON encodes nil parameters as an empty object, which the rules
// service requires.
func (a Action) MarshalJSON() ([]byte, error) {
	var params Parameters = EmptyParameters{}
	if a.Parameters != nil {
		params = a.Parameters
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return nil, err
	}
	return json.Marshal(actionJSON{
		UUID:           a.UUID,
		Name:           a.Name,
		Type:           a.Type,
		Parameters:     raw,
		DestinationIDs: a.DestinationIDs,
		RuleIDs:        a.RuleIDs,
		CreatedAt:      a.CreatedAt,
		UpdatedAt:      a.UpdatedAt,
	})
}

// UnmarshalJSON picks the parameter type from the keys present.
func (a *Action) UnmarshalJSON(b []byte) error {
	var aj actionJSON
	if err := json.Unmarshal(b, &aj); err != nil {
		return err
	}
	params, err := decodeParameters(aj.Parameters)
	if err != nil {
		return err
	}
	*a = Action{
		UUID:           aj.UUID,
		Name:           aj.Name,
		Type:           aj.Type,
		Parameters:     params,
		DestinationIDs: aj.DestinationIDs,
		RuleIDs:        aj.RuleIDs,
		CreatedAt:      aj.CreatedAt,
		UpdatedAt:      aj.UpdatedAt,
	}
	return nil
}

func decodeParameters(raw json.RawMessage) (Parameters, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return EmptyParameters{}, nil
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return nil, err
	}
	var target Parameters
	switch {
	case keys["datapoint"] != nil:
		target = &DatapointParameters{}
	case keys["endpoint"] != nil:
		target = &URLParameters{}
	case keys["email_to"] != nil:
		target = &EmailParameters{}
	default:
		return EmptyParameters{}, nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, err
	}
	switch p := target.(type) {
	case *DatapointParameters:
		return *p, nil
	case *URLParameters:
		return *p, nil
	case *EmailParameters:
		return *p, nil
	}
	return EmptyParameters{}, nil
}

func (a *Action) validate() error {
	switch {
	case a == nil:
		return cloud.InvalidArgument("action is required")
	case a.Name == "":
		return cloud.InvalidArgument("action name is required")
	case !actionTypes[a.Type]:
		return cloud.InvalidArgument("invalid action type %q", a.Type)
	}
	return nil
}

type ruleWrapper struct {
	Rule *Rule `json:"rule"`
}

type rulesWrapper struct {
	Rules []Rule `json:"rules"`
}

type actionWrapper struct {
	Action *Action `json:"action"`
}

type actionsWrapper struct {
	Actions []Action `json:"actions"`
}
