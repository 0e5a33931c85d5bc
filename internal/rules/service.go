package rules

import (
	"context"
	"fmt"
	"net/url"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/message"
)

const basePath = "rulesservice/v1/"

// DeleteMode selects what DeleteRule removes besides the rule.
type DeleteMode int

const (
	// DeleteRuleOnly removes just the rule.
	DeleteRuleOnly DeleteMode = iota
	// ForceAll also removes every action of the rule and the destinations
	// of those actions.
	ForceAll
	// ForceOrphan would remove only actions no other rule uses. The rules
	// service does not support it yet.
	ForceOrphan
)

// Service talks to the rules service.
type Service struct {
	client   *cloud.Client
	messages *message.Service
}

// New creates a rules service. Destinations are managed through the message
// service on the same client.
func New(client *cloud.Client) *Service {
	return &Service{client: client, messages: message.New(client)}
}

// Messages returns the message service used for action destinations.
func (s *Service) Messages() *message.Service { return s.messages }

func (s *Service) url(path string) (string, error) {
	return s.client.URL(cloud.ServiceRules, basePath+path)
}

func requireUUID(uuid, what string) error {
	if uuid == "" {
		return cloud.InvalidArgument("%s uuid is required", what)
	}
	return nil
}

// Actions

// CreateAction adds an action.
func (s *Service) CreateAction(ctx context.Context, a *Action) (*Action, error) {
	if err := a.validate(); err != nil {
		return nil, err
	}
	u, err := s.url("actions.json")
	if err != nil {
		return nil, err
	}
	var resp actionWrapper
	if err := s.client.Post(ctx, u, actionWrapper{Action: a}, &resp); err != nil {
		return nil, fmt.Errorf("creating action %s: %w", a.Name, err)
	}
	if resp.Action == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no action"}
	}
	return resp.Action, nil
}

// FetchActions lists every action of the user.
func (s *Service) FetchActions(ctx context.Context) ([]Action, error) {
	u, err := s.url("actions.json")
	if err != nil {
		return nil, err
	}
	var resp actionsWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching actions: %w", err)
	}
	return resp.Actions, nil
}

// FetchAction returns one action.
func (s *Service) FetchAction(ctx context.Context, uuid string) (*Action, error) {
	if err := requireUUID(uuid, "action"); err != nil {
		return nil, err
	}
	u, err := s.url("actions/" + url.PathEscape(uuid) + ".json")
	if err != nil {
		return nil, err
	}
	var resp actionWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching action %s: %w", uuid, err)
	}
	if resp.Action == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no action"}
	}
	return resp.Action, nil
}

// DeleteAction removes an action.
func (s *Service) DeleteAction(ctx context.Context, uuid string) error {
	if err := requireUUID(uuid, "action"); err != nil {
		return err
	}
	u, err := s.url("actions/" + url.PathEscape(uuid) + ".json")
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting action %s: %w", uuid, err)
	}
	return nil
}

// UpdateAction replaces an action. The rules service cannot edit actions in
// place, so the old action is deleted and a copy without its uuid is
// created. The returned action has a new uuid.
func (s *Service) UpdateAction(ctx context.Context, a *Action) (*Action, error) {
	if a == nil || a.UUID == "" {
		return nil, cloud.InvalidArgument("action must be fetched from the rules service first")
	}
	if err := a.validate(); err != nil {
		return nil, err
	}
	replacement := &Action{
		Name:           a.Name,
		Type:           a.Type,
		Parameters:     a.Parameters,
		DestinationIDs: a.DestinationIDs,
	}
	var created *Action
	err := cloud.Chain(ctx,
		cloud.Step{Name: "delete action", Run: func(ctx context.Context) error {
			return s.DeleteAction(ctx, a.UUID)
		}},
		cloud.Step{Name: "create action", Run: func(ctx context.Context) (err error) {
			created, err = s.CreateAction(ctx, replacement)
			return err
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("updating action %s: %w", a.Name, err)
	}
	return created, nil
}

// Rules

// CreateRule adds a rule.
func (s *Service) CreateRule(ctx context.Context, r *Rule) (*Rule, error) {
	if r == nil || r.Name == "" || r.Expression == "" {
		return nil, cloud.InvalidArgument("rule needs a name and an expression")
	}
	u, err := s.url("rules.json")
	if err != nil {
		return nil, err
	}
	if r.ActionIDs == nil {
		r.ActionIDs = []string{}
	}
	return s.sendRule(ctx, s.client.Post, u, ruleWrapper{Rule: r}, "creating rule "+r.Name)
}

// FetchRules lists every rule of the user.
func (s *Service) FetchRules(ctx context.Context) ([]Rule, error) {
	return s.fetchRules(ctx, nil)
}

// FetchRulesForDevice lists the rules that reference a device.
func (s *Service) FetchRulesForDevice(ctx context.Context, dsn string) ([]Rule, error) {
	if dsn == "" {
		return nil, cloud.InvalidArgument("device DSN is required")
	}
	return s.fetchRules(ctx, url.Values{"type": {RuleTypeDevice}, "id": {dsn}})
}

// FetchRulesForUser lists the rules that reference a user.
func (s *Service) FetchRulesForUser(ctx context.Context, userUUID string) ([]Rule, error) {
	if userUUID == "" {
		return nil, cloud.InvalidArgument("user uuid is required")
	}
	return s.fetchRules(ctx, url.Values{"type": {RuleTypeUser}, "id": {userUUID}})
}

func (s *Service) fetchRules(ctx context.Context, q url.Values) ([]Rule, error) {
	u, err := s.url("rules.json")
	if err != nil {
		return nil, err
	}
	var resp rulesWrapper
	if err := s.client.Get(ctx, u, q, &resp); err != nil {
		return nil, fmt.Errorf("fetching rules: %w", err)
	}
	return resp.Rules, nil
}

// FetchRule returns one rule.
func (s *Service) FetchRule(ctx context.Context, uuid string) (*Rule, error) {
	if err := requireUUID(uuid, "rule"); err != nil {
		return nil, err
	}
	u, err := s.ruleURL(uuid)
	if err != nil {
		return nil, err
	}
	var resp ruleWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching rule %s: %w", uuid, err)
	}
	if resp.Rule == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no rule"}
	}
	return resp.Rule, nil
}

// FetchRuleActions lists the actions of a rule.
func (s *Service) FetchRuleActions(ctx context.Context, uuid string) ([]Action, error) {
	if err := requireUUID(uuid, "rule"); err != nil {
		return nil, err
	}
	u, err := s.url("rules/" + url.PathEscape(uuid) + "/actions.json")
	if err != nil {
		return nil, err
	}
	var resp actionsWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching actions of rule %s: %w", uuid, err)
	}
	return resp.Actions, nil
}

// UpdateRule replaces the attributes of a rule.
func (s *Service) UpdateRule(ctx context.Context, r *Rule) (*Rule, error) {
	if r == nil || r.UUID == "" {
		return nil, cloud.InvalidArgument("rule must be fetched from the rules service first")
	}
	u, err := s.ruleURL(r.UUID)
	if err != nil {
		return nil, err
	}
	body := map[string]*Rule{"attributes": r}
	return s.sendRule(ctx, s.client.Put, u, body, "updating rule "+r.Name)
}

// Enable turns a rule on.
func (s *Service) Enable(ctx context.Context, uuid string) (*Rule, error) {
	return s.setEnabled(ctx, uuid, true)
}

// Disable turns a rule off.
func (s *Service) Disable(ctx context.Context, uuid string) (*Rule, error) {
	return s.setEnabled(ctx, uuid, false)
}

func (s *Service) setEnabled(ctx context.Context, uuid string, enabled bool) (*Rule, error) {
	if err := requireUUID(uuid, "rule"); err != nil {
		return nil, err
	}
	u, err := s.ruleURL(uuid)
	if err != nil {
		return nil, err
	}
	body := map[string]map[string]bool{"attributes": {"is_enabled": enabled}}
	return s.sendRule(ctx, s.client.Put, u, body, "setting is_enabled on rule "+uuid)
}

// DeleteRule removes a rule. With ForceAll the actions of the rule and their
// destinations go first; a failure part way leaves the rule in place.
func (s *Service) DeleteRule(ctx context.Context, uuid string, mode DeleteMode) error {
	if err := requireUUID(uuid, "rule"); err != nil {
		return err
	}
	switch mode {
	case DeleteRuleOnly:
		return s.deleteRule(ctx, uuid)
	case ForceOrphan:
		return cloud.InvalidArgument("deleting orphaned actions is not supported")
	case ForceAll:
	default:
		return cloud.InvalidArgument("unknown delete mode %d", mode)
	}

	var actions []Action
	return cloud.Chain(ctx,
		cloud.Step{Name: "fetch rule actions", Run: func(ctx context.Context) (err error) {
			actions, err = s.FetchRuleActions(ctx, uuid)
			return err
		}},
		cloud.Step{Name: "delete rule actions", Run: func(ctx context.Context) error {
			_, err := cloud.Sequential(ctx, actions, func(ctx context.Context, a Action) (string, error) {
				if len(a.DestinationIDs) > 0 {
					if _, err := s.messages.DeleteAll(ctx, a.DestinationIDs); err != nil {
						return "", err
					}
				}
				return a.UUID, s.DeleteAction(ctx, a.UUID)
			})
			return err
		}},
		cloud.Step{Name: "delete rule", Run: func(ctx context.Context) error {
			return s.deleteRule(ctx, uuid)
		}},
	)
}

// DeleteRuleWithActions asks the rules service to remove a rule together
// with its actions in one call.
func (s *Service) DeleteRuleWithActions(ctx context.Context, uuid string) error {
	if err := requireUUID(uuid, "rule"); err != nil {
		return err
	}
	u, err := s.url("rule_actions/rules/" + url.PathEscape(uuid))
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting rule %s with actions: %w", uuid, err)
	}
	return nil
}

func (s *Service) deleteRule(ctx context.Context, uuid string) error {
	u, err := s.ruleURL(uuid)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting rule %s: %w", uuid, err)
	}
	return nil
}

func (s *Service) ruleURL(uuid string) (string, error) {
	return s.url("rules/" + url.PathEscape(uuid) + ".json")
}

func (s *Service) sendRule(ctx context.Context, call func(context.Context, string, any, any) error, u string, body any, what string) (*Rule, error) {
	var resp ruleWrapper
	if err := call(ctx, u, body, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if resp.Rule == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no rule"}
	}
	return resp.Rule, nil
}
