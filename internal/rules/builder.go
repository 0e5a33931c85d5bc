package rules

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/message"
)

const randomNameLen = 16

// randomName returns a 16 character hex name for unnamed actions.
func randomName() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:randomNameLen]
}

// ActionBuilder assembles an action and the message destinations it
// delivers to.
type ActionBuilder struct {
	svc          *Service
	name         string
	typ          string
	params       Parameters
	destinations []*message.Destination
	ruleIDs      []string
}

// NewAction starts an action builder.
func (s *Service) NewAction() *ActionBuilder {
	return &ActionBuilder{svc: s}
}

// Name sets the action name.
func (b *ActionBuilder) Name(name string) *ActionBuilder {
	b.name = name
	return b
}

// Type sets the action type. It is required.
func (b *ActionBuilder) Type(typ string) *ActionBuilder {
	b.typ = typ
	return b
}

// Parameters sets the action parameters.
func (b *ActionBuilder) Parameters(p Parameters) *ActionBuilder {
	b.params = p
	return b
}

// AddDestination adds a destination. Destinations without a uuid are
// created by Create.
func (b *ActionBuilder) AddDestination(d ...*message.Destination) *ActionBuilder {
	b.destinations = append(b.destinations, d...)
	return b
}

// AddDestinationID adds destinations that already exist.
func (b *ActionBuilder) AddDestinationID(ids ...string) *ActionBuilder {
	for _, id := range ids {
		if id != "" {
			b.destinations = append(b.destinations, &message.Destination{UUID: id})
		}
	}
	return b
}

// AddRuleID links the action to existing rules.
func (b *ActionBuilder) AddRuleID(ids ...string) *ActionBuilder {
	for _, id := range ids {
		if id != "" {
			b.ruleIDs = append(b.ruleIDs, id)
		}
	}
	return b
}

// Build returns the action as it would be sent, referencing only
// destinations that already have a uuid.
func (b *ActionBuilder) Build() Action {
	a := Action{Name: b.name, Type: b.typ, Parameters: b.params, RuleIDs: b.ruleIDs}
	if a.Parameters == nil {
		a.Parameters = EmptyParameters{}
	}
	for _, d := range b.destinations {
		if d.UUID != "" {
			a.DestinationIDs = append(a.DestinationIDs, d.UUID)
		}
	}
	return a
}

// Create creates the missing destinations one by one and then the action.
// A cancelled context stops the chain between steps.
func (b *ActionBuilder) Create(ctx context.Context) (*Action, error) {
	if b.svc == nil {
		return nil, cloud.Precondition("action builder has no rules service")
	}
	if b.typ == "" {
		return nil, cloud.Precondition("action type is required")
	}

	var pending []*message.Destination
	for _, d := range b.destinations {
		if d.UUID == "" {
			pending = append(pending, d)
		}
	}

	var created *Action
	err := cloud.Chain(ctx,
		cloud.Step{Name: "create destinations", Run: func(ctx context.Context) error {
			if len(pending) == 0 {
				return nil
			}
			made, err := b.svc.messages.CreateAll(ctx, pending)
			for i, d := range made {
				pending[i].UUID = d.UUID
			}
			return err
		}},
		cloud.Step{Name: "create action", Run: func(ctx context.Context) (err error) {
			a := b.Build()
			created, err = b.svc.CreateAction(ctx, &a)
			return err
		}},
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}

// RuleBuilder assembles a rule and the actions it runs.
type RuleBuilder struct {
	svc         *Service
	name        string
	description string
	enabled     bool
	expression  Expression
	actions     []Action
}

// NewRule starts an enabled rule builder.
func (s *Service) NewRule() *RuleBuilder {
	return &RuleBuilder{svc: s, enabled: true}
}

// Name sets the rule name. It is required.
func (b *RuleBuilder) Name(name string) *RuleBuilder {
	b.name = name
	return b
}

// Description sets the rule description.
func (b *RuleBuilder) Description(d string) *RuleBuilder {
	b.description = d
	return b
}

// Enabled sets whether the rule starts enabled.
func (b *RuleBuilder) Enabled(enabled bool) *RuleBuilder {
	b.enabled = enabled
	return b
}

// Expression sets the rule condition. It is required.
func (b *RuleBuilder) Expression(e Expression) *RuleBuilder {
	b.expression = e
	return b
}

// AddAction adds actions. Actions without a uuid are created by Create;
// unnamed ones get a random name.
func (b *RuleBuilder) AddAction(a ...Action) *RuleBuilder {
	b.actions = append(b.actions, a...)
	return b
}

// Build returns the rule as it would be sent, referencing only actions that
// already have a uuid.
func (b *RuleBuilder) Build() Rule {
	r := Rule{Name: b.name, Description: b.description, Enabled: b.enabled, ActionIDs: []string{}}
	if b.expression != nil {
		r.Expression = b.expression.String()
	}
	for _, a := range b.actions {
		if a.UUID != "" {
			r.ActionIDs = append(r.ActionIDs, a.UUID)
		}
	}
	return r
}

// Create creates the missing actions one by one and then the rule. A
// cancelled context stops the chain between steps; actions created before
// a failure are not removed.
func (b *RuleBuilder) Create(ctx context.Context) (*Rule, error) {
	if b.svc == nil {
		return nil, cloud.Precondition("rule builder has no rules service")
	}
	if b.name == "" {
		return nil, cloud.Precondition("rule name is required")
	}
	if b.expression == nil {
		return nil, cloud.Precondition("rule expression is required")
	}

	var pending []int
	for i := range b.actions {
		if b.actions[i].UUID == "" {
			if b.actions[i].Name == "" {
				b.actions[i].Name = randomName()
			}
			pending = append(pending, i)
		}
	}

	var created *Rule
	err := cloud.Chain(ctx,
		cloud.Step{Name: "create actions", Run: func(ctx context.Context) error {
			_, err := cloud.Sequential(ctx, pending, func(ctx context.Context, i int) (string, error) {
				a := b.actions[i]
				res, err := b.svc.NewAction().
					Name(a.Name).
					Type(a.Type).
					Parameters(a.Parameters).
					AddDestinationID(a.DestinationIDs...).
					AddRuleID(a.RuleIDs...).
					Create(ctx)
				if err != nil {
					return "", err
				}
				b.actions[i] = *res
				return res.UUID, nil
			})
			return err
		}},
		cloud.Step{Name: "create rule", Run: func(ctx context.Context) (err error) {
			r := b.Build()
			created, err = b.svc.CreateRule(ctx, &r)
			return err
		}},
	)
	if err != nil {
		return nil, err
	}
	return created, nil
}
