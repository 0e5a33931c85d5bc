package schedule

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
)

// ErrNotFound is returned when no schedule has the requested name.
var ErrNotFound = errors.New("schedule: not found")

// Service wraps the schedule calls of the device service.
type Service struct {
	client *cloud.Client
}

// New creates a schedule service.
func New(client *cloud.Client) *Service {
	return &Service{client: client}
}

func (s *Service) url(format string, args ...any) (string, error) {
	return s.client.URL(cloud.ServiceDevice, fmt.Sprintf(format, args...))
}

func deviceKey(d *device.Device) (string, error) {
	if d == nil || d.Key == 0 {
		return "", cloud.InvalidArgument("device key is required")
	}
	return strconv.FormatInt(d.Key, 10), nil
}

func scheduleKey(sch *Schedule) (string, error) {
	if sch == nil || sch.Key == 0 {
		return "", cloud.InvalidArgument("schedule must be fetched from the service first")
	}
	return strconv.FormatInt(sch.Key, 10), nil
}

func actionKey(a *Action) (string, error) {
	if a == nil || a.Key == 0 {
		return "", cloud.InvalidArgument("schedule action must be fetched from the service first")
	}
	return strconv.FormatInt(a.Key, 10), nil
}

// FetchAll returns every schedule of a device.
func (s *Service) FetchAll(ctx context.Context, d *device.Device) ([]Schedule, error) {
	key, err := deviceKey(d)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/devices/%s/schedules.json", key)
	if err != nil {
		return nil, err
	}
	var resp []scheduleWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching schedules of %s: %w", d.DSN, err)
	}
	schedules := make([]Schedule, 0, len(resp))
	for _, w := range resp {
		if w.Schedule != nil {
			schedules = append(schedules, *w.Schedule)
		}
	}
	return schedules, nil
}

// FetchByName returns the device schedule called name.
func (s *Service) FetchByName(ctx context.Context, d *device.Device, name string) (*Schedule, error) {
	if name == "" {
		return nil, cloud.InvalidArgument("schedule name is required")
	}
	all, err := s.FetchAll(ctx, d)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].Name == name {
			return &all[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Create adds a schedule to a device.
func (s *Service) Create(ctx context.Context, d *device.Device, sch *Schedule) (*Schedule, error) {
	if err := Validate(sch); err != nil {
		return nil, err
	}
	key, err := deviceKey(d)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/devices/%s/schedules.json", key)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, s.client.Post, u, sch, "creating schedule "+sch.Name)
}

// Update replaces a schedule.
func (s *Service) Update(ctx context.Context, d *device.Device, sch *Schedule) (*Schedule, error) {
	skey, err := scheduleKey(sch)
	if err != nil {
		return nil, err
	}
	if err := Validate(sch); err != nil {
		return nil, err
	}
	key, err := deviceKey(d)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/devices/%s/schedules/%s.json", key, skey)
	if err != nil {
		return nil, err
	}
	return s.send(ctx, s.client.Put, u, sch, "updating schedule "+sch.Name)
}

func (s *Service) send(ctx context.Context, call func(context.Context, string, any, any) error, u string, sch *Schedule, what string) (*Schedule, error) {
	var resp scheduleWrapper
	if err := call(ctx, u, scheduleWrapper{Schedule: sch}, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	if resp.Schedule == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no schedule"}
	}
	return resp.Schedule, nil
}

// Enable activates a schedule. sch itself is not modified.
func (s *Service) Enable(ctx context.Context, d *device.Device, sch *Schedule) (*Schedule, error) {
	return s.setActive(ctx, d, sch, true)
}

// Disable deactivates a schedule. sch itself is not modified.
func (s *Service) Disable(ctx context.Context, d *device.Device, sch *Schedule) (*Schedule, error) {
	return s.setActive(ctx, d, sch, false)
}

func (s *Service) setActive(ctx context.Context, d *device.Device, sch *Schedule, active bool) (*Schedule, error) {
	if sch == nil {
		return nil, cloud.InvalidArgument("schedule is required")
	}
	cpy := sch.Clone()
	cpy.Active = active
	return s.Update(ctx, d, cpy)
}

// Delete removes a schedule.
func (s *Service) Delete(ctx context.Context, sch *Schedule) error {
	skey, err := scheduleKey(sch)
	if err != nil {
		return err
	}
	u, err := s.url("apiv1/schedules/%s.json", skey)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting schedule %s: %w", sch.Name, err)
	}
	return nil
}

// FetchActions returns the actions of a schedule.
func (s *Service) FetchActions(ctx context.Context, sch *Schedule) ([]Action, error) {
	skey, err := scheduleKey(sch)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/schedules/%s/schedule_actions.json", skey)
	if err != nil {
		return nil, err
	}
	var resp []actionWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching actions of schedule %s: %w", sch.Name, err)
	}
	actions := make([]Action, 0, len(resp))
	for _, w := range resp {
		if w.Action != nil {
			actions = append(actions, *w.Action)
		}
	}
	return actions, nil
}

// CreateAction adds an action to a schedule.
func (s *Service) CreateAction(ctx context.Context, sch *Schedule, a *Action) (*Action, error) {
	if err := ValidateAction(a); err != nil {
		return nil, err
	}
	skey, err := scheduleKey(sch)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/schedules/%s/schedule_actions.json", skey)
	if err != nil {
		return nil, err
	}
	var resp actionWrapper
	if err := s.client.Post(ctx, u, actionWrapper{Action: a}, &resp); err != nil {
		return nil, fmt.Errorf("creating schedule action %s: %w", a.Name, err)
	}
	if resp.Action == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no schedule_action"}
	}
	return resp.Action, nil
}

// UpdateAction replaces one action.
func (s *Service) UpdateAction(ctx context.Context, a *Action) (*Action, error) {
	if err := ValidateAction(a); err != nil {
		return nil, err
	}
	akey, err := actionKey(a)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/schedule_actions/%s.json", akey)
	if err != nil {
		return nil, err
	}
	var resp actionWrapper
	if err := s.client.Put(ctx, u, actionWrapper{Action: a}, &resp); err != nil {
		return nil, fmt.Errorf("updating schedule action %s: %w", a.Name, err)
	}
	if resp.Action == nil {
		return nil, &cloud.Error{Kind: cloud.KindJSON, Message: "response has no schedule_action"}
	}
	return resp.Action, nil
}

// UpdateActions updates several actions one after another.
//
// Every action is checked before the first request. On failure the
// actions updated so far are returned with an OperationIncomplete error; a
// cancelled context returns a Canceled error instead.
func (s *Service) UpdateActions(ctx context.Context, actions []Action) ([]Action, error) {
	if len(actions) == 0 {
		return nil, cloud.InvalidArgument("no schedule actions to update")
	}
	for i := range actions {
		if err := ValidateAction(&actions[i]); err != nil {
			return nil, err
		}
		if _, err := actionKey(&actions[i]); err != nil {
			return nil, err
		}
	}

	updated, err := cloud.Sequential(ctx, actions, func(ctx context.Context, a Action) (Action, error) {
		res, err := s.UpdateAction(ctx, &a)
		if err != nil {
			return Action{}, err
		}
		return *res, nil
	})
	return updated, incomplete(err, len(updated), len(actions), "updated")
}

// DeleteAction removes one action.
func (s *Service) DeleteAction(ctx context.Context, a *Action) error {
	akey, err := actionKey(a)
	if err != nil {
		return err
	}
	u, err := s.url("apiv1/schedule_actions/%s.json", akey)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting schedule action %s: %w", a.Name, err)
	}
	return nil
}

// DeleteAllActions removes every action of a schedule. A schedule without
// actions is not an error.
func (s *Service) DeleteAllActions(ctx context.Context, sch *Schedule) error {
	actions, err := s.FetchActions(ctx, sch)
	if err != nil {
		return err
	}
	deleted, err := cloud.Sequential(ctx, actions, func(ctx context.Context, a Action) (Action, error) {
		return a, s.DeleteAction(ctx, &a)
	})
	return incomplete(err, len(deleted), len(actions), "deleted")
}

// Clear removes every action of a schedule, resets its time window and
// recurrence, and deactivates it.
func (s *Service) Clear(ctx context.Context, d *device.Device, sch *Schedule) (*Schedule, error) {
	if _, err := scheduleKey(sch); err != nil {
		return nil, err
	}
	var cleared *Schedule
	err := cloud.Chain(ctx,
		cloud.Step{Name: "delete schedule actions", Run: func(ctx context.Context) error {
			return s.DeleteAllActions(ctx, sch)
		}},
		cloud.Step{Name: "reset schedule", Run: func(ctx context.Context) error {
			cpy := sch.Clone()
			cpy.reset()
			cpy.Active = false
			var err error
			cleared, err = s.Update(ctx, d, cpy)
			return err
		}},
	)
	if err != nil {
		return nil, fmt.Errorf("clearing schedule %s: %w", sch.Name, err)
	}
	return cleared, nil
}

func incomplete(err error, done, total int, verb string) error {
	if err == nil || cloud.KindOf(err) == cloud.KindCanceled {
		return err
	}
	return cloud.Incomplete(err, "%s %d of %d schedule actions", verb, done, total)
}
