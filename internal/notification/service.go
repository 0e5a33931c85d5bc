package notification

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/cloud"
	"github.com/yuvaraj-ayla/Etisalat-sub001/internal/device"
)

// Service manages device notifications, property triggers and their apps
// on the device service.
type Service struct {
	client *cloud.Client
}

// New creates a notification service.
func New(client *cloud.Client) *Service {
	return &Service{client: client}
}

func (s *Service) url(format string, args ...any) (string, error) {
	return s.client.URL(cloud.ServiceDevice, fmt.Sprintf(format, args...))
}

func key(id int64, what string) (string, error) {
	if id == 0 {
		return "", cloud.InvalidArgument("%s must be fetched from the service first", what)
	}
	return strconv.FormatInt(id, 10), nil
}

func missing(what string) error {
	return &cloud.Error{Kind: cloud.KindJSON, Message: "response has no " + what}
}

// Device notifications

// CreateNotification adds a notification to a device.
func (s *Service) CreateNotification(ctx context.Context, d *device.Device, n *DeviceNotification) (*DeviceNotification, error) {
	if n == nil || n.NotificationType == "" {
		return nil, cloud.InvalidArgument("notification type is required")
	}
	dk, err := deviceKey(d)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/devices/%s/notifications.json", dk)
	if err != nil {
		return nil, err
	}
	var resp notificationWrapper
	if err := s.client.Post(ctx, u, notificationWrapper{Notification: n}, &resp); err != nil {
		return nil, fmt.Errorf("creating %s notification: %w", n.NotificationType, err)
	}
	if resp.Notification == nil {
		return nil, missing("notification")
	}
	return resp.Notification, nil
}

// FetchNotifications lists the notifications of a device.
func (s *Service) FetchNotifications(ctx context.Context, d *device.Device) ([]DeviceNotification, error) {
	dk, err := deviceKey(d)
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/devices/%s/notifications.json", dk)
	if err != nil {
		return nil, err
	}
	var resp []notificationWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching notifications of %s: %w", d.DSN, err)
	}
	out := make([]DeviceNotification, 0, len(resp))
	for _, w := range resp {
		if w.Notification != nil {
			out = append(out, *w.Notification)
		}
	}
	return out, nil
}

// UpdateNotification replaces a notification.
func (s *Service) UpdateNotification(ctx context.Context, n *DeviceNotification) (*DeviceNotification, error) {
	if n == nil {
		return nil, cloud.InvalidArgument("notification is required")
	}
	id, err := key(n.ID, "notification")
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/notifications/%s.json", id)
	if err != nil {
		return nil, err
	}
	var resp notificationWrapper
	if err := s.client.Put(ctx, u, notificationWrapper{Notification: n}, &resp); err != nil {
		return nil, fmt.Errorf("updating notification %s: %w", id, err)
	}
	if resp.Notification == nil {
		return nil, missing("notification")
	}
	return resp.Notification, nil
}

// DeleteNotification removes a notification together with its apps.
func (s *Service) DeleteNotification(ctx context.Context, n *DeviceNotification) error {
	if n == nil {
		return cloud.InvalidArgument("notification is required")
	}
	id, err := key(n.ID, "notification")
	if err != nil {
		return err
	}
	u, err := s.url("apiv1/notifications/%s.json", id)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting notification %s: %w", id, err)
	}
	return nil
}

// Notification apps

// CreateNotificationApp adds an app to a notification.
func (s *Service) CreateNotificationApp(ctx context.Context, n *DeviceNotification, app *NotificationApp) (*NotificationApp, error) {
	if err := validateApp(app); err != nil {
		return nil, err
	}
	if n == nil {
		return nil, cloud.InvalidArgument("notification is required")
	}
	id, err := key(n.ID, "notification")
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/notifications/%s/notification_apps.json", id)
	if err != nil {
		return nil, err
	}
	var resp appWrapper
	if err := s.client.Post(ctx, u, appWrapper{App: app}, &resp); err != nil {
		return nil, fmt.Errorf("creating %s app on notification %s: %w", app.AppType, id, err)
	}
	if resp.App == nil {
		return nil, missing("notification_app")
	}
	return resp.App, nil
}

// FetchNotificationApps lists the apps of a notification.
func (s *Service) FetchNotificationApps(ctx context.Context, n *DeviceNotification) ([]NotificationApp, error) {
	if n == nil {
		return nil, cloud.InvalidArgument("notification is required")
	}
	id, err := key(n.ID, "notification")
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/notifications/%s/notification_apps.json", id)
	if err != nil {
		return nil, err
	}
	var resp []appWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching apps of notification %s: %w", id, err)
	}
	out := make([]NotificationApp, 0, len(resp))
	for _, w := range resp {
		if w.App != nil {
			out = append(out, *w.App)
		}
	}
	return out, nil
}

// UpdateNotificationApp replaces an app. NotificationID and ID must both be
// set.
func (s *Service) UpdateNotificationApp(ctx context.Context, app *NotificationApp) (*NotificationApp, error) {
	if err := validateApp(app); err != nil {
		return nil, err
	}
	u, err := s.appURL(app)
	if err != nil {
		return nil, err
	}
	var resp appWrapper
	if err := s.client.Put(ctx, u, appWrapper{App: app}, &resp); err != nil {
		return nil, fmt.Errorf("updating notification app %d: %w", app.ID, err)
	}
	if resp.App == nil {
		return nil, missing("notification_app")
	}
	return resp.App, nil
}

// DeleteNotificationApp removes an app.
func (s *Service) DeleteNotificationApp(ctx context.Context, app *NotificationApp) error {
	if app == nil {
		return cloud.InvalidArgument("notification app is required")
	}
	u, err := s.appURL(app)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting notification app %d: %w", app.ID, err)
	}
	return nil
}

func (s *Service) appURL(app *NotificationApp) (string, error) {
	nid, err := key(app.NotificationID, "notification")
	if err != nil {
		return "", err
	}
	id, err := key(app.ID, "notification app")
	if err != nil {
		return "", err
	}
	return s.url("apiv1/notifications/%s/notification_apps/%s.json", nid, id)
}

func validateApp(app *NotificationApp) error {
	if app == nil {
		return cloud.InvalidArgument("notification app is required")
	}
	p := app.Parameters
	switch app.AppType {
	case AppSMS:
		if p.PhoneNumber == "" {
			return cloud.InvalidArgument("sms app needs a phone number")
		}
	case AppEmail:
		if p.Email == "" && p.ContactID == "" {
			return cloud.InvalidArgument("email app needs an address or a contact")
		}
	case AppPushAndroid, AppPushFCM, AppPushIOS:
		if p.RegistrationID == "" {
			return cloud.InvalidArgument("push app needs a registration id")
		}
	case AppPushBaidu:
		if p.ChannelID == "" {
			return cloud.InvalidArgument("baidu app needs a channel id")
		}
	case AppForward:
	default:
		return cloud.InvalidArgument("unknown app type %q", app.AppType)
	}
	return nil
}

// Property triggers

// CreateTrigger adds a trigger to a device property.
func (s *Service) CreateTrigger(ctx context.Context, dsn, property string, t *PropertyTrigger) (*PropertyTrigger, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	u, err := s.triggersURL(dsn, property)
	if err != nil {
		return nil, err
	}
	var resp triggerWrapper
	if err := s.client.Post(ctx, u, triggerWrapper{Trigger: t}, &resp); err != nil {
		return nil, fmt.Errorf("creating trigger on %s/%s: %w", dsn, property, err)
	}
	if resp.Trigger == nil {
		return nil, missing("trigger")
	}
	return resp.Trigger, nil
}

// FetchTriggers lists the triggers of a device property.
func (s *Service) FetchTriggers(ctx context.Context, dsn, property string) ([]PropertyTrigger, error) {
	u, err := s.triggersURL(dsn, property)
	if err != nil {
		return nil, err
	}
	var resp []triggerWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching triggers of %s/%s: %w", dsn, property, err)
	}
	out := make([]PropertyTrigger, 0, len(resp))
	for _, w := range resp {
		if w.Trigger != nil {
			out = append(out, *w.Trigger)
		}
	}
	return out, nil
}

// UpdateTrigger replaces a trigger.
func (s *Service) UpdateTrigger(ctx context.Context, t *PropertyTrigger) (*PropertyTrigger, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	k, err := key(t.Key, "trigger")
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/triggers/%s.json", k)
	if err != nil {
		return nil, err
	}
	var resp triggerWrapper
	if err := s.client.Put(ctx, u, triggerWrapper{Trigger: t}, &resp); err != nil {
		return nil, fmt.Errorf("updating trigger %s: %w", k, err)
	}
	if resp.Trigger == nil {
		return nil, missing("trigger")
	}
	return resp.Trigger, nil
}

// DeleteTrigger removes a trigger together with its apps.
func (s *Service) DeleteTrigger(ctx context.Context, t *PropertyTrigger) error {
	if t == nil {
		return cloud.InvalidArgument("property trigger is required")
	}
	k, err := key(t.Key, "trigger")
	if err != nil {
		return err
	}
	u, err := s.url("apiv1/triggers/%s.json", k)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting trigger %s: %w", k, err)
	}
	return nil
}

func (s *Service) triggersURL(dsn, property string) (string, error) {
	if err := device.ValidateDSN(dsn); err != nil {
		return "", err
	}
	if property == "" {
		return "", cloud.InvalidArgument("property name is required")
	}
	return s.url("apiv1/dsns/%s/properties/%s/triggers.json", url.PathEscape(dsn), url.PathEscape(property))
}

// Trigger apps

// CreateTriggerApp adds an app to a trigger.
func (s *Service) CreateTriggerApp(ctx context.Context, t *PropertyTrigger, app *TriggerApp) (*TriggerApp, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}
	if t == nil {
		return nil, cloud.InvalidArgument("property trigger is required")
	}
	k, err := key(t.Key, "trigger")
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/triggers/%s/trigger_apps.json", k)
	if err != nil {
		return nil, err
	}
	var resp triggerAppWrapper
	if err := s.client.Post(ctx, u, triggerAppWrapper{App: app}, &resp); err != nil {
		return nil, fmt.Errorf("creating %s app on trigger %s: %w", app.Name, k, err)
	}
	if resp.App == nil {
		return nil, missing("trigger_app")
	}
	return resp.App, nil
}

// FetchTriggerApps lists the apps of a trigger.
func (s *Service) FetchTriggerApps(ctx context.Context, t *PropertyTrigger) ([]TriggerApp, error) {
	if t == nil {
		return nil, cloud.InvalidArgument("property trigger is required")
	}
	k, err := key(t.Key, "trigger")
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/triggers/%s/trigger_apps.json", k)
	if err != nil {
		return nil, err
	}
	var resp []triggerAppWrapper
	if err := s.client.Get(ctx, u, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching apps of trigger %s: %w", k, err)
	}
	out := make([]TriggerApp, 0, len(resp))
	for _, w := range resp {
		if w.App != nil {
			out = append(out, *w.App)
		}
	}
	return out, nil
}

// UpdateTriggerApp replaces a trigger app.
func (s *Service) UpdateTriggerApp(ctx context.Context, app *TriggerApp) (*TriggerApp, error) {
	if err := app.Validate(); err != nil {
		return nil, err
	}
	k, err := key(app.Key, "trigger app")
	if err != nil {
		return nil, err
	}
	u, err := s.url("apiv1/trigger_apps/%s.json", k)
	if err != nil {
		return nil, err
	}
	var resp triggerAppWrapper
	if err := s.client.Put(ctx, u, triggerAppWrapper{App: app}, &resp); err != nil {
		return nil, fmt.Errorf("updating trigger app %s: %w", k, err)
	}
	if resp.App == nil {
		return nil, missing("trigger_app")
	}
	return resp.App, nil
}

// DeleteTriggerApp removes a trigger app.
func (s *Service) DeleteTriggerApp(ctx context.Context, app *TriggerApp) error {
	if app == nil {
		return cloud.InvalidArgument("trigger app is required")
	}
	k, err := key(app.Key, "trigger app")
	if err != nil {
		return err
	}
	u, err := s.url("apiv1/trigger_apps/%s.json", k)
	if err != nil {
		return err
	}
	if err := s.client.Delete(ctx, u, nil); err != nil {
		return fmt.Errorf("deleting trigger app %s: %w", k, err)
	}
	return nil
}

func deviceKey(d *device.Device) (string, error) {
	if d == nil || d.Key == 0 {
		return "", cloud.InvalidArgument("device key is required")
	}
	return strconv.FormatInt(d.Key, 10), nil
}
