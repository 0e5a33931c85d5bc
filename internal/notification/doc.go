// Package notification manages device notifications, property triggers and
// the apps that deliver them.
//
// A device notification fires on connection or IP changes of a device. A
// property trigger fires when a property value changes or crosses a
// threshold. Both deliver through apps: SMS, email or a push service.
//
//	DeviceNotification ──► NotificationApp (sms | email | push_*)
//	PropertyTrigger    ──► TriggerApp      (sms | email | push_*)
package notification
