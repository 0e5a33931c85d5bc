// Package cloud is the request layer for the Ayla Networks cloud services.
//
// It resolves service base URLs for every provider, location and environment,
// sends authenticated JSON requests, maps failures onto a small set of error
// kinds, runs chained multi-step operations with cancellation, and moves
// files to and from pre-signed URLs with progress reporting.
//
// # Errors
//
// Every failure is an *Error. Check the kind with errors.Is:
//
//	if errors.Is(err, cloud.ErrAuth) {
//	    // sign in again
//	}
//
// 401 and 403 map to ErrAuth, other non-2xx statuses to ErrServer, bodies
// that do not decode to ErrJSON, deadlines to ErrTimeout, cancelled
// contexts to ErrCanceled and transport failures to ErrNetwork.
//
// # Usage
//
//	settings, err := cloud.SettingsFromConfig(cfg.Ayla)
//	if err != nil {
//	    return err
//	}
//	client := cloud.New(settings)
//	client.SetTokenSource(sessionManager)
//
//	u, _ := client.URL(cloud.ServiceDevice, "apiv1/devices.json")
//	var devices []device.Wrapper
//	err = client.Get(ctx, u, nil, &devices)
package cloud
