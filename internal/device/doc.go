// Package device wraps the Ayla device service: devices, their properties
// and the datapoints that carry property values.
//
// # Architecture
//
//	┌─────────────────────────────────────────────────────────────────────────┐
//	│                            device package                                │
//	│                                                                          │
//	│  ┌──────────────────┐    ┌──────────────────┐    ┌──────────────────┐   │
//	│  │     Manager      │    │     Registry     │    │   CacheStore     │   │
//	│  │   (manager.go)   │    │  (registry.go)   │───▶│    (store.go)    │   │
//	│  │                  │    │                  │    │                  │   │
//	│  │ • devices/props  │    │ • in-memory view │    │ • SDK cache      │   │
//	│  │ • datapoints     │    │ • PropertyChange │    │ • offline seed   │   │
//	│  │ • admin, blobs   │    │ • thread safety  │    │                  │   │
//	│  └──────────────────┘    └──────────────────┘    └──────────────────┘   │
//	│           │                                                              │
//	└───────────│──────────────────────────────────────────────────────────────┘
//	            ▼
//	┌──────────────────────┐
//	│  Ayla device service │
//	│  apiv1/devices.json  │
//	│  apiv1/dsns/{dsn}/…  │
//	└──────────────────────┘
//
// # Key Types
//
//   - Device: A device bound to the account, addressed by DSN
//   - Property: A named value with a base type and a direction
//   - Datapoint: One recorded property value; blob datapoints carry files
//   - PropertyChange: What the Registry reports when a value moves
//
// # Usage
//
//	mgr := device.NewManager(client)
//	devices, err := mgr.FetchDevices(ctx)
//	if err != nil {
//	    return err
//	}
//
//	reg := device.NewRegistry(device.NewCacheStore(sdkCache))
//	if err := reg.ReplaceDevices(ctx, devices); err != nil {
//	    log.Warn("saving devices", "error", err)
//	}
//
//	prop, _ := reg.GetProperty("AC000W000000001", "Blue_LED")
//	dp, err := mgr.CreateDatapoint(ctx, "AC000W000000001", prop, true, nil)
//
// # Thread Safety
//
// Manager and Registry are safe for concurrent use. The Registry hands out
// deep copies and replaces entries atomically on update.
package device
