// Package config handles loading and validating the Ayla SDK configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with AYLA_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - The app secret and account password should be set via environment variables
//   - The config file should have restricted permissions (0600)
//
// Usage:
//
//	cfg, err := config.Load("configs/ayla.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Ayla.ServiceType)
package config
