package cloud

import (
	"fmt"
	"strings"
)

// ServiceType selects the Ayla environment.
type ServiceType string

// ServiceLocation selects the Ayla region.
type ServiceLocation string

// CloudProvider selects the hosting provider behind the Ayla services.
type CloudProvider string

// Service names one Ayla cloud service.
type Service string

const (
	Development ServiceType = "Development"
	Field       ServiceType = "Field"
)

const (
	USA    ServiceLocation = "USA"
	China  ServiceLocation = "China"
	Europe ServiceLocation = "Europe"
)

const (
	AWS CloudProvider = "AWS"
	GCP CloudProvider = "GCP"
	VPC CloudProvider = "VPC"
)

const (
	ServiceDevice           Service = "Device"
	ServiceUser             Service = "User"
	ServiceDatastream       Service = "Datastream"
	ServiceMDSSSubscription Service = "mdssSubscription"
	ServiceLog              Service = "Log"
	ServiceMetrics          Service = "Metrics"
	ServiceRules            Service = "Rules"
	ServiceICC              Service = "ICC"
	ServiceMessage          Service = "Message"
	ServiceGSS              Service = "GSS"
)

// AllServices lists every service in a stable order.
var AllServices = []Service{
	ServiceDevice, ServiceUser, ServiceDatastream, ServiceMDSSSubscription, ServiceLog,
	ServiceMetrics, ServiceRules, ServiceICC, ServiceMessage, ServiceGSS,
}

// ParseServiceType parses a service type name, ignoring case.
func ParseServiceType(s string) (ServiceType, error) {
	for _, v := range []ServiceType{Development, Field} {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", InvalidArgument("unknown service type %q", s)
}

// ParseServiceLocation parses a service location name, ignoring case.
func ParseServiceLocation(s string) (ServiceLocation, error) {
	for _, v := range []ServiceLocation{USA, China, Europe} {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", InvalidArgument("unknown service location %q", s)
}

// ParseCloudProvider parses a cloud provider name, ignoring case.
func ParseCloudProvider(s string) (CloudProvider, error) {
	for _, v := range []CloudProvider{AWS, GCP, VPC} {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", InvalidArgument("unknown cloud provider %q", s)
}

// ParseService parses a service name, ignoring case.
func ParseService(s string) (Service, error) {
	for _, v := range AllServices {
		if strings.EqualFold(s, string(v)) {
			return v, nil
		}
	}
	return "", InvalidArgument("unknown service %q", s)
}

type serviceKey struct {
	provider CloudProvider
	location ServiceLocation
	typ      ServiceType
}

func (k serviceKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.provider, k.location, k.typ)
}

// hosts builds a full service map where every service lives at
// https://<name><suffix>/ with the service's default host prefix.
func hosts(suffix string, names map[Service]string) map[Service]string {
	m := make(map[Service]string, len(names))
	for svc, name := range names {
		if strings.HasPrefix(name, "https://") {
			m[svc] = name
			continue
		}
		m[svc] = "https://" + name + suffix + "/"
	}
	return m
}

var serviceURLs = map[serviceKey]map[Service]string{
	{AWS, USA, Development}: hosts(".aylanetworks.com", map[Service]string{
		ServiceDevice:           "ads-dev",
		ServiceUser:             "user-dev",
		ServiceDatastream:       "mstream-dev",
		ServiceMDSSSubscription: "mdss-dev",
		ServiceLog:              "log-dev",
		ServiceMetrics:          "metric-dev",
		ServiceRules:            "rulesservice-dev",
		ServiceICC:              "icc-dev",
		ServiceMessage:          "message-dev",
		ServiceGSS:              "gss-dev",
	}),
	{AWS, USA, Field}: hosts(".aylanetworks.com", map[Service]string{
		ServiceDevice:           "ads-field",
		ServiceUser:             "user-field",
		ServiceDatastream:       "mstream-field",
		ServiceMDSSSubscription: "mdss-field",
		ServiceLog:              "log-field",
		ServiceMetrics:          "metric-field",
		ServiceRules:            "rulesservice-field",
		ServiceICC:              "icc-field",
		ServiceMessage:          "message-field",
		ServiceGSS:              "https://groupscene-field.aylanetworks.com",
	}),
	{AWS, China, Development}: hosts(".ayla.com.cn", map[Service]string{
		ServiceDevice:           "ads-dev",
		ServiceUser:             "user-dev",
		ServiceDatastream:       "mstream-dev",
		ServiceMDSSSubscription: "mdss-dev",
		ServiceLog:              "log-dev",
		ServiceMetrics:          "metric-dev",
		ServiceRules:            "rulesservice-dev",
		ServiceICC:              "icc-dev",
		ServiceMessage:          "message-dev",
		ServiceGSS:              "groupscene-dev",
	}),
	{AWS, China, Field}: hosts(".ayla.com.cn", map[Service]string{
		ServiceDevice:           "ads-field",
		ServiceUser:             "user-field",
		ServiceDatastream:       "mstream-field",
		ServiceMDSSSubscription: "mdss-field",
		ServiceLog:              "log-field",
		ServiceMetrics:          "metric-field",
		ServiceRules:            "rulesservice-field",
		ServiceICC:              "icc-field",
		ServiceMessage:          "message-field",
		ServiceGSS:              "groupscene-field",
	}),
	{AWS, Europe, Development}: hosts(".aylanetworks.com", map[Service]string{
		ServiceDevice:           "ads-dev",
		ServiceUser:             "user-dev",
		ServiceDatastream:       "mstream-dev",
		ServiceMDSSSubscription: "mdss-dev",
		ServiceLog:              "log-dev-eu",
		ServiceMetrics:          "metric-dev-eu",
		ServiceRules:            "rulesservice-dev",
		ServiceICC:              "icc-dev",
		ServiceMessage:          "message-dev",
		ServiceGSS:              "gss-dev",
	}),
	{AWS, Europe, Field}: hosts(".aylanetworks.com", map[Service]string{
		ServiceDevice:           "ads-eu",
		ServiceUser:             "user-field-eu",
		ServiceDatastream:       "mstream-field-eu",
		ServiceMDSSSubscription: "mdss-field-eu",
		ServiceLog:              "log-field-eu",
		ServiceMetrics:          "metric-field-eu",
		ServiceRules:            "rulesservice-field-eu",
		ServiceICC:              "icc-field-eu",
		ServiceMessage:          "message-field-eu",
		ServiceGSS:              "groupscene-field-eu",
	}),
	{GCP, USA, Field}: hosts(".aylanetworks.com", map[Service]string{
		ServiceDevice:           "ads-field-rvnd",
		ServiceUser:             "user-field-rvnd",
		ServiceDatastream:       "stream-field-rvnd",
		ServiceMDSSSubscription: "mstream-field-rvnd",
		ServiceLog:              "log-field-rvnd",
		ServiceMetrics:          "log-field-rvnd",
		ServiceRules:            "rulesservice-field-rvnd",
		ServiceICC:              "icc-field-rvnd",
		ServiceMessage:          "message-field-rvnd",
		ServiceGSS:              "groupscene-field-rvnd",
	}),
}

// mappedKey returns the entry a combination without its own map falls back to.
// GCP development environments share the AWS hosts; GCP Europe development
// has no regional hosts and uses AWS USA.
func mappedKey(k serviceKey) serviceKey {
	if k.provider != GCP || k.typ != Development {
		return k
	}
	if k.location == Europe {
		return serviceKey{AWS, USA, Development}
	}
	return serviceKey{AWS, k.location, Development}
}

// BaseURL resolves the base URL of a service.
//
// Lookup order:
//  1. A per-service override from the settings
//  2. The exact provider/location/type entry
//  3. The entry the combination is mapped onto
//
// Returns an InvalidArgument error when nothing matches, which is the case
// for VPC and for GCP Europe or China field environments unless overridden.
func BaseURL(settings Settings, service Service) (string, error) {
	if u, ok := settings.Overrides[service]; ok && u != "" {
		return u, nil
	}

	key := serviceKey{settings.Provider, settings.Location, settings.Type}
	if m, ok := serviceURLs[key]; ok {
		if u, ok := m[service]; ok {
			return u, nil
		}
	}
	if m, ok := serviceURLs[mappedKey(key)]; ok {
		if u, ok := m[service]; ok {
			return u, nil
		}
	}
	return "", InvalidArgument("no %s service URL for %s", service, key)
}

// ServiceURL resolves a service base URL and appends path to it.
//
// Example:
//
//	cloud.ServiceURL(settings, cloud.ServiceUser, "users/sign_in.json")
//	// Returns: "https://user-dev.aylanetworks.com/users/sign_in.json"
func ServiceURL(settings Settings, service Service, path string) (string, error) {
	base, err := BaseURL(settings, service)
	if err != nil {
		return "", err
	}
	if path == "" {
		return base, nil
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	return base + strings.TrimPrefix(path, "/"), nil
}
