package config

import "time"

const (
	// DefaultInfraComponent is the storage component every other component depends on.
	DefaultInfraComponent = "cass"

	// DefaultHealthInterval is the pause between two health probes.
	DefaultHealthInterval = 5 * time.Second

	// DefaultInfraAttempts is the probe budget of the infra component.
	DefaultInfraAttempts = 9

	// DefaultComponentAttempts is the probe budget of ordinary components.
	DefaultComponentAttempts = 4

	// DefaultNotificationPort is the port result notifications are sent to on the origin.
	DefaultNotificationPort = 8080

	// DefaultNotificationPath is the path result notifications are sent to.
	DefaultNotificationPath = "/results"
)

// DefaultComponents is the built-in port table.
func DefaultComponents() []ComponentConfig {
	return []ComponentConfig{
		{Name: "order-verifier", Port: 1000},
		{Name: "delivery-assigner", Port: 3000},
		{Name: "cass", Port: 9042, Image: "trishaire/cass"},
		{Name: "stock-analyzer", Port: 4000},
		{Name: "restocker", Port: 5000},
		{Name: "order-processor", Port: 6000},
	}
}

// GetDefaultConfig returns the default configuration.
func GetDefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Runtime: RuntimeConfig{
			Type:        RuntimeTypeSwarm,
			Network:     "myNet",
			Namespace:   "default",
			ImagePrefix: "trishaire/",
			ImageTag:    "latest",
		},
		Health: HealthConfig{
			Interval:          DefaultHealthInterval,
			InfraAttempts:     DefaultInfraAttempts,
			ComponentAttempts: DefaultComponentAttempts,
			RequestTimeout:    3 * time.Second,
		},
		Notifications: NotificationConfig{
			Port:    DefaultNotificationPort,
			Path:    DefaultNotificationPath,
			Timeout: 5 * time.Second,
		},
		InfraComponent: DefaultInfraComponent,
		Components:     DefaultComponents(),
	}
}
