package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			LogLevel:       "info",
			DefinitionsDir: "~/.msgkit/messages",
		},
		Defaults: DefaultsConfig{
			Priority: "default",
		},
		Outbox: OutboxConfig{
			Enabled:              true,
			DBPath:               "~/.msgkit/outbox.db",
			RelayBatch:           100,
			RelayIntervalSeconds: 5,
		},
		Broker: BrokerConfig{
			Exchange:              "messaging",
			RoutingKey:            "multichannel.request",
			PublishTimeoutSeconds: 5,
		},
		API: APIConfig{
			Enabled:      false,
			Host:         "127.0.0.1",
			Port:         8080,
			MaxBodyBytes: 1 << 20,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Path:    "/metrics",
		},
	}
}
