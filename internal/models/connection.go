package models

// ConnectionConfig represents a PostgreSQL connection configuration.
// A non-empty DSN takes precedence over the individual fields.
type ConnectionConfig struct {
	Name     string `yaml:"name" mapstructure:"name"`
	DSN      string `yaml:"dsn" mapstructure:"dsn"`
	Host     string `yaml:"host" mapstructure:"host"`
	Port     int    `yaml:"port" mapstructure:"port"`
	Database string `yaml:"database" mapstructure:"database"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	SSLMode  string `yaml:"ssl_mode" mapstructure:"ssl_mode"`
}
