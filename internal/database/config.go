package database

// Config holds configuration for the database connection.
type Config struct {
	// Driver selects the backend: memory, sqlite or mysql.
	Driver string `mapstructure:"driver" default:"sqlite" validate:"oneof=memory sqlite mysql"`
	// DSN is the SQLite data source (file path or file: URI).
	DSN string `mapstructure:"dsn" default:"data/rainfall.db"`
	// Host is the database host.
	Host string `mapstructure:"host" default:"localhost"`
	// Port is the database port.
	Port int `mapstructure:"port" default:"3306"`
	// User is the database user.
	User string `mapstructure:"user" default:"root"`
	// Password is the database password.
	Password string `mapstructure:"password" default:""`
	// Name is the database name.
	Name string `mapstructure:"name" default:"rainfall"`
	// TimeoutSeconds bounds connection setup and I/O.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
}
