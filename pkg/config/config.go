package config

import (
	"github.com/kelseyhightower/envconfig"
)

// App holds process-level settings. Database and logger settings keep their
// own env readers in pkg/database and pkg/utilities.
type App struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:"0.0.0.0:8431"`

	// JWT
	JWTSecret    string `envconfig:"JWT_SECRET" required:"true"`
	JWTExpireMin int    `envconfig:"JWT_EXPIRE_MIN" default:"60"`
}

func Load() (App, error) {
	var c App
	err := envconfig.Process("", &c)
	return c, err
}
