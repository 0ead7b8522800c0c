package config

import (
	"fmt"
	"strings"
)

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetAppURL() string
	GetEnv() string
	GetLogLevel() string
	IsDevelopment() bool
}

type EnvVars struct {
	Port     string `env:"PORT" envDefault:"3100"`
	AppName  string `env:"APP_NAME" envDefault:"LINE Login"`
	AppURL   string `env:"APP_URL" envDefault:"http://localhost:3100"`
	Env      string `env:"ENV" envDefault:"DEV"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	if strings.HasPrefix(e.Port, ":") {
		return e.Port
	}
	return fmt.Sprintf(":%s", e.Port)
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

// GetAppURL returns the public base URL of the application (e.g., "https://login.example.com")
func (e EnvVars) GetAppURL() string {
	return strings.TrimSuffix(e.AppURL, "/")
}

func (e EnvVars) GetEnv() string {
	if e.Env == "" {
		return EnvDevelopment
	}
	return e.Env
}

func (e EnvVars) GetLogLevel() string {
	return e.LogLevel
}

func (e EnvVars) IsDevelopment() bool {
	return e.GetEnv() == EnvDevelopment
}
