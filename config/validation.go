package config

import (
	"errors"
	"strings"

	"github.com/jasonsandlin/xbox-live-api-go/validation"
)

// Environment constants
const (
	EnvDevelopment = "development"
	EnvStaging     = "staging"
	EnvProduction  = "production"
)

// SandboxRetail is the production sandbox. Any other sandbox is a development sandbox.
const SandboxRetail = "RETAIL"

// Authorization header formats
const (
	AuthHeaderFormatXBL3 = "xbl3"
	AuthHeaderFormatBare = "bare"
)

// Validate checks cfg against its struct rules. The first failing field is
// reported as a *ConfigError.
func Validate(cfg *Config) error {
	err := validation.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var ve *validation.ValidationError
	if errors.As(err, &ve) && len(ve.Errors) > 0 {
		fe := ve.Errors[0]
		return NewValidationError(fe.Field, strings.TrimPrefix(fe.Message, fe.Field+" "))
	}
	return err
}

// IsDevSandbox reports whether the configured sandbox is not RETAIL.
func (c HTTPConfig) IsDevSandbox() bool {
	return c.Sandbox != "" && c.Sandbox != SandboxRetail
}
