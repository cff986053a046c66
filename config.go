package auth

import "time"

// Cfg is a plain-struct Config implementation for embedding applications
// that do not carry their own configuration layer.
type Cfg struct {
	SigningKey           string        `json:"signing_key" koanf:"signing_key"`
	SigningMethod        string        `json:"signing_method" koanf:"signing_method"`
	ContextKey           string        `json:"context_key" koanf:"context_key"`
	TokenExpiration      int           `json:"token_expiration" koanf:"token_expiration"`
	Issuer               string        `json:"issuer" koanf:"issuer"`
	Audience             []string      `json:"audience" koanf:"audience"`
	RejectedRouteKey     string        `json:"rejected_route_key" koanf:"rejected_route_key"`
	RejectedRouteDefault string        `json:"rejected_route_default" koanf:"rejected_route_default"`
	BootTimeout          time.Duration `json:"boot_timeout" koanf:"boot_timeout"`
}

func (c Cfg) GetSigningKey() string    { return c.SigningKey }
func (c Cfg) GetSigningMethod() string { return c.SigningMethod }

func (c Cfg) GetContextKey() string {
	if c.ContextKey == "" {
		return "user"
	}
	return c.ContextKey
}

func (c Cfg) GetTokenExpiration() int { return c.TokenExpiration }
func (c Cfg) GetIssuer() string       { return c.Issuer }
func (c Cfg) GetAudience() []string   { return c.Audience }

func (c Cfg) GetRejectedRouteKey() string {
	if c.RejectedRouteKey == "" {
		return "rejected_route"
	}
	return c.RejectedRouteKey
}

func (c Cfg) GetRejectedRouteDefault() string {
	if c.RejectedRouteDefault == "" {
		return "/"
	}
	return c.RejectedRouteDefault
}

func (c Cfg) GetBootTimeout() time.Duration {
	if c.BootTimeout <= 0 {
		return DefaultBootTimeout
	}
	return c.BootTimeout
}

var _ Config = Cfg{}
