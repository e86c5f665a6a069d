package app

import iauth "github.com/carlfalc/offer-direct-stays/internal/auth"

// JWTServiceConfig converts AuthConfig into the parameters expected by the JWT service.
func (c AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	ttl := c.JWT.TTL
	if ttl <= 0 {
		ttl = iauth.DefaultAccessTokenTTL
	}

	return iauth.JWTConfig{
		Secret:         c.JWT.Secret,
		Issuer:         c.JWT.Issuer,
		AccessTokenTTL: ttl,
	}
}
