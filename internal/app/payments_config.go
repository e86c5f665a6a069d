package app

import "github.com/carlfalc/offer-direct-stays/internal/payments"

// CheckoutClientConfig converts PaymentsConfig into the payments client representation.
func (c PaymentsConfig) CheckoutClientConfig() payments.ClientConfig {
	return payments.ClientConfig{
		BaseURL: c.BaseURL,
		APIKey:  c.APIKey,
		Timeout: c.Timeout,
	}
}
