package util

import (
	"regexp"
)

var (
	deviceIDRegex         = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)
	paymentReferenceRegex = regexp.MustCompile(`^pi_[A-Za-z0-9]{1,255}$`)
	currencyRegex         = regexp.MustCompile(`^[a-z]{3}$`)
)

func IsValidDeviceID(s string) bool {
	return deviceIDRegex.MatchString(s)
}

// IsValidPaymentReference accepts Stripe PaymentIntent ids.
func IsValidPaymentReference(s string) bool {
	return paymentReferenceRegex.MatchString(s)
}

// IsValidCurrency accepts lowercase ISO 4217 codes.
func IsValidCurrency(s string) bool {
	return currencyRegex.MatchString(s)
}
