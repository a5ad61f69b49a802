package templates

import (
	"time"

	"github.com/a-h/templ"
)

//go:generate templ generate

type ExpiryWarningData struct {
	PlanName string
	Days     int
	Expiry   time.Time
	RenewURL string
}

type ExpiryOccurredData struct {
	PlanName     string
	FreePlanName string
	Expiry       time.Time
	RenewURL     string
}

type PaymentReceivedData struct {
	PlanName string
	OrderID  string
	Amount   int64 // minor units
	Currency string
	Expiry   time.Time
}

func pluralDays(n int) string {
	if n == 1 {
		return "day"
	}
	return "days"
}

// safeLink returns "" for an empty href or one templ refuses to sanitize.
func safeLink(href string) templ.SafeURL {
	if href == "" {
		return ""
	}
	link := templ.URL(href)
	if link == templ.FailedSanitizationURL {
		return ""
	}
	return link
}
