// Package clientip resolves the caller address of HTTP requests and restricts
// routes to known networks.
//
// The billing router uses it to tag logs with client_ip and to limit the
// payment webhook endpoint to the provider's published address ranges:
//
//	prefixes, err := clientip.ParsePrefixes(cfg.WebhookAllowedIPs)
//	r.Use(clientip.Middleware(cfg.TrustProxyHeaders))
//	r.With(clientip.Allowlist(prefixes, forbidden)).Post("/webhooks/payment", h)
//
// Proxy headers are only consulted when trustHeaders is set, since clients can
// forge them when the service is reachable directly.
package clientip
