// Package handlers defines the HTTP-layer error codes used across all API
// endpoints.
//
// These symbolic constants are the stable, machine-readable taxonomy that
// clients branch on; the accompanying message is for humans. Codes are
// lowercase snake_case. Generic codes mirror common HTTP status semantics;
// the payment-specific ones exist because a status alone cannot tell a
// declined card apart from an unfinished checkout.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "payment_declined",
//	  "message": "Your card has insufficient funds."
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Payment flow:

	// ErrCodePaymentDeclined: the provider rejected the payment method; the
	// message carries the provider's own explanation verbatim.
	ErrCodePaymentDeclined = "payment_declined"
	// ErrCodePaymentRequired: a download or purchase record was requested
	// for a transaction that has not succeeded.
	ErrCodePaymentRequired = "payment_required"
	// ErrCodeProviderNotConfigured: checkout attempted without payment
	// provider credentials in place.
	ErrCodeProviderNotConfigured = "provider_not_configured"
	// ErrCodeUpstreamUnavailable: every configured catalog source or the
	// payment provider failed to answer.
	ErrCodeUpstreamUnavailable = "upstream_unavailable"

	// Admin CRUD:
	ErrCodeCreateFailed = "create_failed"
	ErrCodeListFailed   = "list_failed"
)
