// Package authapi is a stateless client for the GoTrue auth service's HTTP
// endpoints.
//
// Each method maps one endpoint to typed request and response values. Nothing
// is cached or persisted here; session ownership lives in package session and
// the public flows in package gotrue.
//
// Non-2xx responses are returned as *APIError:
//
//	var apiErr *authapi.APIError
//	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
//		// invalid credentials
//	}
package authapi
