// Package authenticator declares what the router needs from the session layer.
package authenticator

import "net/http"

type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	StartSession(response http.ResponseWriter, userID string) error
	EndSession(response http.ResponseWriter)
}
