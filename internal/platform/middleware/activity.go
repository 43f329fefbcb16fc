// Copyright (c) 2026 Atheneo. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import "net/http"

// ActivityToucher receives qualifying-activity signals for an identity.
//
// Implemented by the session monitor. Touch must be cheap and non-blocking;
// the monitor throttles internally, so the middleware calls it unconditionally.
type ActivityToucher interface {
	Touch(identityID string)
}

// ActivityPulse feeds every authenticated request into the idle-session
// monitor as a qualifying activity event.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate]. Anonymous requests
// pass through untouched — there is no session to keep alive.
func ActivityPulse(toucher ActivityToucher) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if claims := GetUser(request.Context()); claims != nil {
				toucher.Touch(claims.UserID)
			}
			next.ServeHTTP(writer, request)
		})
	}
}
