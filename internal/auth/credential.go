// Package auth computes the Authorization header sent with every request.
package auth

import (
	"encoding/base64"
)

// Credential is the value of the Authorization header. It is computed once
// when the client is built and never changes afterwards.
type Credential string

// None sends no Authorization header.
const None Credential = ""

// Basic returns the HTTP Basic credential of login:password. An empty login
// yields None.
func Basic(login, password string) Credential {
	if login == "" {
		return None
	}

	return Credential("Basic " + base64.StdEncoding.EncodeToString([]byte(login+":"+password)))
}

// Valid reports whether the credential carries a header value.
func (c Credential) Valid() bool {
	return c != None
}

// Header returns the Authorization header value.
func (c Credential) Header() string {
	return string(c)
}

// Redacted returns the scheme followed by a mask, for logs.
func (c Credential) Redacted() string {
	if !c.Valid() {
		return ""
	}

	return "Basic ***"
}
