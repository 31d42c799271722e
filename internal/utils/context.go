// Package utils provides shared utility functions and constants
package utils

// ContextKeySession is the key used to store the visitor session in the echo context
const ContextKeySession = "session"

// SessionCookieName is the name of the cookie carrying the session id
const SessionCookieName = "gallery_sid"

// AdminTokenCookieName is the name of the cookie carrying the admin bearer token
const AdminTokenCookieName = "admin_jwt"
