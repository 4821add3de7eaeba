// Package common contains shared constants, sentinel errors and the wire error
// type used by both the CRM client and the entity API server.
package common

// AuthorizationHeader carries "Bearer <access token>" on API requests.
const AuthorizationHeader = "Authorization"

// BearerPrefix precedes the access token in AuthorizationHeader.
const BearerPrefix = "Bearer "

// APIPrefix is the path prefix of every versioned API route.
const APIPrefix = "/api/v1"

// Default paging bounds shared by the store and the server.
const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)
