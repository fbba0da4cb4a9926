// Package contextKey defines the keys under which request-scoped values are
// stored in a context.Context.
package contextKey

type key string

// UserKey holds the authenticated *models.User for the current request.
const UserKey = key("user")
