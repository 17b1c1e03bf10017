package middleware

import "github.com/gin-gonic/gin"

// callerKey is the key used to store the authenticated caller's subject in
// the Gin context. Using a custom type prevents collisions.
const callerKey = contextKey("caller")

// GetCallerFromContext retrieves the authenticated caller subject (operator
// id or collaborator service name) from the Gin context. It returns the
// subject and a boolean indicating if it was found.
func GetCallerFromContext(c *gin.Context) (string, bool) {
	callerVal, exists := c.Get(string(callerKey))
	if !exists {
		// check in the request context as well
		ctxVal := c.Request.Context().Value(callerKey)
		if ctxVal != nil {
			return ctxVal.(string), true
		}
		return "", false
	}

	caller, ok := callerVal.(string)
	if !ok {
		// This should not happen if the auth middleware sets it correctly
		return "", false
	}

	return caller, true
}
