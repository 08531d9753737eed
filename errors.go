package main

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// apiError carries an HTTP status alongside a client-safe message. Handlers
// and middleware record one on the gin context and abort; errorHandler turns
// the last recorded error into the JSON envelope.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func newAPIError(status int, message string) *apiError {
	return &apiError{status: status, message: message}
}

// abortWithAPIError records err on the context and stops the handler chain.
// The response itself is written by errorHandler once the chain unwinds.
func abortWithAPIError(c *gin.Context, status int, message string) {
	_ = c.Error(newAPIError(status, message))
	c.Abort()
}

// errorHandler is the terminal error layer: any error recorded on the context
// becomes a JSON {"error": message} body. Errors without a status are logged
// and masked as a generic 500.
func (a *App) errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		var ae *apiError
		if errors.As(err, &ae) {
			c.JSON(ae.status, gin.H{"error": ae.message})
			return
		}
		a.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error occurred"})
	}
}

// failInternal logs err and responds with the generic 500 envelope.
func (a *App) failInternal(c *gin.Context, err error) {
	a.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
	abortWithAPIError(c, http.StatusInternalServerError, "internal error occurred")
}
