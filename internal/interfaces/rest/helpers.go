package rest

import (
	"log"
	"net/http"

	"github.com/fluxcrm/backend/pkg/errors"
	"github.com/gin-gonic/gin"
)

// actorID resolves the acting user for audit columns. Authentication is out
// of scope here; callers identify themselves through a header and anything
// unattributed is recorded as "system".
func actorID(c *gin.Context) string {
	if actor := c.GetHeader("X-Actor-Id"); actor != "" {
		return actor
	}
	return "system"
}

// RespondAppError sends a standardised JSON error response using pkg/errors
func RespondAppError(c *gin.Context, err error) {
	status := errors.GetHTTPStatus(err)
	if status >= 500 {
		log.Printf("ERROR [%d] %s %s: %s", status, c.Request.Method, c.Request.URL.Path, err.Error())
	}

	body := gin.H{
		"message": err.Error(),
		"code":    errors.GetErrorCode(err),
	}
	if verrs, ok := err.(errors.ValidationErrors); ok {
		body["fields"] = verrs.Fields()
	}
	c.JSON(status, body)
}

// BindJSON binds JSON and returns true if successful. If failed, it sends
// a bad request error.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondAppError(c, errors.NewValidationError("body", err.Error()))
		return false
	}
	return true
}

// HandleGetEnvelope executes a read action and returns the result wrapped
// in a JSON key
func HandleGetEnvelope(c *gin.Context, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{key: result})
}

// HandleCreateEnvelope executes a create action and returns the result
// wrapped in a JSON key with a 201
func HandleCreateEnvelope(c *gin.Context, key string, action func() (interface{}, error)) {
	result, err := action()
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{key: result})
}

// HandleDeleteEnvelope executes a delete action and returns a success message
func HandleDeleteEnvelope(c *gin.Context, successMsg string, action func() error) {
	if err := action(); err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": successMsg})
}
