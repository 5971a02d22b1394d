package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/disaster_backend/models"
	"github.com/mmdatafocus/disaster_backend/utils"
	"github.com/mmdatafocus/disaster_backend/workflow"
)

// respondError maps error kinds to status codes. Unknown errors become 500 with a generic
// message and are attached to the context for ErrorLogger.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := "Server error"

	switch {
	case errors.Is(err, workflow.ErrValidation):
		status, msg = http.StatusBadRequest, workflow.Message(err)
	case errors.Is(err, workflow.ErrForbidden):
		status, msg = http.StatusForbidden, workflow.Message(err)
	case errors.Is(err, workflow.ErrNotFound), errors.Is(err, utils.ErrorRecordNotFound):
		status, msg = http.StatusNotFound, "Not found"
		if errors.Is(err, workflow.ErrNotFound) {
			msg = workflow.Message(err)
		}
	case errors.Is(err, workflow.ErrInvalidTransition):
		status, msg = http.StatusConflict, workflow.Message(err)
	case errors.Is(err, workflow.ErrConflict):
		status, msg = http.StatusConflict, workflow.Message(err)
	case errors.Is(err, utils.ErrorDuplicateEmail):
		status, msg = http.StatusConflict, "User already exists"
	case errors.Is(err, utils.ErrorUnauthorized):
		status, msg = http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, workflow.ErrTransient):
		status, msg = http.StatusServiceUnavailable, workflow.Message(err)
	}
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}

func pathId(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		badRequest(c, "invalid id")
		return 0, false
	}
	return id, true
}

// actorFrom builds the workflow actor from the token claims in the request context.
func actorFrom(c *gin.Context) workflow.Actor {
	ctx := c.Request.Context()
	id, _ := utils.GetUserIdFromContext(ctx)
	name, _ := utils.GetUserNameFromContext(ctx)
	raw, _ := utils.GetUserRoleFromContext(ctx)
	return workflow.Actor{ID: id, Name: name, Role: models.UserRole(raw)}
}
