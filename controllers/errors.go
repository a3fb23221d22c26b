package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/utils"
)

// writeError maps domain error kinds to HTTP statuses. Scope mismatches are
// 409 so scanner clients can show the expected/actual pair instead of a
// generic failure toast.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch utils.KindOf(err) {
	case utils.ErrorKindNotFound:
		status = http.StatusNotFound
	case utils.ErrorKindInvalidState:
		status = http.StatusUnprocessableEntity
	case utils.ErrorKindScopeMismatch, utils.ErrorKindConflict:
		status = http.StatusConflict
	case utils.ErrorKindValidation:
		status = http.StatusBadRequest
	}

	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		c.JSON(status, gin.H{"error": appErr})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
