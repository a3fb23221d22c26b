package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/models"
)

func lineIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("lineId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid line id"})
		return 0, false
	}
	return id, true
}

func RecordCountLine(c *gin.Context) {
	var input models.NewCountLine
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := models.RecordCountLine(c.Request.Context(), c.Param("passId"), &input)
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Incremented {
		status = http.StatusOK
	}
	c.JSON(status, result)
}

func ListCountLines(c *gin.Context) {
	lines, err := models.ListCountLines(c.Request.Context(), c.Param("passId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, lines)
}

func CorrectCountLine(c *gin.Context) {
	id, ok := lineIdParam(c)
	if !ok {
		return
	}

	var input models.CorrectCountLine
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	line, err := models.UpdateCountLine(c.Request.Context(), id, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}

func DeleteCountLine(c *gin.Context) {
	id, ok := lineIdParam(c)
	if !ok {
		return
	}

	line, err := models.DeleteCountLine(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, line)
}
