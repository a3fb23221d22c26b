package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/models"
)

func OpenCountPass(c *gin.Context) {
	var input models.NewCountPass
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pass, err := models.OpenCountPass(c.Request.Context(), c.Param("sessionId"), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, pass)
}

func ListCountPasses(c *gin.Context) {
	passes, err := models.ListCountPasses(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, passes)
}

func SubmitCountPass(c *gin.Context) {
	pass, err := models.SubmitCountPass(c.Request.Context(), c.Param("passId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pass)
}

func VoidCountPass(c *gin.Context) {
	pass, err := models.VoidCountPass(c.Request.Context(), c.Param("passId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pass)
}
