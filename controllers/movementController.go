package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/models"
)

func CreateMovement(c *gin.Context) {
	var input models.NewMovement
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	movement, err := models.CreateMovement(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movement)
}

func ListMovements(c *gin.Context) {
	storeId, err := strconv.Atoi(c.Query("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}

	var sku *string
	if v := c.Query("sku"); v != "" {
		sku = &v
	}

	var from, to *time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		from = &t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		end := t.AddDate(0, 0, 1).Add(-time.Second)
		to = &end
	}

	movements, err := models.ListMovements(c.Request.Context(), storeId, sku, from, to)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, movements)
}
