package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/models"
)

func storeIdParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("storeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
		return 0, false
	}
	return id, true
}

func CreateStore(c *gin.Context) {
	var input models.NewStore
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	store, err := models.CreateStore(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, store)
}

func ListStores(c *gin.Context) {
	stores, err := models.ListStores(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stores)
}

func GetStore(c *gin.Context) {
	id, ok := storeIdParam(c)
	if !ok {
		return
	}
	store, err := models.GetStore(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, store)
}

func CreateLocation(c *gin.Context) {
	storeId, ok := storeIdParam(c)
	if !ok {
		return
	}

	var input models.NewLocation
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	location, err := models.CreateLocation(c.Request.Context(), storeId, &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, location)
}

func ListLocations(c *gin.Context) {
	storeId, ok := storeIdParam(c)
	if !ok {
		return
	}
	includeInactive := c.Query("include_inactive") == "true"

	locations, err := models.ListLocations(c.Request.Context(), storeId, includeInactive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, locations)
}

func ToggleLocation(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("locationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location id"})
		return
	}
	isActive := c.Query("active") != "false"

	location, err := models.ToggleActiveLocation(c.Request.Context(), id, isActive)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, location)
}
