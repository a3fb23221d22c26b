package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/models"
)

func CreateProduct(c *gin.Context) {
	var input models.NewProduct
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	product, err := models.CreateProduct(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func ListProducts(c *gin.Context) {
	var category, name *string
	if v := c.Query("category"); v != "" {
		category = &v
	}
	if v := c.Query("name"); v != "" {
		name = &v
	}

	products, err := models.ListProducts(c.Request.Context(), category, name)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// LookupProduct resolves a scanned barcode the same way line recording does,
// so clients can preview the product before committing a count.
func LookupProduct(c *gin.Context) {
	product, err := models.FindProductByIdentifier(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}
