package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/models"
	"github.com/ikelabs/counts_backend/models/reports"
)

func varianceOptions(c *gin.Context) models.VarianceOptions {
	return models.VarianceOptions{
		NonZeroOnly:    c.Query("non_zero_only") == "true",
		PerPassWindows: c.Query("per_pass_windows") == "true",
	}
}

func GetSessionVariance(c *gin.Context) {
	report, err := models.GetSessionVarianceChecked(c.Request.Context(),
		c.Param("sessionId"), varianceOptions(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func ExportSessionVariance(c *gin.Context) {
	report, err := models.GetSessionVarianceChecked(c.Request.Context(),
		c.Param("sessionId"), varianceOptions(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=variance-%s.xlsx", report.SessionId))
	if err := reports.WriteVarianceExcel(report, c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write spreadsheet"})
	}
}
