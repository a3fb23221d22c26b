package covasync

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/utils"
)

func parseDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch utils.KindOf(err) {
	case utils.ErrorKindNotFound:
		status = http.StatusNotFound
	case utils.ErrorKindValidation:
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func TriggerSyncHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TriggerSyncRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
			return
		}

		from, err := parseDate(req.FromDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from_date must be YYYY-MM-DD"})
			return
		}
		to, err := parseDate(req.ToDate)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to_date must be YYYY-MM-DD"})
			return
		}

		stats, err := svc.SyncSalesToMovements(c.Request.Context(), req.StoreId, from, to, req.ForceResync)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

func SyncStatusHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		storeId, err := strconv.Atoi(c.Param("storeId"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid store id"})
			return
		}

		status, err := svc.GetSyncStatus(c.Request.Context(), storeId)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, status)
	}
}

// RegisterRoutes mounts the sync endpoints on an authenticated group.
func RegisterRoutes(group *gin.RouterGroup, svc *Service) {
	group.POST("/sync/sales", TriggerSyncHandler(svc))
	group.GET("/sync/status/:storeId", SyncStatusHandler(svc))
}
