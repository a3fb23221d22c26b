package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ikelabs/counts_backend/models"
)

func CreateCountSession(c *gin.Context) {
	var input models.NewCountSession
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := models.CreateCountSession(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, session)
}

func GetCountSession(c *gin.Context) {
	summary, err := models.GetCountSessionSummary(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func ListCountSessions(c *gin.Context) {
	storeId, err := strconv.Atoi(c.Query("store_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "store_id is required"})
		return
	}

	var status *models.SessionStatus
	if v := c.Query("status"); v != "" {
		s := models.SessionStatus(v)
		status = &s
	}

	sessions, err := models.ListCountSessions(c.Request.Context(), storeId, status)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sessions)
}

func transitionHandler(transition func(c *gin.Context) (*models.CountSession, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := transition(c)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, session)
	}
}

func StartCountSession() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context) (*models.CountSession, error) {
		return models.StartCountSession(c.Request.Context(), c.Param("sessionId"))
	})
}

func SubmitCountSession() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context) (*models.CountSession, error) {
		return models.SubmitCountSession(c.Request.Context(), c.Param("sessionId"))
	})
}

func ReconcileCountSession() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context) (*models.CountSession, error) {
		return models.ReconcileCountSession(c.Request.Context(), c.Param("sessionId"))
	})
}

func CloseCountSession() gin.HandlerFunc {
	return transitionHandler(func(c *gin.Context) (*models.CountSession, error) {
		return models.CloseCountSession(c.Request.Context(), c.Param("sessionId"))
	})
}

func DeleteCountSession(c *gin.Context) {
	session, err := models.DeleteCountSession(c.Request.Context(), c.Param("sessionId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

func GetSessionHistory(c *gin.Context) {
	histories, err := models.ListHistories(c.Request.Context(), c.Param("sessionId"), "CountSession")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, histories)
}
