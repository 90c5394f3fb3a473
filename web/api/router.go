package api

import (
	"net/http"

	"axiapac.com/timeclock/web/handlers"
	"axiapac.com/timeclock/web/middlewares"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, jwtSecret []byte) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	protected := r.Group("/")
	protected.Use(middlewares.Authentication(jwtSecret))
	{
		protected.POST("/time/:action", func(c *gin.Context) {
			handlers.SubmitPunchHandler(c, db)
		})

		protected.GET("/punches", func(c *gin.Context) {
			handlers.ListPunchesHandler(c, db)
		})

		protected.GET("/jobs", func(c *gin.Context) {
			handlers.ListJobsHandler(c, db)
		})
	}
}
