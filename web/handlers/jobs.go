package handlers

import (
	"net/http"

	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/web/common"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func ListJobsHandler(c *gin.Context, db *gorm.DB) {
	var jobs []model.Job
	if err := db.Order("name ASC").Find(&jobs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}
	if jobs == nil {
		jobs = []model.Job{}
	}
	c.JSON(http.StatusOK, common.NewSuccessResponse(jobs))
}
