package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apicommon "axiapac.com/timeclock/backend/v1/common"
	"axiapac.com/timeclock/model"
	"axiapac.com/timeclock/utils"
	"axiapac.com/timeclock/web/common"
	"axiapac.com/timeclock/web/middlewares"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SubmitPunchHandler stores a punch posted to /time/:action. Re-deliveries of
// the same event_uuid overwrite the stored copy and are reported as duplicates.
func SubmitPunchHandler(c *gin.Context, db *gorm.DB) {
	action, err := model.ParseEventType(c.Param("action"))
	if err != nil {
		c.JSON(http.StatusNotFound, common.NewErrorResponse(err.Error()))
		return
	}

	var event model.TimeClockEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	if event.Type != action {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(fmt.Sprintf("Field 'type' is %s but the endpoint is %s", event.Type, action.Path())))
		return
	}
	if claims, ok := middlewares.Claims(c); ok && claims.UserID != event.UserID {
		c.JSON(http.StatusForbidden, common.NewErrorResponse("punch belongs to another user"))
		return
	}

	receipt, err := SavePunch(db, &event)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	status := http.StatusCreated
	if receipt.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, common.NewSuccessResponse(receipt))
}

// SavePunch upserts event by event_uuid and counts deliveries.
func SavePunch(db *gorm.DB, event *model.TimeClockEvent) (*apicommon.PunchReceipt, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encode punch: %w", err)
	}

	punch := model.ReceivedPunch{
		EventUUID:    event.EventUUID,
		UserID:       event.UserID,
		JobID:        event.JobID,
		Type:         event.Type,
		TimestampUTC: event.TimestampUTC.UTC(),
		DeviceTime:   event.DeviceTime,
		Payload:      payload,
		Deliveries:   1,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "event_uuid"}},
			DoUpdates: append(
				clause.AssignmentColumns([]string{"user_id", "job_id", "type", "timestamp_utc", "device_time", "payload", "updated_at"}),
				clause.Assignment{Column: clause.Column{Name: "deliveries"}, Value: gorm.Expr("deliveries + 1")},
			),
		}).Create(&punch).Error; err != nil {
			return err
		}
		return tx.Where("event_uuid = ?", event.EventUUID).Take(&punch).Error
	})
	if err != nil {
		return nil, fmt.Errorf("save punch %s: %w", event.EventUUID, err)
	}

	return &apicommon.PunchReceipt{
		EventUUID:  punch.EventUUID,
		Deliveries: punch.Deliveries,
		Duplicate:  punch.Deliveries > 1,
	}, nil
}

type ListPunchesQuery struct {
	UserID string          `form:"user_id"`
	Date   common.DateOnly `form:"date"`
	Since  string          `form:"since"`
	Limit  int             `form:"limit" validate:"omitempty,min=1,max=500"`
}

// ListPunchesHandler lists received punches, newest first.
func ListPunchesHandler(c *gin.Context, db *gorm.DB) {
	var query ListPunchesQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, common.NewErrorResponse(common.FormatBindingError(err)))
		return
	}
	if query.Limit == 0 {
		query.Limit = 100
	}
	var since *time.Time
	if query.Since != "" {
		t, err := utils.ParseISOTime(query.Since)
		if err != nil {
			c.JSON(http.StatusBadRequest, common.NewErrorResponse(fmt.Sprintf("Field 'since' %v", err)))
			return
		}
		since = t
	}

	filter := func(q *gorm.DB) *gorm.DB {
		if query.UserID != "" {
			q = q.Where("user_id = ?", query.UserID)
		}
		if !query.Date.IsZero() {
			from := query.Date.Time
			q = q.Where("timestamp_utc >= ? AND timestamp_utc < ?", from, from.Add(24*time.Hour))
		}
		if since != nil {
			q = q.Where("timestamp_utc >= ?", since.UTC())
		}
		return q
	}

	var total int64
	if err := db.Model(&model.ReceivedPunch{}).Scopes(filter).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	var punches []model.ReceivedPunch
	if err := db.Scopes(filter).Order("timestamp_utc DESC").Limit(query.Limit).Find(&punches).Error; err != nil {
		c.JSON(http.StatusInternalServerError, common.NewErrorResponse(err.Error()))
		return
	}

	c.JSON(http.StatusOK, common.NewSearchResponse(punches, total))
}
