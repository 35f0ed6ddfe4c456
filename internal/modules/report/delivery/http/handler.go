package http

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dulgistudio/dulgi/internal/calendar"
	"github.com/dulgistudio/dulgi/internal/modules/report/dto"
	reportService "github.com/dulgistudio/dulgi/internal/modules/report/service"
	"github.com/dulgistudio/dulgi/pkg/response"
	"github.com/gin-gonic/gin"
)

type ReportHandler struct {
	service reportService.ReportService
}

func NewReportHandler(service reportService.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

// refDate reads an optional ?date=YYYY-MM-DD query, defaulting to the
// current logical date so pre-06:00 requests report on the previous day.
func refDate(c *gin.Context) (time.Time, error) {
	if raw := c.Query("date"); raw != "" {
		return calendar.ParseDate(raw)
	}
	return calendar.LogicalDate(time.Now(), calendar.DayStartHour), nil
}

func (h *ReportHandler) GetWeeklyTotal(c *gin.Context) {
	date, err := refDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	userID := c.Param("id")

	total, err := h.service.WeeklyTotal(c.Request.Context(), userID, date)
	if err != nil {
		response.ResponseError(c, err)
		return
	}
	breakdown, err := h.service.WeeklyBreakdown(c.Request.Context(), userID, date)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id":   userID,
		"week_key":  calendar.WeekKey(date),
		"total":     total,
		"breakdown": breakdown,
	}})
}

func (h *ReportHandler) GetMonthlyTotal(c *gin.Context) {
	userID := c.Param("id")
	now := calendar.LogicalDate(time.Now(), calendar.DayStartHour)

	year, err := strconv.Atoi(c.DefaultQuery("year", strconv.Itoa(now.Year())))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", strconv.Itoa(int(now.Month()))))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
		return
	}

	total, err := h.service.MonthlyTotal(c.Request.Context(), userID, year, month)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id": userID,
		"month":   fmt.Sprintf("%04d-%02d", year, month),
		"total":   total,
	}})
}

func (h *ReportHandler) GetWeeklySummary(c *gin.Context) {
	date, err := refDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	summary, err := h.service.WeeklySummary(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func (h *ReportHandler) GetDayTile(c *gin.Context) {
	date, err := refDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}
	goal, err := strconv.Atoi(c.DefaultQuery("goal", strconv.Itoa(reportService.DefaultDailyGoal)))
	if err != nil || goal < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid goal"})
		return
	}

	met, err := h.service.DayTile(c.Request.Context(), c.Param("id"), date, goal)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"user_id": c.Param("id"),
		"date":    date.Format(calendar.DateLayout),
		"goal":    goal,
		"met":     met,
	}})
}

// GetLeaderboard serves the ranked period report. Admin callers can request
// the full ranking as CSV with ?format=csv; JSON output is capped by limit.
func (h *ReportHandler) GetLeaderboard(c *gin.Context) {
	date, err := refDate(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date, expected YYYY-MM-DD"})
		return
	}

	granularity := reportService.Week
	if c.Query("granularity") == string(reportService.Month) {
		granularity = reportService.Month
	}

	entries, err := h.service.Leaderboard(c.Request.Context(), granularity, date)
	if err != nil {
		response.ResponseError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		h.writeCSV(c, granularity, date, entries)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit < 1 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}

func (h *ReportHandler) writeCSV(c *gin.Context, granularity reportService.Granularity, date time.Time, entries []dto.LeaderboardEntry) {
	var filename string
	if granularity == reportService.Month {
		filename = fmt.Sprintf("monthly_report_%s.csv", calendar.MonthKey(date))
	} else {
		filename = fmt.Sprintf("weekly_report_%s.csv", calendar.WeekKey(date))
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"rank", "user_id", "score"})
	for _, e := range entries {
		_ = w.Write([]string{strconv.Itoa(e.Position), e.UserID, strconv.Itoa(e.Total)})
	}
	w.Flush()
}
