package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// Error writes the error body the frontend expects.
func Error(c *gin.Context, status int, detail string) {
	c.JSON(status, gin.H{"detail": detail})
}

func intQuery(c *gin.Context, key string, def int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}

// dateQuery parses a YYYY-MM-DD query value in loc. With endOfDay the last
// instant of that date is returned.
func dateQuery(c *gin.Context, key string, loc *time.Location, endOfDay bool) (*time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil, true
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, loc)
	if err != nil {
		return nil, false
	}
	if endOfDay {
		d = d.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return &d, true
}

func dateRange(c *gin.Context, loc *time.Location) (from, to *time.Time, ok bool) {
	from, ok = dateQuery(c, "start_date", loc, false)
	if !ok {
		Error(c, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return nil, nil, false
	}
	to, ok = dateQuery(c, "end_date", loc, true)
	if !ok {
		Error(c, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return nil, nil, false
	}
	return from, to, true
}

func idParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, "invalid trade id")
		return 0, false
	}
	return uint(id), true
}
