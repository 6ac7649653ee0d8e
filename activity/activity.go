package activity

import (
	"strings"
	"time"

	"github.com/ajaxtable/go_ajaxtable/database"
	"github.com/ajaxtable/go_ajaxtable/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Middleware records every handled request in the activities table.
// Static assets and pprof traffic are skipped.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		url := c.Request.URL.Path
		if strings.HasPrefix(url, "/static") || strings.HasPrefix(url, "/debug") {
			return
		}
		userID := c.GetHeader("X-User-Id")
		browser, os, device := parseUserAgent(c.Request.UserAgent())
		now := time.Now().In(time.Local)
		_, err := database.ExecStatic(
			"insert into activities (id, user_id, url, browser, os, device, created, modified) values (?, ?, ?, ?, ?, ?, ?, ?)",
			uuid.New().String(), nullable(userID), url, browser, os, device, now, now)
		if err != nil {
			logger.Log.Warning("Activity insert failed: ", err)
		}
	}
}

func nullable(str string) interface{} {
	if str == "" {
		return nil
	}
	return str
}

// Prune removes activity rows older than the retention window.
func Prune(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().In(time.Local).AddDate(0, 0, -retentionDays)
	res, err := database.ExecStatic("delete from activities where created < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func parseUserAgent(ua string) (browser string, os string, device string) {
	browser, os, device = "Unknown", "Unknown", "Desktop"
	lower := strings.ToLower(ua)
	switch {
	case strings.Contains(lower, "edg/"):
		browser = "Edge"
	case strings.Contains(lower, "opr/") || strings.Contains(lower, "opera"):
		browser = "Opera"
	case strings.Contains(lower, "chrome"):
		browser = "Chrome"
	case strings.Contains(lower, "safari"):
		browser = "Safari"
	case strings.Contains(lower, "firefox"):
		browser = "Firefox"
	case strings.Contains(lower, "curl"):
		browser = "Curl"
	}
	switch {
	case strings.Contains(lower, "windows"):
		os = "Windows"
	case strings.Contains(lower, "android"):
		os = "Android"
	case strings.Contains(lower, "iphone") || strings.Contains(lower, "ipad"):
		os = "iOS"
	case strings.Contains(lower, "mac os"):
		os = "MacOS"
	case strings.Contains(lower, "linux"):
		os = "Linux"
	}
	if strings.Contains(lower, "mobile") || strings.Contains(lower, "android") || strings.Contains(lower, "iphone") {
		device = "Mobile"
	} else if strings.Contains(lower, "ipad") || strings.Contains(lower, "tablet") {
		device = "Tablet"
	}
	return browser, os, device
}
