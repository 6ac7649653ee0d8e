package api

import (
	"net/http"
	"time"

	"github.com/ajaxtable/go_ajaxtable/config"
	"github.com/ajaxtable/go_ajaxtable/database"
	gin "github.com/gin-gonic/gin"
)

func AddGeneralRoutes(routerapi *gin.RouterGroup) {
	routerapi.GET("/tables", apiKnownTables)
	routerapi.GET("/db/backup", apiDbBackup)
	routerapi.GET("/db/vacuum", apiDbVacuum)
	routerapi.GET("/cache/enable", apiCacheEnable)
	routerapi.GET("/cache/disable", apiCacheDisable)
}

// @Summary      Known tables
// @Description  Names of the tables the dashboard can list
// @Tags         general
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/tables [get]
func apiKnownTables(c *gin.Context) {
	if ApiAuth(c) == http.StatusUnauthorized {
		return
	}
	c.JSON(http.StatusOK, database.KnownTables())
}

// @Summary      Backup database
// @Description  Runs a vacuum backup of the data db
// @Tags         database
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/db/backup [get]
func apiDbBackup(c *gin.Context) {
	if ApiAuth(c) == http.StatusUnauthorized {
		return
	}
	general := config.ConfigGetGeneral()
	database.Backup(database.DB, "./backup/data.db."+time.Now().Format("20060102_150405"), general.MaxDatabaseBackups)
	c.JSON(http.StatusOK, "ok")
}

// @Summary      Vacuum database
// @Description  Runs vacuum on the data db
// @Tags         database
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/db/vacuum [get]
func apiDbVacuum(c *gin.Context) {
	if ApiAuth(c) == http.StatusUnauthorized {
		return
	}
	_, err := database.DB.Exec("VACUUM")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, "ok")
}

// @Summary      Enable result cache
// @Description  Turns the ajaxtable result cache on at runtime
// @Tags         general
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/cache/enable [get]
func apiCacheEnable(c *gin.Context) {
	if ApiAuth(c) == http.StatusUnauthorized {
		return
	}
	general := config.ConfigGetGeneral()
	general.AjaxTableCache = true
	config.ConfigSetGeneral(general)
	c.JSON(http.StatusOK, "ok")
}

// @Summary      Disable result cache
// @Description  Turns the ajaxtable result cache off at runtime
// @Tags         general
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/cache/disable [get]
func apiCacheDisable(c *gin.Context) {
	if ApiAuth(c) == http.StatusUnauthorized {
		return
	}
	general := config.ConfigGetGeneral()
	general.AjaxTableCache = false
	config.ConfigSetGeneral(general)
	c.JSON(http.StatusOK, "ok")
}

func ApiAuth(c *gin.Context) int {
	// check for query params
	if queryParam, ok := c.GetQuery("apikey"); ok {
		if queryParam == "" {
			c.Header("Content-Type", "application/json")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.AbortWithStatus(http.StatusUnauthorized)
			return http.StatusUnauthorized
		}
		if queryParam != config.ConfigGetGeneral().WebApiKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			c.AbortWithStatus(http.StatusUnauthorized)
			return http.StatusUnauthorized
		}
		c.Next()
		return http.StatusOK
	}
	c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	c.AbortWithStatus(http.StatusUnauthorized)
	return http.StatusUnauthorized
}
