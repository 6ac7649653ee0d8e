package api

import (
	"net/http"

	"github.com/ajaxtable/go_ajaxtable/ajaxtable"
	"github.com/ajaxtable/go_ajaxtable/config"
	"github.com/ajaxtable/go_ajaxtable/database"
	"github.com/ajaxtable/go_ajaxtable/logger"
	gin "github.com/gin-gonic/gin"
)

//ResultStore holds the shared ajaxtable cache backend, set once at startup.
var ResultStore ajaxtable.Store

func AddTableRoutes(rg *gin.RouterGroup) {
	rg.POST("/:name", apiTableList)
	rg.POST("/:name/bulkdelete", apiTableBulkDelete)
	rg.GET("/:name/markup", apiTableMarkup)
	rg.GET("/:name/clearcache", apiTableClearCache)
}

type bulkDeleteBody struct {
	IDs []string `json:"ids"`
}

// @Summary      List table rows
// @Description  Searched, sorted, paginated rows of a registered table
// @Tags         table
// @Param        name  path  string  true  "table name"
// @Success      200  {object}  ajaxtable.PageResult
// @Failure      401  {object}  string
// @Router       /api/table/{name} [post]
func apiTableList(c *gin.Context) {
	table := c.Param("name")
	if !database.TableKnown(table) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown table"})
		return
	}
	var params ajaxtable.Params
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns, err := ajaxtable.Describe(table)
	if err != nil {
		logger.Log.Error("Describe failed: ", table, " error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	general := config.ConfigGetGeneral()
	pageSize := general.AjaxTablePageSize
	if tableCfg := config.ConfigGetTable(table); tableCfg.PageSize > 0 {
		pageSize = tableCfg.PageSize
	}
	params.Normalize(columns, pageSize)

	result, err := ajaxtable.GetOrCompute(ResultStore, general.AjaxTableCache, table, params, func() (ajaxtable.PageResult, error) {
		return ajaxtable.Execute(table, columns, params)
	})
	if err != nil {
		logger.Log.Error("Table query failed: ", table, " error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// @Summary      Bulk delete rows
// @Description  Deletes a set of primary keys from a registered table
// @Tags         table
// @Param        name  path  string  true  "table name"
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/table/{name}/bulkdelete [post]
func apiTableBulkDelete(c *gin.Context) {
	table := c.Param("name")
	if !database.TableKnown(table) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown table"})
		return
	}
	var body bulkDeleteBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// identity comes from the auth layer in front of us
	actingID := c.GetHeader("X-User-Id")
	deleted, err := ajaxtable.BulkDelete(table, body.IDs, actingID)
	if err != nil {
		logger.Log.Error("Bulk delete failed: ", table, " error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "Ok", "code": 200, "result": deleted})
}

// @Summary      Table markup
// @Description  Embeddable table shell with the declarative client configuration
// @Tags         table
// @Param        name  path  string  true  "table name"
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/table/{name}/markup [get]
func apiTableMarkup(c *gin.Context) {
	table := c.Param("name")
	if !database.TableKnown(table) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown table"})
		return
	}
	columns, err := ajaxtable.Describe(table)
	if err != nil {
		logger.Log.Error("Describe failed: ", table, " error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	general := config.ConfigGetGeneral()
	tableCfg := config.ConfigGetTable(table)
	columns = filterHidden(columns, tableCfg.HiddenFields)

	opts := ajaxtable.RenderOptions{
		MainColumnCount:      general.AjaxTableMainColumns,
		PageSize:             general.AjaxTablePageSize,
		PageSizeOptions:      general.AjaxTablePageSizes,
		DefaultSortField:     tableCfg.DefaultSortField,
		DefaultSortDirection: tableCfg.DefaultSortDirection,
		Searchable:           true,
		ShowActions:          true,
	}
	if tableCfg.MainColumnCount > 0 {
		opts.MainColumnCount = tableCfg.MainColumnCount
	}
	if tableCfg.PageSize > 0 {
		opts.PageSize = tableCfg.PageSize
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(ajaxtable.Render(table, columns, opts)))
}

// @Summary      Clear table cache
// @Description  Drops every cached page result of one table
// @Tags         table
// @Param        name  path  string  true  "table name"
// @Success      200  {object}  string
// @Failure      401  {object}  string
// @Router       /api/table/{name}/clearcache [get]
func apiTableClearCache(c *gin.Context) {
	if ApiAuth(c) == http.StatusUnauthorized {
		return
	}
	table := c.Param("name")
	if !database.TableKnown(table) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown table"})
		return
	}
	if err := ajaxtable.ClearTable(ResultStore, table); err != nil {
		logger.Log.Error("Cache clear failed: ", table, " error: ", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cache clear failed"})
		return
	}
	c.JSON(http.StatusOK, "ok")
}

//filterHidden drops the configured hidden fields plus the types that never
//belong in an index listing.
func filterHidden(columns []ajaxtable.Column, hidden []string) []ajaxtable.Column {
	if len(hidden) == 0 {
		hidden = []string{"id", "created", "modified", "password"}
	}
	out := make([]ajaxtable.Column, 0, len(columns))
	for idx := range columns {
		col := columns[idx]
		if col.Type == ajaxtable.TypeBinary || col.Type == ajaxtable.TypeText {
			continue
		}
		skip := false
		for _, name := range hidden {
			if col.Field == name {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, col)
		}
	}
	return out
}
