package ajaxtable

import (
	"encoding/json"
	"html"
	"strconv"
	"strings"

	"github.com/ajaxtable/go_ajaxtable/logger"
)

type RenderOptions struct {
	TableID              string
	APIURL               string
	ActionURL            string
	MainColumnCount      int
	PageSize             int
	PageSizeOptions      []int
	DefaultSortField     string
	DefaultSortDirection string
	Searchable           bool
	ShowActions          bool
}

//Render emits the table shell plus the declarative configuration the client
//reads from the root element's data attributes. The attributes are the whole
//contract: the client needs no handshake call before its first load.
func Render(table string, columns []Column, opts RenderOptions) string {
	if opts.TableID == "" {
		opts.TableID = "ajaxtable-" + logger.StringToSlug(table) + "-index"
	}
	if opts.APIURL == "" {
		opts.APIURL = "/api/table/" + table
	}
	if opts.ActionURL == "" {
		opts.ActionURL = "/" + table
	}
	if opts.MainColumnCount <= 0 {
		opts.MainColumnCount = 4
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 10
	}
	if len(opts.PageSizeOptions) == 0 {
		opts.PageSizeOptions = []int{10, 15, 25, 50, 100}
	}
	if opts.DefaultSortField == "" && len(columns) > 0 {
		opts.DefaultSortField = columns[0].Field
	}
	if opts.DefaultSortDirection == "" {
		opts.DefaultSortDirection = "asc"
	}

	fields := make([]string, 0, len(columns))
	for idx := range columns {
		fields = append(fields, columns[idx].Field)
	}
	mainCount := opts.MainColumnCount
	if mainCount > len(fields) {
		mainCount = len(fields)
	}
	mainColumns := fields[:mainCount]
	extraColumns := fields[mainCount:]
	hasExtra := len(extraColumns) > 0

	columnsJson, _ := json.Marshal(ColumnMap(columns))
	mainJson, _ := json.Marshal(mainColumns)
	extraJson, _ := json.Marshal(extraColumns)

	var b strings.Builder
	b.WriteString(`<div x-data="ajaxTable()" data-api="` + html.EscapeString(opts.APIURL) + `"`)
	b.WriteString(` data-action="` + html.EscapeString(opts.ActionURL) + `"`)
	b.WriteString(` data-columns="` + html.EscapeString(string(columnsJson)) + `"`)
	b.WriteString(` data-table-id="` + html.EscapeString(opts.TableID) + `"`)
	b.WriteString(` data-main-columns="` + html.EscapeString(string(mainJson)) + `"`)
	b.WriteString(` data-extra-columns="` + html.EscapeString(string(extraJson)) + `"`)
	if hasExtra {
		b.WriteString(` data-has-extra-columns="1"`)
	} else {
		b.WriteString(` data-has-extra-columns="0"`)
	}
	b.WriteString(` data-page-size="` + strconv.Itoa(opts.PageSize) + `"`)
	b.WriteString(` data-default-sort-field="` + html.EscapeString(opts.DefaultSortField) + `"`)
	b.WriteString(` data-default-sort-direction="` + html.EscapeString(opts.DefaultSortDirection) + `"`)
	b.WriteString(`>`)

	b.WriteString(`<div class="table-toolbar">`)
	if opts.Searchable {
		b.WriteString(`<input type="text" id="searchable" x-model="searchTerm" @input.debounce.500ms="loadData()" placeholder="Search..." class="table-search">`)
	}
	b.WriteString(`<button x-show="selectedRows.length > 0" @click="deleteAllSelectedRecords()" class="table-delete-selected" title="Delete Selected Records">delete_sweep</button>`)
	b.WriteString(`<button @click="clearState()" class="table-clear-state" title="Reset View">restore_page</button>`)
	b.WriteString(`</div>`)

	b.WriteString(`<table id="` + html.EscapeString(opts.TableID) + `" class="ajaxtable">`)
	b.WriteString(`<thead><tr>`)
	b.WriteString(`<th class="table-check"><input name="checkbox" id="checkHead" type="checkbox" @change="toggleSelectAll($event)" x-model="allVisibleChecked"></th>`)
	if hasExtra {
		b.WriteString(`<th class="table-expand"></th>`)
	}
	for _, field := range mainColumns {
		col := findColumn(columns, field)
		if col == nil || field == "actions" {
			continue
		}
		b.WriteString(`<th>`)
		if col.Sortable {
			b.WriteString(`<button @click="sort('` + html.EscapeString(field) + `')">` + html.EscapeString(col.Title))
			b.WriteString(`<span x-show="sortField === '` + html.EscapeString(field) + `'" x-text="sortDirection === 'asc' ? '&#8593;' : '&#8595;'"></span></button>`)
		} else {
			b.WriteString(html.EscapeString(col.Title))
		}
		b.WriteString(`</th>`)
	}
	if opts.ShowActions {
		b.WriteString(`<th class="table-actions">Actions</th>`)
	}
	b.WriteString(`</tr></thead>`)
	b.WriteString(`<tbody x-ref="tbody"></tbody>`)
	b.WriteString(`</table>`)

	b.WriteString(`<div class="table-footer">`)
	b.WriteString(`<select id="pageSize" x-model="pageSize" @change="onPageSizeChange()">`)
	for _, size := range opts.PageSizeOptions {
		b.WriteString(`<option value="` + strconv.Itoa(size) + `">` + strconv.Itoa(size) + `</option>`)
	}
	b.WriteString(`</select>`)
	b.WriteString(`<span>Showing <span x-text="startRecord"></span> to <span x-text="endRecord"></span> of <span x-text="totalRecords"></span> results</span>`)
	b.WriteString(`<button @click="firstPage()" :disabled="currentPage === 1">First</button>`)
	b.WriteString(`<button @click="previousPage()" :disabled="currentPage === 1">Previous</button>`)
	b.WriteString(`<span><span x-text="currentPage"></span> of <span x-text="totalPages"></span></span>`)
	b.WriteString(`<button @click="nextPage()" :disabled="currentPage === totalPages">Next</button>`)
	b.WriteString(`<button @click="lastPage()" :disabled="currentPage === totalPages">Last</button>`)
	b.WriteString(`</div>`)

	b.WriteString(`<div x-show="loading" class="table-loading">Loading...</div>`)
	b.WriteString(`</div>`)
	return b.String()
}
