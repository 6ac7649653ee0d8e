package ajaxtable

import (
	"strings"

	"github.com/ajaxtable/go_ajaxtable/config"
	"github.com/ajaxtable/go_ajaxtable/database"
)

//PageResult is the complete paginated, counted, ordered response for one
//query. Every field is always present on the wire so clients need no
//presence checks.
type PageResult struct {
	Draw            int                      `json:"draw"`
	TotalRecords    int                      `json:"totalRecords"`
	RecordsFiltered int                      `json:"recordsFiltered"`
	TotalPages      int                      `json:"totalPages"`
	CurrentPage     int                      `json:"currentPage"`
	StartRecord     int                      `json:"startRecord"`
	EndRecord       int                      `json:"endRecord"`
	PageSize        int                      `json:"pageSize"`
	Results         []map[string]interface{} `json:"results"`
}

//Execute runs the filtered, sorted, paginated count and fetch for one table.
//The search term becomes a disjunction of case-insensitive substring matches
//over the searchable fields, ordering is always qualified with the table name
//to stay unambiguous under joins, and one level of belongs-to relations is
//joined in so related rows render without extra lookups.
func Execute(table string, columns []Column, params Params) (PageResult, error) {
	where, whereArgs := searchPredicate(table, columns, params.Search)

	orderBy := table + ".id desc"
	if params.Sort != "" {
		orderBy = table + "." + params.Sort + " " + params.Direction
	}

	totalRecords, err := database.CountRows(table, database.Query{Where: where, WhereArgs: whereArgs})
	if err != nil {
		return PageResult{}, err
	}

	selectCols, leftJoin := relationJoin(table, columns)
	offset := (params.Page - 1) * params.PageSize
	results, err := database.QueryRowMaps(table, database.Query{
		Select:    selectCols,
		Where:     where,
		WhereArgs: whereArgs,
		OrderBy:   orderBy,
		Limit:     uint64(params.PageSize),
		Offset:    uint64(offset),
		LeftJoin:  leftJoin,
	})
	if err != nil {
		return PageResult{}, err
	}
	stripHidden(table, results)

	totalPages := (totalRecords + params.PageSize - 1) / params.PageSize
	startRecord := 0
	if totalRecords > 0 {
		startRecord = offset + 1
	}
	endRecord := params.Page * params.PageSize
	if endRecord > totalRecords {
		endRecord = totalRecords
	}

	return PageResult{
		Draw:            params.Draw,
		TotalRecords:    totalRecords,
		RecordsFiltered: totalRecords,
		TotalPages:      totalPages,
		CurrentPage:     params.Page,
		StartRecord:     startRecord,
		EndRecord:       endRecord,
		PageSize:        params.PageSize,
		Results:         results,
	}, nil
}

//stripHidden deletes the configured hidden fields from the fetched rows so
//they never reach the wire. The password column is always stripped, the id
//never is since rows are keyed by it.
func stripHidden(table string, results []map[string]interface{}) {
	hidden := config.ConfigGetTable(table).HiddenFields
	hidden = append([]string{"password"}, hidden...)
	for idx := range results {
		for _, field := range hidden {
			if field == "id" {
				continue
			}
			delete(results[idx], field)
		}
	}
}

func searchPredicate(table string, columns []Column, search string) (string, []interface{}) {
	if search == "" {
		return "", nil
	}
	searchable := config.ConfigGetTable(table).SearchableFields
	if len(searchable) == 0 {
		for idx := range columns {
			if columns[idx].Searchable {
				searchable = append(searchable, columns[idx].Field)
			}
		}
	} else {
		// keep configured fields that actually exist in the schema, without
		// touching the slice shared with the config entry
		kept := make([]string, 0, len(searchable))
		for _, field := range searchable {
			if findColumn(columns, field) != nil {
				kept = append(kept, field)
			}
		}
		searchable = kept
	}
	if len(searchable) == 0 {
		return "", nil
	}

	var b strings.Builder
	args := make([]interface{}, 0, len(searchable))
	term := "%" + strings.ToLower(search) + "%"
	b.WriteString("(")
	for idx, field := range searchable {
		if idx > 0 {
			b.WriteString(" or ")
		}
		b.WriteString("lower(" + table + "." + field + ") like ?")
		args = append(args, term)
	}
	b.WriteString(")")
	return b.String(), args
}

//relationJoin builds the select list and left join clause pulling in the id
//and display field of every belongs-to relation. Joined columns are aliased
//related__field so the row fetch can fold them into nested objects.
func relationJoin(table string, columns []Column) (string, string) {
	selectCols := table + ".*"
	var joins []string
	for idx := range columns {
		col := columns[idx]
		if col.Type != TypeBelongsTo {
			continue
		}
		related := relatedTable(col.Field)
		alias := strings.TrimSuffix(col.Field, "_id")
		selectCols += ", " + related + ".id as " + alias + "__id"
		if col.DisplayField != "" && col.DisplayField != "id" {
			selectCols += ", " + related + "." + col.DisplayField + " as " + alias + "__" + col.DisplayField
		}
		joins = append(joins, related+" on "+related+".id = "+table+"."+col.Field)
	}
	return selectCols, strings.Join(joins, " left join ")
}
