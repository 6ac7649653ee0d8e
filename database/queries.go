package database

import (
	"database/sql"
	"strconv"
	"strings"

	"github.com/ajaxtable/go_ajaxtable/config"
	"github.com/ajaxtable/go_ajaxtable/logger"
	"github.com/jmoiron/sqlx"
)

type Query struct {
	Select    string
	Where     string
	WhereArgs []interface{}
	OrderBy   string
	Limit     uint64
	Offset    uint64
	LeftJoin  string
}

func buildquery(columns string, table string, qu Query, count bool) string {
	var query strings.Builder
	query.WriteString("select ")

	if qu.LeftJoin != "" {
		if strings.Contains(columns, table+".") {
			query.WriteString(columns + " from " + table)
		} else {
			if count {
				query.WriteString("count(*) from " + table)
			} else {
				query.WriteString(table + ".* from " + table)
			}
		}
		query.WriteString(" left join " + qu.LeftJoin)
	} else {
		query.WriteString(columns + " from " + table)
	}
	if qu.Where != "" {
		query.WriteString(" where " + qu.Where)
	}
	if qu.OrderBy != "" {
		query.WriteString(" order by " + qu.OrderBy)
	}
	if qu.Limit != 0 {
		if qu.Offset != 0 {
			query.WriteString(" limit " + strconv.Itoa(int(qu.Offset)) + ", " + strconv.Itoa(int(qu.Limit)))
		} else {
			query.WriteString(" limit " + strconv.Itoa(int(qu.Limit)))
		}
	}
	return query.String()
}

//Uses column id
func CountRows(table string, qu Query) (int, error) {
	qu.Offset = 0
	qu.Limit = 0
	qu.OrderBy = ""
	query := buildquery("count(id)", table, qu, true)
	if strings.EqualFold(config.ConfigGetGeneral().DBLogLevel, "debug") {
		logger.Log.Debug("query count: ", query, " -args: ", qu.WhereArgs)
	}
	var counter int
	err := DB.Get(&counter, query, qu.WhereArgs...)
	if err != nil {
		logger.Log.Error("Query: ", query, " error: ", err)
		return 0, err
	}
	return counter, nil
}

//QueryRowMaps fetches rows without a compile-time struct. Joined columns
//aliased as related__field are folded into a nested map under related, so a
//belongs-to row arrives as {"user_id": ..., "user": {"id": ..., "name": ...}}.
func QueryRowMaps(table string, qu Query) ([]map[string]interface{}, error) {
	columns := table + ".*"
	if qu.Select != "" {
		columns = qu.Select
	}
	query := buildquery(columns, table, qu, false)
	if strings.EqualFold(config.ConfigGetGeneral().DBLogLevel, "debug") {
		logger.Log.Debug("query: ", query, " -args: ", qu.WhereArgs)
	}
	rows, err := DB.Queryx(query, qu.WhereArgs...)
	if err != nil {
		logger.Log.Error("Query: ", query, " error: ", err)
		return []map[string]interface{}{}, err
	}
	defer rows.Close()

	result := make([]map[string]interface{}, 0, qu.Limit)
	for rows.Next() {
		item := map[string]interface{}{}
		err2 := rows.MapScan(item)
		if err2 != nil {
			logger.Log.Error("Query2: ", query, " error: ", err2)
			return []map[string]interface{}{}, err2
		}
		result = append(result, foldRow(item))
	}
	return result, nil
}

func foldRow(item map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(item))
	var nested map[string]map[string]interface{}
	for key, value := range item {
		if b, ok := value.([]byte); ok {
			value = string(b)
		}
		if idx := strings.Index(key, "__"); idx > 0 {
			if nested == nil {
				nested = map[string]map[string]interface{}{}
			}
			parent := key[:idx]
			if nested[parent] == nil {
				nested[parent] = map[string]interface{}{}
			}
			nested[parent][key[idx+2:]] = value
			continue
		}
		out[key] = value
	}
	for parent, fields := range nested {
		// a left join with no match scans all nulls - drop the empty object
		if fields["id"] == nil {
			continue
		}
		out[parent] = fields
	}
	return out
}

func ExecStatic(query string, args ...interface{}) (sql.Result, error) {
	ReadWriteMu.Lock()
	defer ReadWriteMu.Unlock()
	if strings.EqualFold(config.ConfigGetGeneral().DBLogLevel, "debug") {
		logger.Log.Debug("query exec: ", query, " -args: ", args)
	}
	result, err := DB.Exec(query, args...)
	if err != nil {
		logger.Log.Error("Exec: ", query, " error: ", err)
		return nil, err
	}
	return result, nil
}

//DeleteRowsIn removes the given primary keys from table in one statement.
func DeleteRowsIn(table string, ids []string) (int64, error) {
	query, args, err := sqlx.In("delete from "+table+" where id in (?)", ids)
	if err != nil {
		logger.Log.Error("Delete build: ", table, " error: ", err)
		return 0, err
	}
	result, err := ExecStatic(DB.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return affected, nil
}
