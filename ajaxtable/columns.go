package ajaxtable

import (
	"strings"

	"github.com/ajaxtable/go_ajaxtable/config"
	"github.com/ajaxtable/go_ajaxtable/database"
	"github.com/ajaxtable/go_ajaxtable/logger"
)

const (
	TypeString    = "string"
	TypeText      = "text"
	TypeInteger   = "integer"
	TypeFloat     = "float"
	TypeBoolean   = "boolean"
	TypeDatetime  = "datetime"
	TypeDate      = "date"
	TypeTime      = "time"
	TypeUUID      = "uuid"
	TypeBinary    = "binary"
	TypeBelongsTo = "belongsTo"
)

//Column is the descriptor for one displayable field of a table. Built fresh
//from the live schema on every request, never persisted.
type Column struct {
	Field        string `json:"field"`
	Title        string `json:"title"`
	Type         string `json:"type"`
	Sortable     bool   `json:"sortable"`
	Searchable   bool   `json:"searchable"`
	Visible      bool   `json:"visible"`
	Default      string `json:"default"`
	Route        string `json:"route"`
	DisplayField string `json:"displayField"`
	Editor       bool   `json:"editor"`
}

//Describe builds the ordered column descriptors for a table from its schema.
//Foreign key columns (the _id suffix convention) become belongsTo columns
//pointing at the referenced table's view route and display field; when the
//referenced table is not registered the column stays a plain scalar.
func Describe(table string) ([]Column, error) {
	schema, err := database.GetTableSchema(table)
	if err != nil {
		return nil, err
	}

	columns := make([]Column, 0, len(schema.Columns))
	editorSet := false
	for idx := range schema.Columns {
		schemacol := schema.Columns[idx]
		col := Column{
			Field:      schemacol.Name,
			Title:      logger.StringHumanize(schemacol.Name),
			Type:       columnType(schemacol.DeclaredType),
			Sortable:   true,
			Searchable: true,
			Visible:    true,
		}
		if schemacol.Nullable {
			col.Default = "-"
		}

		// only the first text column carries the rich editor
		if !editorSet && col.Type == TypeText {
			col.Editor = true
			editorSet = true
		}

		if strings.HasSuffix(schemacol.Name, "_id") {
			related := relatedTable(schemacol.Name)
			if info, ok := database.GetTableInfo(related); ok {
				col.Type = TypeBelongsTo
				col.Route = "/" + related + "/view"
				col.DisplayField = displayField(related, info)
			}
		}

		columns = append(columns, col)
	}
	return columns, nil
}

func displayField(table string, info database.TableInfo) string {
	if override := config.ConfigGetTable(table).DisplayField; override != "" {
		return override
	}
	if info.DisplayField != "" {
		return info.DisplayField
	}
	return "id"
}

//user_id -> users, activity_id -> activities
func relatedTable(field string) string {
	base := strings.TrimSuffix(field, "_id")
	switch {
	case strings.HasSuffix(base, "y"):
		return base[:len(base)-1] + "ies"
	case strings.HasSuffix(base, "s"), strings.HasSuffix(base, "x"):
		return base + "es"
	default:
		return base + "s"
	}
}

func columnType(declared string) string {
	declared = strings.ToLower(declared)
	if idx := strings.Index(declared, "("); idx > 0 {
		declared = declared[:idx]
	}
	switch {
	case strings.Contains(declared, "uuid"):
		return TypeUUID
	case declared == "text" || strings.Contains(declared, "clob"):
		return TypeText
	case strings.Contains(declared, "char"):
		return TypeString
	case strings.Contains(declared, "int"):
		return TypeInteger
	case strings.Contains(declared, "bool"):
		return TypeBoolean
	case strings.Contains(declared, "datetime"), strings.Contains(declared, "timestamp"):
		return TypeDatetime
	case declared == "date":
		return TypeDate
	case declared == "time":
		return TypeTime
	case strings.Contains(declared, "real"), strings.Contains(declared, "floa"),
		strings.Contains(declared, "doub"), strings.Contains(declared, "decimal"),
		strings.Contains(declared, "numeric"):
		return TypeFloat
	case strings.Contains(declared, "blob"), strings.Contains(declared, "binary"):
		return TypeBinary
	default:
		return TypeString
	}
}

//ColumnMap keys the descriptors by field for the markup configuration blob.
func ColumnMap(columns []Column) map[string]Column {
	out := make(map[string]Column, len(columns))
	for idx := range columns {
		out[columns[idx].Field] = columns[idx]
	}
	return out
}

func findColumn(columns []Column, field string) *Column {
	for idx := range columns {
		if columns[idx].Field == field {
			return &columns[idx]
		}
	}
	return nil
}
