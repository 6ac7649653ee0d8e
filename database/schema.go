package database

import (
	"github.com/pkg/errors"
)

type SchemaColumn struct {
	Name         string
	DeclaredType string
	Nullable     bool
	PrimaryKey   bool
}

type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

type TableSchema struct {
	Name        string
	Columns     []SchemaColumn
	ForeignKeys []ForeignKey
}

//GetTableSchema introspects a table through the sqlite pragmas. Column order
//matches the declaration order of the table.
func GetTableSchema(table string) (TableSchema, error) {
	if !TableKnown(table) {
		return TableSchema{}, errors.Errorf("unknown table %s", table)
	}
	rows, err := DB.Queryx("select name, type, `notnull`, pk from pragma_table_info(?)", table)
	if err != nil {
		return TableSchema{}, errors.Wrap(err, "table_info "+table)
	}
	defer rows.Close()

	schema := TableSchema{Name: table}
	for rows.Next() {
		var name, declared string
		var notnull, pk int
		if err := rows.Scan(&name, &declared, &notnull, &pk); err != nil {
			return TableSchema{}, errors.Wrap(err, "table_info scan "+table)
		}
		schema.Columns = append(schema.Columns, SchemaColumn{
			Name:         name,
			DeclaredType: declared,
			Nullable:     notnull == 0,
			PrimaryKey:   pk > 0,
		})
	}
	if len(schema.Columns) == 0 {
		return TableSchema{}, errors.Errorf("no columns for table %s", table)
	}

	fkrows, err := DB.Queryx("select `table`, `from`, `to` from pragma_foreign_key_list(?)", table)
	if err == nil {
		defer fkrows.Close()
		for fkrows.Next() {
			var reftable, from string
			var to *string
			if err := fkrows.Scan(&reftable, &from, &to); err != nil {
				continue
			}
			refcolumn := "id"
			if to != nil && *to != "" {
				refcolumn = *to
			}
			schema.ForeignKeys = append(schema.ForeignKeys, ForeignKey{Column: from, RefTable: reftable, RefColumn: refcolumn})
		}
	}
	return schema, nil
}
