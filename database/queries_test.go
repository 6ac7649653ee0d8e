package database

import (
	"sync"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

func TestBuildquery(t *testing.T) {
	t.Run("plain select", func(t *testing.T) {
		got := buildquery("*", "users", Query{}, false)
		if got != "select * from users" {
			t.Errorf("query = %q", got)
		}
	})

	t.Run("where order and limit", func(t *testing.T) {
		got := buildquery("*", "users", Query{
			Where:   "lower(users.email) like ?",
			OrderBy: "users.name asc",
			Limit:   10,
		}, false)
		want := "select * from users where lower(users.email) like ? order by users.name asc limit 10"
		if got != want {
			t.Errorf("query = %q, want %q", got, want)
		}
	})

	t.Run("offset syntax", func(t *testing.T) {
		got := buildquery("*", "users", Query{Limit: 10, Offset: 20}, false)
		if got != "select * from users limit 20, 10" {
			t.Errorf("query = %q", got)
		}
	})

	t.Run("left join keeps qualified columns", func(t *testing.T) {
		got := buildquery("sessions.*, users.id as user__id", "sessions", Query{
			LeftJoin: "users on users.id = sessions.user_id",
		}, false)
		want := "select sessions.*, users.id as user__id from sessions left join users on users.id = sessions.user_id"
		if got != want {
			t.Errorf("query = %q, want %q", got, want)
		}
	})

	t.Run("count under join", func(t *testing.T) {
		got := buildquery("count(id)", "sessions", Query{
			LeftJoin: "users on users.id = sessions.user_id",
		}, true)
		want := "select count(*) from sessions left join users on users.id = sessions.user_id"
		if got != want {
			t.Errorf("query = %q, want %q", got, want)
		}
	})
}

func TestFoldRow(t *testing.T) {
	t.Run("bytes become strings", func(t *testing.T) {
		out := foldRow(map[string]interface{}{"name": []byte("User 01")})
		if out["name"] != "User 01" {
			t.Errorf("name = %v (%T)", out["name"], out["name"])
		}
	})

	t.Run("aliased columns fold into a nested object", func(t *testing.T) {
		out := foldRow(map[string]interface{}{
			"id":         "s1",
			"user_id":    "u01",
			"user__id":   "u01",
			"user__name": []byte("User 01"),
		})
		related, ok := out["user"].(map[string]interface{})
		if !ok {
			t.Fatalf("user = %T, want map", out["user"])
		}
		if related["id"] != "u01" || related["name"] != "User 01" {
			t.Errorf("related = %v", related)
		}
		if _, ok := out["user__id"]; ok {
			t.Errorf("aliased key survived folding")
		}
	})

	t.Run("null join scans drop the object", func(t *testing.T) {
		out := foldRow(map[string]interface{}{
			"id":         "s3",
			"user__id":   nil,
			"user__name": nil,
		})
		if _, ok := out["user"]; ok {
			t.Errorf("empty related object kept")
		}
	})
}

func TestSchemaIntrospection(t *testing.T) {
	db, err := sqlx.Connect("sqlite3", ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	DB = db
	ReadWriteMu = &sync.RWMutex{}
	defer db.Close()

	db.MustExec(`create table users (
		id uuid not null primary key,
		name varchar(255) not null,
		biography text,
		created datetime not null default current_timestamp)`)

	t.Run("columns in declaration order", func(t *testing.T) {
		schema, err := GetTableSchema("users")
		if err != nil {
			t.Fatal(err)
		}
		if len(schema.Columns) != 4 {
			t.Fatalf("columns = %d, want 4", len(schema.Columns))
		}
		if schema.Columns[0].Name != "id" || schema.Columns[3].Name != "created" {
			t.Errorf("order = %v", schema.Columns)
		}
		if !schema.Columns[2].Nullable {
			t.Errorf("biography not nullable")
		}
		if schema.Columns[1].Nullable {
			t.Errorf("name nullable")
		}
	})

	t.Run("unknown table rejected", func(t *testing.T) {
		if _, err := GetTableSchema("nosuchtable"); err == nil {
			t.Errorf("expected error")
		}
	})
}
