package ajaxtable

import (
	"testing"

	"github.com/ajaxtable/go_ajaxtable/database"
)

func countRemaining(t *testing.T, table string) int {
	t.Helper()
	count, err := database.CountRows(table, database.Query{})
	if err != nil {
		t.Fatal(err)
	}
	return count
}

func TestBulkDelete(t *testing.T) {
	t.Run("deletes the requested rows", func(t *testing.T) {
		setupTestDB(t)
		seedUsers(t, 5)
		deleted, err := BulkDelete("users", []string{"u02", "u04"}, "")
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 2 {
			t.Errorf("deleted = %d, want 2", deleted)
		}
		if remaining := countRemaining(t, "users"); remaining != 3 {
			t.Errorf("remaining = %d, want 3", remaining)
		}
	})

	t.Run("acting identity is skipped on the identity table", func(t *testing.T) {
		setupTestDB(t)
		seedUsers(t, 5)
		deleted, err := BulkDelete("users", []string{"u01", "u03", "u05"}, "u01")
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 2 {
			t.Errorf("deleted = %d, want 2", deleted)
		}
		var count int
		if err := database.DB.Get(&count, "select count(id) from users where id = ?", "u01"); err != nil {
			t.Fatal(err)
		}
		if count != 1 {
			t.Errorf("acting identity row was deleted")
		}
	})

	t.Run("acting identity alone is a no-op", func(t *testing.T) {
		setupTestDB(t)
		seedUsers(t, 2)
		deleted, err := BulkDelete("users", []string{"u01"}, "u01")
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 0 {
			t.Errorf("deleted = %d, want 0", deleted)
		}
		if remaining := countRemaining(t, "users"); remaining != 2 {
			t.Errorf("remaining = %d, want 2", remaining)
		}
	})

	t.Run("guard only applies to the identity table", func(t *testing.T) {
		setupTestDB(t)
		seedUsers(t, 3)
		seedSessions(t)
		deleted, err := BulkDelete("sessions", []string{"s1", "s2"}, "s1")
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 2 {
			t.Errorf("deleted = %d, want 2", deleted)
		}
	})

	t.Run("empty id list", func(t *testing.T) {
		setupTestDB(t)
		seedUsers(t, 2)
		deleted, err := BulkDelete("users", nil, "u01")
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 0 {
			t.Errorf("deleted = %d, want 0", deleted)
		}
	})

	t.Run("unknown table", func(t *testing.T) {
		setupTestDB(t)
		if _, err := BulkDelete("nosuchtable", []string{"x"}, ""); err == nil {
			t.Errorf("expected error for unknown table")
		}
	})
}
