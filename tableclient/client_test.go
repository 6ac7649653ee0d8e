package tableclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
)

type fakeTableServer struct {
	mu      sync.Mutex
	rows    []map[string]interface{}
	deleted []string
	fail    bool
}

func newFakeTableServer(count int) *fakeTableServer {
	s := &fakeTableServer{}
	for idx := 1; idx <= count; idx++ {
		s.rows = append(s.rows, map[string]interface{}{
			"id":   fmt.Sprintf("r%02d", idx),
			"name": fmt.Sprintf("Row %02d", idx),
		})
	}
	return s
}

func (s *fakeTableServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/table/users", s.list)
	mux.HandleFunc("/api/table/users/bulkdelete", s.bulkDelete)
	return mux
}

func (s *fakeTableServer) list(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		http.Error(w, "boom", http.StatusInternalServerError)
		return
	}
	var request listRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	matched := make([]map[string]interface{}, 0, len(s.rows))
	for _, row := range s.rows {
		name, _ := row["name"].(string)
		if request.Search == "" || strings.Contains(strings.ToLower(name), strings.ToLower(request.Search)) {
			matched = append(matched, row)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		less := matched[i]["id"].(string) < matched[j]["id"].(string)
		if request.Direction == "desc" {
			return !less
		}
		return less
	})

	total := len(matched)
	totalPages := (total + request.PageSize - 1) / request.PageSize
	offset := (request.Page - 1) * request.PageSize
	page := []map[string]interface{}{}
	if offset < total {
		end := offset + request.PageSize
		if end > total {
			end = total
		}
		page = matched[offset:end]
	}
	startRecord := 0
	if total > 0 {
		startRecord = offset + 1
	}
	endRecord := request.Page * request.PageSize
	if endRecord > total {
		endRecord = total
	}

	json.NewEncoder(w).Encode(ListResponse{
		Draw:            1,
		TotalRecords:    total,
		RecordsFiltered: total,
		TotalPages:      totalPages,
		CurrentPage:     request.Page,
		StartRecord:     startRecord,
		EndRecord:       endRecord,
		PageSize:        request.PageSize,
		Results:         page,
	})
}

func (s *fakeTableServer) bulkDelete(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var request bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	drop := map[string]bool{}
	for _, id := range request.IDs {
		drop[id] = true
	}
	kept := s.rows[:0]
	var deleted int64
	for _, row := range s.rows {
		if drop[row["id"].(string)] {
			s.deleted = append(s.deleted, row["id"].(string))
			deleted++
			continue
		}
		kept = append(kept, row)
	}
	s.rows = kept
	json.NewEncoder(w).Encode(bulkDeleteResponse{Status: "Ok", Code: 200, Result: deleted})
}

func testConfig() Config {
	return Config{
		APIURL:               "/api/table/users",
		ActionURL:            "/users",
		TableID:              "ajaxtable-users-index",
		PageSize:             10,
		DefaultSortField:     "id",
		DefaultSortDirection: "asc",
	}
}

func TestClientLifecycle(t *testing.T) {
	backend := newFakeTableServer(25)
	server := httptest.NewServer(backend.handler())
	defer server.Close()
	ctx := context.Background()

	t.Run("idle until the first load", func(t *testing.T) {
		client := New(testConfig(), server.URL, NewMemoryStore())
		if client.State() != StateIdle {
			t.Errorf("state = %s, want idle", client.State())
		}
		if err := client.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if client.State() != StateRendered {
			t.Errorf("state = %s, want rendered", client.State())
		}
		if len(client.Rows()) != 10 {
			t.Errorf("rows = %d, want 10", len(client.Rows()))
		}
		if client.TotalRecords() != 25 || client.TotalPages() != 3 {
			t.Errorf("totals = %d/%d, want 25/3", client.TotalRecords(), client.TotalPages())
		}
	})

	t.Run("page navigation", func(t *testing.T) {
		client := New(testConfig(), server.URL, NewMemoryStore())
		if err := client.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if err := client.NextPage(ctx); err != nil {
			t.Fatal(err)
		}
		if client.CurrentPage() != 2 {
			t.Errorf("currentPage = %d, want 2", client.CurrentPage())
		}
		if err := client.LastPage(ctx); err != nil {
			t.Fatal(err)
		}
		start, end := client.PageBounds()
		if client.CurrentPage() != 3 || start != 21 || end != 25 {
			t.Errorf("last page = %d bounds %d-%d, want 3 bounds 21-25", client.CurrentPage(), start, end)
		}
		// already on the last page, no move possible
		if err := client.NextPage(ctx); err != nil {
			t.Fatal(err)
		}
		if client.CurrentPage() != 3 {
			t.Errorf("currentPage = %d, want 3", client.CurrentPage())
		}
		if err := client.FirstPage(ctx); err != nil {
			t.Fatal(err)
		}
		if client.CurrentPage() != 1 {
			t.Errorf("currentPage = %d, want 1", client.CurrentPage())
		}
	})

	t.Run("search resets to the first page", func(t *testing.T) {
		client := New(testConfig(), server.URL, NewMemoryStore())
		if err := client.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if err := client.LastPage(ctx); err != nil {
			t.Fatal(err)
		}
		if err := client.Search(ctx, "Row 07"); err != nil {
			t.Fatal(err)
		}
		if client.CurrentPage() != 1 {
			t.Errorf("currentPage = %d, want 1", client.CurrentPage())
		}
		if client.TotalRecords() != 1 || len(client.Rows()) != 1 {
			t.Errorf("search returned %d records", client.TotalRecords())
		}
	})

	t.Run("sort toggles direction on repeat", func(t *testing.T) {
		client := New(testConfig(), server.URL, NewMemoryStore())
		if err := client.Load(ctx); err != nil {
			t.Fatal(err)
		}
		if err := client.SortBy(ctx, "id"); err != nil {
			t.Fatal(err)
		}
		field, direction := client.SortState()
		if field != "id" || direction != "desc" {
			t.Errorf("sort = %s %s, want id desc", field, direction)
		}
		if client.Rows()[0]["id"] != "r25" {
			t.Errorf("first row = %v, want r25", client.Rows()[0]["id"])
		}
		if err := client.SortBy(ctx, "name"); err != nil {
			t.Fatal(err)
		}
		field, direction = client.SortState()
		if field != "name" || direction != "asc" {
			t.Errorf("sort = %s %s, want name asc", field, direction)
		}
	})

	t.Run("failed load renders empty", func(t *testing.T) {
		client := New(testConfig(), server.URL, NewMemoryStore())
		if err := client.Load(ctx); err != nil {
			t.Fatal(err)
		}
		backend.mu.Lock()
		backend.fail = true
		backend.mu.Unlock()
		err := client.Load(ctx)
		backend.mu.Lock()
		backend.fail = false
		backend.mu.Unlock()
		if err == nil {
			t.Fatal("expected load error")
		}
		if client.State() != StateRendered {
			t.Errorf("state = %s, want rendered", client.State())
		}
		if len(client.Rows()) != 0 || client.TotalRecords() != 0 {
			t.Errorf("failed load kept rows")
		}
		if client.LastError() == nil {
			t.Errorf("lastError not set")
		}
	})
}

func TestClientStatePersistence(t *testing.T) {
	backend := newFakeTableServer(25)
	server := httptest.NewServer(backend.handler())
	defer server.Close()
	ctx := context.Background()
	store := NewMemoryStore()

	first := New(testConfig(), server.URL, store)
	if err := first.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := first.SortBy(ctx, "name"); err != nil {
		t.Fatal(err)
	}
	if err := first.SetPageSize(ctx, 5); err != nil {
		t.Fatal(err)
	}
	if err := first.NextPage(ctx); err != nil {
		t.Fatal(err)
	}

	t.Run("persisted state supersedes markup defaults", func(t *testing.T) {
		second := New(testConfig(), server.URL, store)
		if second.PageSize() != 5 {
			t.Errorf("pageSize = %d, want 5", second.PageSize())
		}
		if second.CurrentPage() != 2 {
			t.Errorf("currentPage = %d, want 2", second.CurrentPage())
		}
		field, direction := second.SortState()
		if field != "name" || direction != "asc" {
			t.Errorf("sort = %s %s, want name asc", field, direction)
		}
	})

	t.Run("selection does not persist", func(t *testing.T) {
		first.ToggleSelect("r01")
		third := New(testConfig(), server.URL, store)
		if len(third.SelectedIDs()) != 0 {
			t.Errorf("selection persisted across instances")
		}
	})

	t.Run("clear state returns to defaults", func(t *testing.T) {
		fourth := New(testConfig(), server.URL, store)
		if err := fourth.ClearState(ctx); err != nil {
			t.Fatal(err)
		}
		if fourth.PageSize() != 10 || fourth.CurrentPage() != 1 {
			t.Errorf("cleared state = size %d page %d, want 10/1", fourth.PageSize(), fourth.CurrentPage())
		}
		field, direction := fourth.SortState()
		if field != "id" || direction != "asc" {
			t.Errorf("cleared sort = %s %s, want id asc", field, direction)
		}
	})
}

func TestClientSelectionAndExpansion(t *testing.T) {
	backend := newFakeTableServer(12)
	server := httptest.NewServer(backend.handler())
	defer server.Close()
	ctx := context.Background()

	client := New(testConfig(), server.URL, NewMemoryStore())
	if err := client.Load(ctx); err != nil {
		t.Fatal(err)
	}

	t.Run("toggle select", func(t *testing.T) {
		client.ToggleSelect("r01")
		client.ToggleSelect("r02")
		client.ToggleSelect("r01")
		ids := client.SelectedIDs()
		if len(ids) != 1 || ids[0] != "r02" {
			t.Errorf("selected = %v, want [r02]", ids)
		}
		client.ToggleSelect("r02")
	})

	t.Run("selection survives a reload", func(t *testing.T) {
		client.ToggleSelect("r03")
		if err := client.NextPage(ctx); err != nil {
			t.Fatal(err)
		}
		if ids := client.SelectedIDs(); len(ids) != 1 || ids[0] != "r03" {
			t.Errorf("selected = %v, want [r03]", ids)
		}
		client.ToggleSelect("r03")
		if err := client.FirstPage(ctx); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("toggle select all", func(t *testing.T) {
		client.ToggleSelectAll()
		if len(client.SelectedIDs()) != 10 {
			t.Errorf("selected = %d, want 10", len(client.SelectedIDs()))
		}
		client.ToggleSelectAll()
		if len(client.SelectedIDs()) != 0 {
			t.Errorf("selected = %d after deselect, want 0", len(client.SelectedIDs()))
		}
	})

	t.Run("single expansion", func(t *testing.T) {
		client.ToggleExpand("r01")
		client.ToggleExpand("r02")
		if client.ExpandedRow() != "r02" {
			t.Errorf("expanded = %s, want r02", client.ExpandedRow())
		}
		client.ToggleExpand("r02")
		if client.ExpandedRow() != "" {
			t.Errorf("expanded = %s, want none", client.ExpandedRow())
		}
	})
}

func TestClientDeleteSelected(t *testing.T) {
	backend := newFakeTableServer(12)
	server := httptest.NewServer(backend.handler())
	defer server.Close()
	ctx := context.Background()

	client := New(testConfig(), server.URL, NewMemoryStore())
	if err := client.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := client.NextPage(ctx); err != nil {
		t.Fatal(err)
	}

	client.ToggleSelect("r11")
	client.ToggleSelect("r12")
	deleted, err := client.DeleteSelected(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
	if len(client.SelectedIDs()) != 0 {
		t.Errorf("selection kept after delete")
	}
	if client.CurrentPage() != 1 {
		t.Errorf("currentPage = %d, want 1", client.CurrentPage())
	}
	if client.TotalRecords() != 10 {
		t.Errorf("totalRecords = %d, want 10", client.TotalRecords())
	}

	t.Run("empty selection is a no-op", func(t *testing.T) {
		deleted, err := client.DeleteSelected(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if deleted != 0 {
			t.Errorf("deleted = %d, want 0", deleted)
		}
	})
}

func TestClientLastRequestWins(t *testing.T) {
	arrived := make(chan struct{})
	release := make(chan struct{})
	var hits int
	var mu sync.Mutex

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		hit := hits
		mu.Unlock()
		if hit == 1 {
			close(arrived)
			<-release
		}
		json.NewEncoder(w).Encode(ListResponse{
			Draw:         1,
			TotalRecords: hit * 100,
			TotalPages:   1,
			CurrentPage:  1,
			PageSize:     10,
			Results:      []map[string]interface{}{{"id": fmt.Sprintf("hit-%d", hit)}},
		})
	}))
	defer server.Close()
	ctx := context.Background()

	client := New(testConfig(), server.URL, NewMemoryStore())
	done := make(chan error, 1)
	go func() {
		done <- client.Load(ctx)
	}()
	<-arrived

	// the second request supersedes the stalled first one
	if err := client.Load(ctx); err != nil {
		t.Fatal(err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatal(err)
	}

	if client.TotalRecords() != 200 {
		t.Errorf("totalRecords = %d, want the newer response (200)", client.TotalRecords())
	}
	if client.Rows()[0]["id"] != "hit-2" {
		t.Errorf("rows from the stale response survived")
	}
}
