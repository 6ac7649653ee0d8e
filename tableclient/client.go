package tableclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
)

//State is the render lifecycle of one table instance.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateRendered
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateRendered:
		return "rendered"
	default:
		return "idle"
	}
}

//request and response shapes of the list endpoint
type listRequest struct {
	Search    string `json:"search"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	Page      int    `json:"page"`
	PageSize  int    `json:"pageSize"`
}

type ListResponse struct {
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

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

type bulkDeleteResponse struct {
	Status string `json:"status"`
	Code   int    `json:"code"`
	Result int64  `json:"result"`
}

//TableState is the session-persisted slice of the view state. Selection and
//expansion always start empty and are never persisted.
type TableState struct {
	PageSize      int    `json:"pageSize"`
	CurrentPage   int    `json:"currentPage"`
	SortField     string `json:"sortField"`
	SortDirection string `json:"sortDirection"`
}

//Store is the session-scoped storage the client persists view state into,
//keyed by the table id.
type Store interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Delete(key string)
}

type MemoryStore struct {
	mu    sync.RWMutex
	items map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string][]byte{}}
}

func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.items[key]
	return data, ok
}

func (s *MemoryStore) Set(key string, value []byte) {
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

func (s *MemoryStore) Delete(key string) {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

//Client is the table state machine: idle -> loading -> rendered, re-entering
//loading on search, sort, page navigation, page size change or reset. Every
//transition issues exactly one request carrying the full parameter set and
//the response replaces the rendered row set wholesale. Requests carry a
//sequence number; a response arriving for a superseded sequence is discarded
//so the newest request always wins.
type Client struct {
	cfg        Config
	baseURL    string
	httpClient *http.Client
	store      Store

	mu            sync.Mutex
	state         State
	searchTerm    string
	sortField     string
	sortDirection string
	currentPage   int
	pageSize      int

	totalRecords int
	totalPages   int
	startRecord  int
	endRecord    int
	rows         []map[string]interface{}

	selectedRows map[string]struct{}
	expandedRow  string

	seq       uint64
	lastError error
}

func New(cfg Config, baseURL string, store Store) *Client {
	c := &Client{
		cfg:           cfg,
		baseURL:       baseURL,
		httpClient:    &http.Client{Timeout: 30 * time.Second},
		store:         store,
		state:         StateIdle,
		sortField:     cfg.DefaultSortField,
		sortDirection: cfg.DefaultSortDirection,
		currentPage:   1,
		pageSize:      cfg.PageSize,
		selectedRows:  map[string]struct{}{},
	}
	c.restoreState()
	return c
}

//NewFromMarkup builds a client straight from a rendered fragment.
func NewFromMarkup(markup *bytes.Reader, baseURL string, store Store) (*Client, error) {
	cfg, err := ParseConfig(markup)
	if err != nil {
		return nil, err
	}
	return New(cfg, baseURL, store), nil
}

//restoreState reads the persisted view state back, superseding the markup
//defaults for pagination and sort only.
func (c *Client) restoreState() {
	if c.store == nil {
		return
	}
	data, ok := c.store.Get(c.cfg.TableID)
	if !ok {
		return
	}
	var state TableState
	if err := json.Unmarshal(data, &state); err != nil {
		return
	}
	if state.PageSize > 0 {
		c.pageSize = state.PageSize
	}
	if state.CurrentPage > 0 {
		c.currentPage = state.CurrentPage
	}
	if state.SortField != "" {
		c.sortField = state.SortField
	}
	if state.SortDirection != "" {
		c.sortDirection = state.SortDirection
	}
}

func (c *Client) saveState() {
	if c.store == nil {
		return
	}
	data, err := json.Marshal(TableState{
		PageSize:      c.pageSize,
		CurrentPage:   c.currentPage,
		SortField:     c.sortField,
		SortDirection: c.sortDirection,
	})
	if err != nil {
		return
	}
	c.store.Set(c.cfg.TableID, data)
}

//Load issues one request for the current parameter set. A load failure
//renders an empty table, not an error page: the rows clear, the totals zero
//and the state still settles on rendered.
func (c *Client) Load(ctx context.Context) error {
	c.mu.Lock()
	c.state = StateLoading
	c.seq++
	seq := c.seq
	request := listRequest{
		Search:    c.searchTerm,
		Sort:      c.sortField,
		Direction: c.sortDirection,
		Page:      c.currentPage,
		PageSize:  c.pageSize,
	}
	c.mu.Unlock()

	response, err := c.postList(ctx, request)

	c.mu.Lock()
	defer c.mu.Unlock()
	if seq != c.seq {
		// a newer request went out while this one was in flight
		return nil
	}
	c.state = StateRendered
	if err != nil {
		c.rows = []map[string]interface{}{}
		c.totalRecords = 0
		c.totalPages = 0
		c.startRecord = 0
		c.endRecord = 0
		c.lastError = err
		c.saveState()
		return err
	}
	c.lastError = nil
	c.rows = response.Results
	if c.rows == nil {
		c.rows = []map[string]interface{}{}
	}
	c.totalRecords = response.TotalRecords
	c.totalPages = response.TotalPages
	c.startRecord = response.StartRecord
	c.endRecord = response.EndRecord
	c.saveState()
	return nil
}

func (c *Client) postList(ctx context.Context, request listRequest) (ListResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return ListResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.cfg.APIURL, bytes.NewReader(body))
	if err != nil {
		return ListResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return ListResponse{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ListResponse{}, errors.Errorf("list request failed: %s", resp.Status)
	}
	var out ListResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return ListResponse{}, err
	}
	return out, nil
}

//Search resets to the first page and reloads with the new term.
func (c *Client) Search(ctx context.Context, term string) error {
	c.mu.Lock()
	c.searchTerm = term
	c.currentPage = 1
	c.mu.Unlock()
	return c.Load(ctx)
}

//SortBy toggles direction when the field is already active, else sorts the
//new field ascending. Always returns to the first page.
func (c *Client) SortBy(ctx context.Context, field string) error {
	c.mu.Lock()
	if c.sortField == field {
		if c.sortDirection == "asc" {
			c.sortDirection = "desc"
		} else {
			c.sortDirection = "asc"
		}
	} else {
		c.sortField = field
		c.sortDirection = "asc"
	}
	c.currentPage = 1
	c.mu.Unlock()
	return c.Load(ctx)
}

func (c *Client) FirstPage(ctx context.Context) error {
	c.mu.Lock()
	if c.currentPage == 1 {
		c.mu.Unlock()
		return nil
	}
	c.currentPage = 1
	c.mu.Unlock()
	return c.Load(ctx)
}

func (c *Client) PreviousPage(ctx context.Context) error {
	c.mu.Lock()
	if c.currentPage <= 1 {
		c.mu.Unlock()
		return nil
	}
	c.currentPage--
	c.mu.Unlock()
	return c.Load(ctx)
}

func (c *Client) NextPage(ctx context.Context) error {
	c.mu.Lock()
	if c.currentPage >= c.totalPages {
		c.mu.Unlock()
		return nil
	}
	c.currentPage++
	c.mu.Unlock()
	return c.Load(ctx)
}

func (c *Client) LastPage(ctx context.Context) error {
	c.mu.Lock()
	if c.currentPage == c.totalPages || c.totalPages == 0 {
		c.mu.Unlock()
		return nil
	}
	c.currentPage = c.totalPages
	c.mu.Unlock()
	return c.Load(ctx)
}

func (c *Client) SetPageSize(ctx context.Context, size int) error {
	if size <= 0 {
		return errors.New("page size must be positive")
	}
	c.mu.Lock()
	c.pageSize = size
	c.currentPage = 1
	c.mu.Unlock()
	return c.Load(ctx)
}

//ClearState drops the persisted view state, resets every parameter to the
//markup defaults, empties selection and expansion, and reloads.
func (c *Client) ClearState(ctx context.Context) error {
	c.mu.Lock()
	if c.store != nil {
		c.store.Delete(c.cfg.TableID)
	}
	c.searchTerm = ""
	c.sortField = c.cfg.DefaultSortField
	c.sortDirection = c.cfg.DefaultSortDirection
	c.currentPage = 1
	c.pageSize = c.cfg.PageSize
	c.selectedRows = map[string]struct{}{}
	c.expandedRow = ""
	c.mu.Unlock()
	return c.Load(ctx)
}

//ToggleSelect flips one row in or out of the selection. Selection survives
//reloads until cleared or used for a bulk delete.
func (c *Client) ToggleSelect(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.selectedRows[id]; ok {
		delete(c.selectedRows, id)
	} else {
		c.selectedRows[id] = struct{}{}
	}
}

//ToggleSelectAll selects every currently rendered row, or deselects them all
//when they are all selected already.
func (c *Client) ToggleSelectAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	allSelected := len(c.rows) > 0
	for _, row := range c.rows {
		id, _ := row["id"].(string)
		if _, ok := c.selectedRows[id]; !ok {
			allSelected = false
			break
		}
	}
	for _, row := range c.rows {
		id, ok := row["id"].(string)
		if !ok {
			continue
		}
		if allSelected {
			delete(c.selectedRows, id)
		} else {
			c.selectedRows[id] = struct{}{}
		}
	}
}

func (c *Client) SelectedIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.selectedRows))
	for id := range c.selectedRows {
		ids = append(ids, id)
	}
	return ids
}

//ToggleExpand opens the overflow row for one key, closing any other. At most
//one row is expanded at a time.
func (c *Client) ToggleExpand(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.expandedRow == key {
		c.expandedRow = ""
	} else {
		c.expandedRow = key
	}
}

func (c *Client) ExpandedRow() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expandedRow
}

//DeleteSelected posts the selected ids to the bulk delete endpoint and
//reloads from the first page on success. The selection is cleared either
//way: on failure the rows stay undeleted but nothing remains selected.
func (c *Client) DeleteSelected(ctx context.Context) (int64, error) {
	c.mu.Lock()
	ids := make([]string, 0, len(c.selectedRows))
	for id := range c.selectedRows {
		ids = append(ids, id)
	}
	c.selectedRows = map[string]struct{}{}
	c.mu.Unlock()
	if len(ids) == 0 {
		return 0, nil
	}

	body, err := json.Marshal(bulkDeleteRequest{IDs: ids})
	if err != nil {
		return 0, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.cfg.APIURL+"/bulkdelete", bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("bulk delete failed: %s", resp.Status)
	}
	var out bulkDeleteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.currentPage = 1
	c.mu.Unlock()
	if err := c.Load(ctx); err != nil {
		return out.Result, err
	}
	return out.Result, nil
}

func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) Rows() []map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows
}

func (c *Client) CurrentPage() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentPage
}

func (c *Client) TotalRecords() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalRecords
}

func (c *Client) TotalPages() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalPages
}

func (c *Client) PageBounds() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.startRecord, c.endRecord
}

func (c *Client) SortState() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sortField, c.sortDirection
}

func (c *Client) PageSize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pageSize
}

func (c *Client) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastError
}
