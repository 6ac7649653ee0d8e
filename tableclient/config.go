package tableclient

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/html"
)

//Column mirrors the column entry of the markup configuration blob. The
//client depends on the wire contract only, never on server internals.
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

//RelatedLink composes the view target of a belongs-to column from the
//related object carried in a row: route + "/" + related id. Empty when the
//column is not a relation or the row has no related object.
func (c Column) RelatedLink(row map[string]interface{}) string {
	if c.Route == "" {
		return ""
	}
	alias := strings.TrimSuffix(c.Field, "_id")
	related, ok := row[alias].(map[string]interface{})
	if !ok {
		return ""
	}
	id, ok := related["id"].(string)
	if !ok || id == "" {
		return ""
	}
	return c.Route + "/" + id
}

//Config is the declarative table configuration carried by the data
//attributes of the rendered markup fragment. Parsed once at initialization,
//it is everything the state machine needs to drive the endpoint.
type Config struct {
	APIURL               string
	ActionURL            string
	TableID              string
	Columns              map[string]Column
	MainColumns          []string
	ExtraColumns         []string
	HasExtraColumns      bool
	PageSize             int
	DefaultSortField     string
	DefaultSortDirection string
}

//ParseConfig reads the emitted markup and extracts the configuration from
//the first element carrying a data-api attribute.
func ParseConfig(markup io.Reader) (Config, error) {
	doc, err := html.Parse(markup)
	if err != nil {
		return Config{}, errors.Wrap(err, "parse markup")
	}
	node := findConfigNode(doc)
	if node == nil {
		return Config{}, errors.New("no table configuration element in markup")
	}

	attrs := make(map[string]string, len(node.Attr))
	for _, attr := range node.Attr {
		attrs[attr.Key] = attr.Val
	}

	cfg := Config{
		APIURL:               attrs["data-api"],
		ActionURL:            attrs["data-action"],
		TableID:              attrs["data-table-id"],
		DefaultSortField:     attrs["data-default-sort-field"],
		DefaultSortDirection: attrs["data-default-sort-direction"],
		HasExtraColumns:      attrs["data-has-extra-columns"] == "1",
		Columns:              map[string]Column{},
	}
	if raw := attrs["data-columns"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.Columns); err != nil {
			return Config{}, errors.Wrap(err, "parse column map")
		}
	}
	if raw := attrs["data-main-columns"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.MainColumns); err != nil {
			return Config{}, errors.Wrap(err, "parse main columns")
		}
	}
	if raw := attrs["data-extra-columns"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.ExtraColumns); err != nil {
			return Config{}, errors.Wrap(err, "parse extra columns")
		}
	}
	if raw := attrs["data-page-size"]; raw != "" {
		if size, err := strconv.Atoi(raw); err == nil && size > 0 {
			cfg.PageSize = size
		}
	}
	if cfg.PageSize == 0 {
		cfg.PageSize = 10
	}
	if cfg.DefaultSortDirection == "" {
		cfg.DefaultSortDirection = "asc"
	}
	return cfg, nil
}

func findConfigNode(node *html.Node) *html.Node {
	if node.Type == html.ElementNode {
		for _, attr := range node.Attr {
			if attr.Key == "data-api" {
				return node
			}
		}
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findConfigNode(child); found != nil {
			return found
		}
	}
	return nil
}
