package ajaxtable

import (
	"crypto/md5"
	"encoding/hex"
	"strconv"
	"strings"
)

//Params is the full request parameter bag of one table load. It is built per
//request from client input merged over the server defaults and fully
//determines the cache key.
type Params struct {
	Draw      int    `json:"draw"`
	Search    string `json:"search"`
	Sort      string `json:"sort"`
	Direction string `json:"direction"`
	Page      int    `json:"page"`
	PageSize  int    `json:"pageSize"`
}

//Normalize clamps invalid input to the configured defaults instead of
//rejecting it. Unknown or unsortable sort fields fall back to the default
//order (primary key descending).
func (p *Params) Normalize(columns []Column, defaultPageSize int) {
	if p.Draw < 1 {
		p.Draw = 1
	}
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize <= 0 {
		p.PageSize = defaultPageSize
	}
	p.Direction = strings.ToLower(p.Direction)
	if p.Direction != "asc" && p.Direction != "desc" {
		p.Direction = "asc"
	}
	if p.Sort != "" {
		col := findColumn(columns, p.Sort)
		if col == nil || !col.Sortable {
			p.Sort = ""
		}
	}
}

//CacheKey builds the deterministic key for one table and parameter set. The
//fields are serialized in a fixed order so equal params always hash equal.
func (p Params) CacheKey(table string) string {
	var b strings.Builder
	b.WriteString("search=" + p.Search)
	b.WriteString("|sort=" + p.Sort)
	b.WriteString("|direction=" + p.Direction)
	b.WriteString("|page=" + strconv.Itoa(p.Page))
	b.WriteString("|pageSize=" + strconv.Itoa(p.PageSize))
	sum := md5.Sum([]byte(b.String()))
	return "ajaxtable_" + table + "_" + hex.EncodeToString(sum[:])
}
