package database

import "sync"

//TableInfo describes a table the dashboard is allowed to list. The registry
//doubles as the whitelist that keeps request-supplied table names out of raw
//sql, and it carries the display field used when the table is the target of a
//belongs-to relation.
type TableInfo struct {
	Name         string
	DisplayField string
	Identity     bool
}

var registryMu sync.RWMutex

var tableRegistry = map[string]TableInfo{
	"users":         {Name: "users", DisplayField: "name", Identity: true},
	"sessions":      {Name: "sessions", DisplayField: "id"},
	"activities":    {Name: "activities", DisplayField: "url"},
	"auth_requests": {Name: "auth_requests", DisplayField: "email"},
}

func TableKnown(table string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := tableRegistry[table]
	return ok
}

func GetTableInfo(table string) (TableInfo, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	info, ok := tableRegistry[table]
	return info, ok
}

//IdentityTable returns the table holding the acting identities, empty when
//none is registered.
func IdentityTable() string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	for name := range tableRegistry {
		if tableRegistry[name].Identity {
			return name
		}
	}
	return ""
}

func RegisterTable(info TableInfo) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if info.DisplayField == "" {
		info.DisplayField = "id"
	}
	tableRegistry[info.Name] = info
}

func KnownTables() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(tableRegistry))
	for name := range tableRegistry {
		names = append(names, name)
	}
	return names
}
