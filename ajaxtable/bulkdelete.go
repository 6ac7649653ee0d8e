package ajaxtable

import (
	"github.com/ajaxtable/go_ajaxtable/database"
	"github.com/ajaxtable/go_ajaxtable/logger"
	"github.com/pkg/errors"
)

//BulkDelete removes the given primary keys from a table in one statement and
//returns the number of rows deleted. An empty id set is a no-op, not an
//error. When the target is the identity table the acting identity's own id is
//always filtered out first - deleting oneself through this path is never
//permitted, no matter who put the id in the list.
func BulkDelete(table string, ids []string, actingID string) (int64, error) {
	if !database.TableKnown(table) {
		return 0, errors.Errorf("unknown table %s", table)
	}
	if len(ids) == 0 {
		return 0, nil
	}

	if actingID != "" && table == database.IdentityTable() {
		kept := make([]string, 0, len(ids))
		for _, id := range ids {
			if id == actingID {
				logger.Log.Warning("Bulk delete skipped own identity: ", actingID)
				continue
			}
			kept = append(kept, id)
		}
		ids = kept
	}
	if len(ids) == 0 {
		return 0, nil
	}

	return database.DeleteRowsIn(table, ids)
}
