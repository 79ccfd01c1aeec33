package delivery

import (
	"strings"

	"github.com/jackc/pgx/v5"
)

// DefaultQueueTable is the queue created by the newsletter migrations.
var DefaultQueueTable = pgx.Identifier{"public", "issue_delivery_queue"}

func TableLabel(table pgx.Identifier) string {
	return strings.Join(table, ".")
}
