package audit

import (
	"context"
	"fmt"
	"regexp"

	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"gorm.io/gorm"
)

// EntityDirectory answers which entity ids still have a live row.
type EntityDirectory interface {
	Existing(ctx context.Context, entityType enums.EntityType, ids []string) (map[string]bool, error)
}

var tableNameRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*(\.[a-z_][a-z0-9_]*)?$`)

// TableDirectory resolves ids against the owning table of each entity type. The tables
// must live in the same database as the activity log.
type TableDirectory struct {
	db     *gorm.DB
	tables map[enums.EntityType]string
}

// NewTableDirectory maps entity types (player, team, ...) to table names.
func NewTableDirectory(conn *gorm.DB, tables map[string]string) (*TableDirectory, error) {
	if conn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "entity directory db required")
	}
	mapped := make(map[enums.EntityType]string, len(tables))
	for entityType, table := range tables {
		if !tableNameRe.MatchString(table) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid table name %q for entity type %q", table, entityType))
		}
		mapped[enums.EntityType(entityType)] = table
	}
	return &TableDirectory{db: conn, tables: mapped}, nil
}

func (d *TableDirectory) Existing(ctx context.Context, entityType enums.EntityType, ids []string) (map[string]bool, error) {
	table, ok := d.tables[entityType]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no table configured for entity type "+string(entityType))
	}
	found := make(map[string]bool, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	var live []string
	if err := d.db.WithContext(ctx).Table(table).Where("id IN ?", ids).Pluck("id", &live).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve "+string(entityType)+" ids")
	}
	for _, id := range live {
		found[id] = true
	}
	return found, nil
}
