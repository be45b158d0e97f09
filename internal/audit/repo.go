package audit

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/db"
	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	"github.com/angelmondragon/rosterhub-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository appends and queries activity log rows. There is no update or delete.
type Repository interface {
	Append(ctx context.Context, row *models.ActivityLog) error
	ListByScope(ctx context.Context, params listParams) ([]models.ActivityLog, *pagination.Cursor, error)
	LatestName(ctx context.Context, entityType enums.EntityType, entityID string) (string, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an activity log repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repositoryImpl{db: conn}
}

type listParams struct {
	TeamID string
	Search string
	From   *time.Time
	To     *time.Time
	Limit  int
	Cursor *pagination.Cursor
}

func (r *repositoryImpl) Append(ctx context.Context, row *models.ActivityLog) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// ListByScope never filters on whether the entity still exists.
func (r *repositoryImpl) ListByScope(ctx context.Context, params listParams) ([]models.ActivityLog, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.ActivityLog{}).Where("team_id = ?", params.TeamID)

	if term := strings.ToLower(strings.TrimSpace(params.Search)); term != "" {
		like := "%" + escapeLike(term) + "%"
		query = query.Where(
			`(LOWER(entity_name) LIKE ? ESCAPE '\' OR LOWER(details) LIKE ? ESCAPE '\' OR LOWER(performed_by) LIKE ? ESCAPE '\')`,
			like, like, like,
		)
	}
	if params.From != nil {
		query = query.Where("performed_at >= ?", *params.From)
	}
	if params.To != nil {
		query = query.Where("performed_at < ?", *params.To)
	}
	if params.Cursor != nil {
		query = query.Where("(performed_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.ActivityLog
	if err := query.Order("performed_at DESC, id DESC").Limit(normalized + 1).Find(&rows).Error; err != nil {
		return nil, nil, err
	}
	if len(rows) > normalized {
		rows = rows[:normalized]
		last := rows[normalized-1]
		return rows, &pagination.Cursor{CreatedAt: last.PerformedAt, ID: last.ID}, nil
	}
	return rows, nil, nil
}

// LatestName returns the most recently captured label for an entity, or "" if none.
func (r *repositoryImpl) LatestName(ctx context.Context, entityType enums.EntityType, entityID string) (string, error) {
	var row models.ActivityLog
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("performed_at DESC, id DESC").
		Take(&row).Error
	if db.IsNotFound(err) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.EntityName, nil
}

func escapeLike(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(term)
}
