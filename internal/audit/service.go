package audit

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/rosterhub-backend/pkg/db/models"
	"github.com/angelmondragon/rosterhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rosterhub-backend/pkg/errors"
	"github.com/angelmondragon/rosterhub-backend/pkg/logger"
	"github.com/angelmondragon/rosterhub-backend/pkg/pagination"
	"github.com/google/uuid"
)

// Service appends and reads the team-scoped activity history.
type Service interface {
	LogCreated(ctx context.Context, snapshot Snapshot, scope, actor string) (*Record, error)
	LogUpdated(ctx context.Context, ref EntityRef, scope, actor, summary string) (*Record, error)
	LogDeleted(ctx context.Context, snapshot Snapshot, scope, actor string) (*Record, error)
	ListByScope(ctx context.Context, scope string, filters Filters, page pagination.Params) (*ListResult, error)
}

// Filters narrows a history listing. OnDate matches the UTC calendar day.
type Filters struct {
	Search string
	OnDate *time.Time
}

// ListResult wraps returned records and the cursor for the next page.
type ListResult struct {
	Items  []Record `json:"items"`
	Cursor string   `json:"cursor"`
}

type service struct {
	repo      Repository
	directory EntityDirectory
	logg      *logger.Logger
	clock     func() time.Time
}

// NewService wires the activity log dependencies. directory may be nil, in which case only
// records with a cleared entity id are reported as orphaned.
func NewService(repo Repository, directory EntityDirectory, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "activity log repository required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{repo: repo, directory: directory, logg: logg, clock: now}, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

func (s *service) LogCreated(ctx context.Context, snapshot Snapshot, scope, actor string) (*Record, error) {
	return s.append(ctx, enums.ActivityActionCreated, snapshot, scope, actor)
}

func (s *service) LogUpdated(ctx context.Context, ref EntityRef, scope, actor, summary string) (*Record, error) {
	name := strings.TrimSpace(ref.EntityName)
	if name == "" && ref.EntityID != "" {
		latest, err := s.repo.LatestName(ctx, ref.EntityType, ref.EntityID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup entity name")
		}
		name = latest
	}
	if name == "" {
		name = ref.EntityID
	}
	return s.append(ctx, enums.ActivityActionUpdated, Snapshot{
		EntityType: ref.EntityType,
		EntityID:   ref.EntityID,
		EntityName: name,
		Details:    summary,
	}, scope, actor)
}

// LogDeleted must run while the entity row still exists so the snapshot can be read.
func (s *service) LogDeleted(ctx context.Context, snapshot Snapshot, scope, actor string) (*Record, error) {
	return s.append(ctx, enums.ActivityActionDeleted, snapshot, scope, actor)
}

func (s *service) append(ctx context.Context, action enums.ActivityAction, snapshot Snapshot, scope, actor string) (*Record, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scope required")
	}
	if strings.TrimSpace(actor) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "actor required")
	}
	if snapshot.EntityType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity type required")
	}
	if strings.TrimSpace(snapshot.EntityName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "entity name required")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate activity id")
	}
	row := &models.ActivityLog{
		ID:          id,
		TeamID:      scope,
		EntityType:  snapshot.EntityType,
		EntityName:  snapshot.EntityName,
		Action:      action,
		PerformedBy: actor,
		PerformedAt: s.clock(),
		Details:     snapshot.Details,
	}
	if snapshot.EntityID != "" {
		entityID := snapshot.EntityID
		row.EntityID = &entityID
	}

	if err := s.repo.Append(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append activity log")
	}
	record := recordFromModel(*row)
	return &record, nil
}

func (s *service) ListByScope(ctx context.Context, scope string, filters Filters, page pagination.Params) (*ListResult, error) {
	if strings.TrimSpace(scope) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "scope required")
	}

	params := listParams{
		TeamID: scope,
		Search: filters.Search,
		Limit:  pagination.NormalizeLimit(page.Limit),
	}
	if filters.OnDate != nil {
		day := filters.OnDate.UTC()
		from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
		to := from.AddDate(0, 0, 1)
		params.From, params.To = &from, &to
	}
	if page.Cursor != "" {
		cursor, err := pagination.ParseCursor(page.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		params.Cursor = cursor
	}

	rows, next, err := s.repo.ListByScope(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list activity")
	}

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		records = append(records, recordFromModel(row))
	}
	s.markOrphans(ctx, records)

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ListResult{Items: records, Cursor: cursor}, nil
}

// markOrphans flags records whose entity no longer resolves. Lookup failures leave the
// record as-is and are logged.
func (s *service) markOrphans(ctx context.Context, records []Record) {
	if s.directory == nil {
		return
	}

	idsByType := map[enums.EntityType][]string{}
	for _, record := range records {
		if record.EntityID == nil {
			continue
		}
		idsByType[record.EntityType] = append(idsByType[record.EntityType], *record.EntityID)
	}

	live := make(map[enums.EntityType]map[string]bool, len(idsByType))
	for entityType, ids := range idsByType {
		found, err := s.directory.Existing(ctx, entityType, dedupe(ids))
		if err != nil {
			logCtx := s.logg.WithField(ctx, "entity_type", entityType)
			s.logg.Warn(logCtx, "activity orphan lookup failed: "+err.Error())
			continue
		}
		live[entityType] = found
	}

	for i := range records {
		if records[i].EntityID == nil {
			continue
		}
		found, ok := live[records[i].EntityType]
		if !ok {
			continue
		}
		records[i].IsOrphaned = !found[*records[i].EntityID]
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
