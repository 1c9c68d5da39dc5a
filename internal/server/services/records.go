package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/dmitrijs2005/finkeeper/internal/common"
	"github.com/dmitrijs2005/finkeeper/internal/dbx"
	"github.com/dmitrijs2005/finkeeper/internal/server/models"
	"github.com/dmitrijs2005/finkeeper/internal/server/repositories/repomanager"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// RecordService stores the finance records of a user. Payloads are checked
// against the collection's schema and normalized before they are saved;
// every change bumps the owner's version counter in the same transaction.
type RecordService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	validate    *validator.Validate
	newID       func() string
}

func NewRecordService(db *sql.DB, m repomanager.RepositoryManager) *RecordService {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &RecordService{db: db, repomanager: m, validate: v, newID: uuid.NewString}
}

// ParseCollection maps a wire name to a collection.
func ParseCollection(name string) (models.Collection, error) {
	c := models.Collection(name)
	if models.NewPayload(c) == nil {
		return "", fmt.Errorf("%w: %q", common.ErrUnknownCollection, name)
	}
	return c, nil
}

func (s *RecordService) List(ctx context.Context, userID string, c models.Collection) ([]map[string]any, error) {
	recs, err := s.repomanager.Records(s.db).List(ctx, userID, c)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Fields())
	}
	return out, nil
}

func (s *RecordService) Get(ctx context.Context, userID string, c models.Collection, id string) (*models.Record, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, common.ErrorNotFound
	}
	return s.repomanager.Records(s.db).Get(ctx, userID, c, id)
}

// Create assigns a server id and returns the stored record.
func (s *RecordService) Create(ctx context.Context, userID string, c models.Collection, data map[string]any) (map[string]any, error) {
	payload, err := s.normalize(c, data)
	if err != nil {
		return nil, err
	}

	rec := &models.Record{ID: s.newID(), UserID: userID, Collection: c, Data: payload}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		v, err := s.repomanager.Users(tx).IncrementCurrentVersion(ctx, userID)
		if err != nil {
			return err
		}
		rec.Version = v
		return s.repomanager.Records(tx).Create(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("error creating record: %w", err)
	}
	return rec.Fields(), nil
}

// Update replaces the record's payload with data.
func (s *RecordService) Update(ctx context.Context, userID string, c models.Collection, id string, data map[string]any) (map[string]any, error) {
	if err := uuid.Validate(id); err != nil {
		return nil, common.ErrorNotFound
	}
	payload, err := s.normalize(c, data)
	if err != nil {
		return nil, err
	}

	rec := &models.Record{ID: id, UserID: userID, Collection: c, Data: payload}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		v, err := s.repomanager.Users(tx).IncrementCurrentVersion(ctx, userID)
		if err != nil {
			return err
		}
		rec.Version = v
		return s.repomanager.Records(tx).Update(ctx, rec)
	})
	if err != nil {
		return nil, fmt.Errorf("error updating record: %w", err)
	}
	return rec.Fields(), nil
}

func (s *RecordService) Delete(ctx context.Context, userID string, c models.Collection, id string) error {
	if err := uuid.Validate(id); err != nil {
		return common.ErrorNotFound
	}
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := s.repomanager.Users(tx).IncrementCurrentVersion(ctx, userID); err != nil {
			return err
		}
		return s.repomanager.Records(tx).Delete(ctx, userID, c, id)
	})
	if err != nil {
		return fmt.Errorf("error deleting record: %w", err)
	}
	return nil
}

// normalize decodes data into the collection's payload type, validates it
// and encodes it back, dropping unknown fields and any id.
func (s *RecordService) normalize(c models.Collection, data map[string]any) (map[string]any, error) {
	payload := models.NewPayload(c)
	if payload == nil {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownCollection, c)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if err := json.Unmarshal(raw, payload); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if err := s.validate.Struct(payload); err != nil {
		return nil, formatValidationError(err)
	}

	raw, err = json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func formatValidationError(err error) error {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%w: %s", common.ErrValidation, strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Field()
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "len":
		return fmt.Sprintf("%s must be %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
