package idemledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	dbpkg "github.com/motogo-vn/motogo-payments/pkg/db"
	"github.com/motogo-vn/motogo-payments/pkg/db/models"
	"github.com/motogo-vn/motogo-payments/pkg/enums"
	pkgerrors "github.com/motogo-vn/motogo-payments/pkg/errors"
	"github.com/motogo-vn/motogo-payments/pkg/logger"
)

// Service is the idempotency ledger. Callers run Ensure before any
// externally visible work and close the attempt with exactly one of
// MarkSucceeded or MarkFailed, all inside the caller's transaction. The
// ledger records outcomes; it never wraps the caller's logic.
type Service interface {
	Ensure(ctx context.Context, tx *gorm.DB, scope, key string) (*models.IdempotencyKeyRecord, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, scope, key string, result any) error
	MarkFailed(ctx context.Context, tx *gorm.DB, scope, key, reason string) error
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("idempotency repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// Ensure claims the (scope, key) pair for processing. A prior SUCCEEDED row
// is permanently terminal and yields ALREADY_PROCESSED; a FAILED row is reset
// to PENDING so the attempt can be retried. Rows are never deleted.
func (s *service) Ensure(ctx context.Context, tx *gorm.DB, scope, key string) (*models.IdempotencyKeyRecord, error) {
	if scope == "" || key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "idempotency scope and key required")
	}

	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, scope, key)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency key")
		}
		record = &models.IdempotencyKeyRecord{
			Scope:  scope,
			Key:    key,
			Status: enums.IdempotencyStatusPending,
		}
		createErr := repo.Create(ctx, record)
		if createErr == nil {
			return record, nil
		}
		if !dbpkg.IsUniqueViolation(createErr, "ux_idempotency_scope_key") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create idempotency key")
		}
		// Lost the insert race; the winner's row decides the outcome.
		record, err = repo.FindForUpdate(ctx, scope, key)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload idempotency key")
		}
	}

	switch record.Status {
	case enums.IdempotencyStatusSucceeded:
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyProcessed,
			fmt.Sprintf("key already processed for scope %s", scope))
	case enums.IdempotencyStatusFailed:
		updates := map[string]any{"status": enums.IdempotencyStatusPending}
		if err := repo.Update(ctx, record.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reset failed idempotency key")
		}
		record.Status = enums.IdempotencyStatusPending
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"scope": scope,
			"key":   key,
		}), "retrying previously failed idempotency key")
	}
	return record, nil
}

// MarkSucceeded records the terminal success of the attempt, optionally
// storing the result blob for replay responses.
func (s *service) MarkSucceeded(ctx context.Context, tx *gorm.DB, scope, key string, result any) error {
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, scope, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "idempotency key not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency key")
	}
	if record.Status == enums.IdempotencyStatusSucceeded {
		return nil
	}

	updates := map[string]any{
		"status":     enums.IdempotencyStatusSucceeded,
		"last_error": nil,
	}
	if result != nil {
		encoded, marshalErr := json.Marshal(result)
		if marshalErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, marshalErr, "encode idempotency context")
		}
		updates["context"] = json.RawMessage(encoded)
	}
	if err := repo.Update(ctx, record.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark idempotency key succeeded")
	}
	return nil
}

// MarkFailed records a failed attempt. A SUCCEEDED row is never downgraded.
func (s *service) MarkFailed(ctx context.Context, tx *gorm.DB, scope, key, reason string) error {
	repo := s.repo.WithTx(tx)
	record, err := repo.FindForUpdate(ctx, scope, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "idempotency key not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency key")
	}
	if record.Status == enums.IdempotencyStatusSucceeded {
		return nil
	}

	updates := map[string]any{
		"status":     enums.IdempotencyStatusFailed,
		"last_error": reason,
	}
	if err := repo.Update(ctx, record.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark idempotency key failed")
	}
	return nil
}
