package storage

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/turnly/turnly/services/booking-service/internal/apperr"
)

const (
	codeExclusionViolation  = "23P01"
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeInvalidText         = "22P02"
)

// classify maps a driver error onto the apperr taxonomy. notFound is used for
// missing rows and malformed ids; nil means the caller expected no such case.
func classify(err error, notFound *apperr.Error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperr.Transient("the request took too long, please try again", err)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if notFound != nil {
			return notFound.WithError(err)
		}
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeExclusionViolation:
			return apperr.ErrSlotTaken.WithError(err)
		case codeInvalidText:
			if notFound != nil {
				return notFound.WithError(err)
			}
			return apperr.Validation("invalid_id", "malformed identifier").WithError(err)
		case codeForeignKeyViolation:
			return apperr.Validation("invalid_reference", "referenced record does not exist").WithError(err)
		case codeUniqueViolation:
			return apperr.Conflict("duplicate", "a record with the same key already exists").WithError(err)
		}
		switch pgErr.Code[:2] {
		case "08", "40", "53", "57":
			// connection, rollback, resources, operator intervention
		default:
			return err
		}
	}
	return apperr.Transient("the booking database is unavailable, please try again", err)
}

func IsConflict(err error) bool {
	return apperr.IsKind(err, apperr.KindConflict)
}

func IsNotFound(err error) bool {
	return apperr.IsKind(err, apperr.KindNotFound)
}
