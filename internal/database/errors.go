package database

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"
)

type ErrorClass int

const (
	ErrorClassPermanent ErrorClass = iota
	ErrorClassUniqueViolation
	ErrorClassForeignKeyViolation
	ErrorClassCheckViolation
	ErrorClassLockTimeout
)

func ClassifyError(err error) ErrorClass {
	if err == nil {
		return ErrorClassPermanent
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			return ErrorClassUniqueViolation
		case "23503":
			return ErrorClassForeignKeyViolation
		case "23514", "23502":
			return ErrorClassCheckViolation
		case "55P03":
			return ErrorClassLockTimeout
		}
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrorClassPermanent
	}

	return ErrorClassPermanent
}

func IsUniqueViolation(err error) bool {
	return ClassifyError(err) == ErrorClassUniqueViolation
}

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrDuplicateEmail  = errors.New("email already registered")
)
