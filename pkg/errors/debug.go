package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrorDump flattens an error chain for structured logging. DB fields are only
// populated when a postgres driver error sits somewhere in the chain.
type ErrorDump struct {
	TopMessage string   `json:"top_message"`
	Code       Code     `json:"code,omitempty"`
	Chain      []string `json:"chain,omitempty"`
	Gorm       string   `json:"gorm,omitempty"`
	DB         DBError  `json:"db,omitempty"`
}

// DBError carries the postgres diagnostics shared by pgx and lib/pq.
type DBError struct {
	Code       string `json:"code,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

var gormSentinels = []error{
	gorm.ErrRecordNotFound,
	gorm.ErrDuplicatedKey,
	gorm.ErrForeignKeyViolated,
	gorm.ErrInvalidTransaction,
	gorm.ErrNotImplemented,
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}
	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}
	for _, sentinel := range gormSentinels {
		if errors.Is(err, sentinel) {
			d.Gorm = sentinel.Error()
			break
		}
	}
	d.DB = dbErrorFrom(err)
	return d
}

func dbErrorFrom(err error) DBError {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return DBError{
			Code:       pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return DBError{
			Code:       string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}
	return DBError{}
}
