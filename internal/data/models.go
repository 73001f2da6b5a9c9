package data

import (
	"errors"

	"github.com/lib/pq"

	"github.com/ledgerline/transfer-engine-backend/db"
)

var (
	ErrRecordNotFound          = errors.New("record not found")
	ErrRecordAlreadyExists     = errors.New("record already exists")
	ErrMismatchNumRowsAffected = errors.New("mismatch number of rows affected")
	ErrMissingInput            = errors.New("missing input")
)

type Models struct {
	Accounts         *AccountModel
	Transfers        *TransferModel
	BalanceMutations *BalanceMutationModel
	DBConnectionPool db.DBConnectionPool
}

func NewModels(dbConnectionPool db.DBConnectionPool) (*Models, error) {
	if dbConnectionPool == nil {
		return nil, errors.New("dbConnectionPool is required for NewModels")
	}
	return &Models{
		Accounts:         &AccountModel{dbConnectionPool: dbConnectionPool},
		Transfers:        &TransferModel{dbConnectionPool: dbConnectionPool},
		BalanceMutations: &BalanceMutationModel{dbConnectionPool: dbConnectionPool},
		DBConnectionPool: dbConnectionPool,
	}, nil
}

const pqUniqueViolationCode = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolationCode
}
