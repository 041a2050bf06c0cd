package exception

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
)

// ClassifyDBError wraps a database error as a BatchError.
// Session-level failures (dial errors, broken connections, cancelled contexts,
// SQLSTATE classes 08, 53 and 57P) become KindConnectivity; anything else gets fallback.
// Errors that are already BatchErrors are returned unchanged.
func ClassifyDBError(module, message string, err error, fallback Kind) error {
	if err == nil {
		return nil
	}
	if be, ok := AsBatchError(err); ok {
		return be
	}
	kind := fallback
	if isConnectivityError(err) {
		kind = KindConnectivity
	}
	return NewBatchError(module, message, err, kind)
}

func isConnectivityError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, mysql.ErrInvalidConn) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") ||
			strings.HasPrefix(pgErr.Code, "53") ||
			strings.HasPrefix(pgErr.Code, "57P")
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
