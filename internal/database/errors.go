package database

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	mssql "github.com/microsoft/go-mssqldb"

	"github.com/watchtowerx/beacon/internal/probe"
)

// Class is the coarse category of a database error.
type Class int

const (
	ClassOther Class = iota
	ClassPermission
	ClassAuth
)

func (c Class) String() string {
	switch c {
	case ClassPermission:
		return "permission"
	case ClassAuth:
		return "auth"
	default:
		return "other"
	}
}

// Server error numbers and SQLSTATE codes that mean access was refused.
var (
	mysqlPermission = map[uint16]bool{1044: true, 1142: true, 1143: true, 1227: true}
	mysqlAuth       = map[uint16]bool{1045: true, 1698: true}

	pgPermission = map[string]bool{"42501": true}
	pgAuth       = map[string]bool{"28000": true, "28P01": true}

	mssqlPermission = map[int32]bool{229: true, 230: true, 262: true, 297: true, 300: true}
	mssqlAuth       = map[int32]bool{18456: true, 18452: true}
)

// Classify inspects typed driver errors first and falls back to matching the
// message text. The text fallback is fragile across drivers and server
// locales; it is only reached for errors no driver type recognizes.
func Classify(err error) Class {
	if err == nil {
		return ClassOther
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch {
		case mysqlPermission[myErr.Number]:
			return ClassPermission
		case mysqlAuth[myErr.Number]:
			return ClassAuth
		}
		return ClassOther
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgPermission[pgErr.Code]:
			return ClassPermission
		case pgAuth[pgErr.Code]:
			return ClassAuth
		}
		return ClassOther
	}

	if number, ok := mssqlNumber(err); ok {
		switch {
		case mssqlPermission[number]:
			return ClassPermission
		case mssqlAuth[number]:
			return ClassAuth
		}
		return ClassOther
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "permission was denied"),
		strings.Contains(msg, "permission denied"),
		strings.Contains(msg, "access denied"),
		strings.Contains(msg, "insufficient privilege"):
		return ClassPermission
	case strings.Contains(msg, "login failed"),
		strings.Contains(msg, "authentication failed"):
		return ClassAuth
	}
	return ClassOther
}

func mssqlNumber(err error) (int32, bool) {
	var byValue mssql.Error
	if errors.As(err, &byValue) {
		return byValue.Number, true
	}
	var byPtr *mssql.Error
	if errors.As(err, &byPtr) {
		return byPtr.Number, true
	}
	return 0, false
}

// Denied reports whether err is a permission or authentication refusal.
func Denied(err error) bool {
	c := Classify(err)
	return c == ClassPermission || c == ClassAuth
}

// Reason maps a query error onto a probe reason.
func Reason(err error) probe.Reason {
	if err == nil {
		return probe.ReasonOK
	}
	if Denied(err) {
		return probe.ReasonDenied
	}
	return probe.Classify(err)
}
