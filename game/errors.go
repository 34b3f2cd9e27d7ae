package game

import "errors"

var (
	ErrUnauthorized        = errors.New("not signed in")
	ErrForbidden           = errors.New("not allowed for this seat")
	ErrInvalidState        = errors.New("action not allowed in the current match status")
	ErrInvalidInput        = errors.New("invalid parameters")
	ErrNotFound            = errors.New("not found")
	ErrOutOfOrder          = errors.New("card is lower than one already played")
	ErrInsufficientPlayers = errors.New("at least two players are needed to start")
	ErrMaxLevelReached     = errors.New("already at the last level")
	ErrNoResourceAvailable = errors.New("no shuriken left")
	ErrStorageFailure      = errors.New("storage failure")
	ErrConflict            = errors.New("match changed since it was last read")
	ErrMatchFull           = errors.New("match is full")
	ErrAlreadySeated       = errors.New("already seated in this match")
)

var codes = []struct {
	err  error
	code string
}{
	{ErrUnauthorized, "Unauthorized"},
	{ErrForbidden, "Forbidden"},
	{ErrInvalidState, "InvalidState"},
	{ErrInvalidInput, "InvalidInput"},
	{ErrNotFound, "NotFound"},
	{ErrOutOfOrder, "OutOfOrder"},
	{ErrInsufficientPlayers, "InsufficientPlayers"},
	{ErrMaxLevelReached, "MaxLevelReached"},
	{ErrNoResourceAvailable, "NoResourceAvailable"},
	{ErrConflict, "Conflict"},
	{ErrMatchFull, "MatchFull"},
	{ErrAlreadySeated, "AlreadySeated"},
	{ErrStorageFailure, "StorageFailure"},
}

// Code maps err to its taxonomy name. Anything unrecognized is a storage failure.
func Code(err error) string {
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "StorageFailure"
}

// IsRuleError reports whether err is a validation outcome rather than an
// infrastructure failure.
func IsRuleError(err error) bool {
	for _, c := range codes {
		if c.err != ErrStorageFailure && errors.Is(err, c.err) {
			return true
		}
	}
	return false
}
