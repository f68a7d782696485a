package entity

import "errors"

var (
	ErrInvalidConfig          = errors.New("invalid configuration")
	ErrFetchFailed            = errors.New("fetch failed")
	ErrInvalidAddress         = errors.New("invalid address")
	ErrStorage                = errors.New("storage error")
	ErrTransferFailed         = errors.New("transfer failed")
	ErrTemplateNotFound       = errors.New("template not found")
	ErrSubstitutionIncomplete = errors.New("substitution incomplete")
	ErrRender                 = errors.New("render failed")
	ErrReloadFailed           = errors.New("reload failed")
	ErrBusy                   = errors.New("another invocation is in progress")
	ErrRecordMismatch         = errors.New("published record does not match")
)

// Ordered so that a more specific cause wins when an error wraps several kinds.
var exitCodes = []struct {
	err  error
	code ExitCode
}{
	{ErrInvalidConfig, ExitInvalidConfig},
	{ErrBusy, ExitBusy},
	{ErrInvalidAddress, ExitInvalidAddress},
	{ErrFetchFailed, ExitFetchFailed},
	{ErrStorage, ExitStorage},
	{ErrTransferFailed, ExitTransferFailed},
	{ErrTemplateNotFound, ExitTemplateNotFound},
	{ErrSubstitutionIncomplete, ExitSubstitutionIncomplete},
	{ErrRender, ExitRender},
	{ErrReloadFailed, ExitReloadFailed},
	{ErrRecordMismatch, ExitRecordMismatch},
}

// ExitCodeOf maps an error returned by a workflow to the process exit status.
func ExitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitOK
	}
	for _, c := range exitCodes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return ExitFailure
}
