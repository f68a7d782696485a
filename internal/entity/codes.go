package entity

type ExitCode int

const (
	ExitOK                     ExitCode = 0
	ExitFailure                ExitCode = 1
	ExitInvalidConfig          ExitCode = 2
	ExitFetchFailed            ExitCode = 10
	ExitInvalidAddress         ExitCode = 11
	ExitStorage                ExitCode = 12
	ExitTransferFailed         ExitCode = 13
	ExitTemplateNotFound       ExitCode = 14
	ExitSubstitutionIncomplete ExitCode = 15
	ExitRender                 ExitCode = 16
	ExitReloadFailed           ExitCode = 17
	ExitBusy                   ExitCode = 18
	ExitRecordMismatch         ExitCode = 19
)
