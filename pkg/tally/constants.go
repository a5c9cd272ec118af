package tally

const (
	operationCreateSession    = "create_session"
	operationArchiveSession   = "archive_session"
	operationJoinSession      = "join_session"
	operationCreateGame       = "create_game"
	operationSubmitRankings   = "submit_rankings"
	operationConfirmGame      = "confirm_game"
	operationUnconfirmGame    = "unconfirm_game"
	operationDeleteGame       = "delete_game"
	operationMarkDebtPaid     = "mark_debt_paid"
	operationRecordManualDebt = "record_manual_debt"

	operationStatusOK    = "ok"
	operationStatusError = "error"
)
