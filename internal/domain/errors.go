package domain

// DomainError carries a stable code for the HTTP boundary and whether the
// caller may usefully retry the same request.
type DomainError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "pairchess error"
}

var (
	ErrGameNotFound = DomainError{Code: "game_not_found", Message: "game not found or expired"}
	ErrCodeConflict = DomainError{Code: "code_conflict", Message: "game code already taken", Retryable: true}
	ErrStaleRecord  = DomainError{Code: "stale_record", Message: "concurrent update detected", Retryable: true}

	ErrSpectator      = DomainError{Code: "spectator", Message: "spectators cannot move"}
	ErrNotYourTurn    = DomainError{Code: "not_your_turn", Message: "it is the opponent's turn"}
	ErrGameFinished   = DomainError{Code: "game_finished", Message: "the game is already over"}
	ErrOpponentNeeded = DomainError{Code: "opponent_needed", Message: "waiting for an opponent to join"}
	ErrIllegalMove    = DomainError{Code: "illegal_move", Message: "illegal move"}
)
