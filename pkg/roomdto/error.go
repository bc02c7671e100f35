package roomdto

// Stable rejection codes carried in ErrorMessage.Code.
const (
	CodeGameNotInProgress  = "game_not_in_progress"
	CodeNotYourTurn        = "not_your_turn"
	CodeIllegalMove        = "illegal_move"
	CodeBadPayload         = "bad_payload"
	CodeSpectatorAction    = "spectator_action"
	CodeUnknownMessage     = "unknown_message"
	CodeRoomFull           = "room_full"
	CodeNotInRoom          = "not_in_room"
	CodeDrawAlreadyOffered = "draw_already_offered"
	CodeNoDrawOffer        = "no_draw_offer"
	CodeOwnDrawOffer       = "own_draw_offer"
	CodeGameNotFinished    = "game_not_finished"
	CodeNoRematchRequest   = "no_rematch_request"
	CodeOwnRematchRequest  = "own_rematch_request"
	CodeRoomClosed         = "room_closed"
	CodeUnknownGame        = "unknown_game"
	CodeUnauthorized       = "unauthorized"
	CodeNotParticipant     = "not_participant"
	CodeSessionReplaced    = "session_replaced"
)

type DomainError struct {
	Code    string
	Message string
	// Detail is interpolated into the rendered message when the catalog template uses it.
	Detail string
}

func (e DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return e.Code
	}
	return "room error"
}
