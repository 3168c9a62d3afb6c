package game

// Event types pushed to the monitor feed.
const (
	EventPlayerConnected    = "player_connected"
	EventLogin              = "login"
	EventTurnChanged        = "turn_changed"
	EventCardSelected       = "card_selected"
	EventCardDeselected     = "card_deselected"
	EventPairFound          = "pair_found"
	EventPlayFailed         = "play_failed"
	EventStats              = "stats"
	EventPlayerDisconnected = "player_disconnected"
	EventGameStarted        = "game_started"
	EventGameOver           = "game_over"
	EventGameReset          = "game_reset"
)

// Event is an observational notification for the server's presentation
// layer (the monitor feed). Events never affect game correctness.
type Event struct {
	Type       string `json:"type"`
	Player     string `json:"player,omitempty"`
	Turn       int    `json:"turn,omitempty"`
	X          int    `json:"x,omitempty"`
	Y          int    `json:"y,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
	Matches    int    `json:"matches,omitempty"`
	Accuracy   int    `json:"accuracy,omitempty"`
	PairsFound int    `json:"pairsFound,omitempty"`
	TotalPairs int    `json:"totalPairs,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

// EventSink receives engine events. Publish must not block the caller.
type EventSink interface {
	Publish(Event)
}
