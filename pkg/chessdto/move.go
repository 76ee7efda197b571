package chessdto

// MoveSummary is the answer to a move: the human's move, the computer's
// reply if the game went on, and the state after both.
type MoveSummary struct {
	State    *GameState `json:"state"`
	Player   string     `json:"player"`
	Computer string     `json:"computer,omitempty"`
	Finished bool       `json:"finished"`
}
