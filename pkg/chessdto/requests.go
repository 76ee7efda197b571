package chessdto

type StartGameRequest struct {
	Player string `json:"player"`
	Color  string `json:"color"`
}

// MoveRequest names squares like "E2". Promotion is one of Q, R, B, N and
// defaults to Q.
type MoveRequest struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Promotion string `json:"promotion,omitempty"`
}
