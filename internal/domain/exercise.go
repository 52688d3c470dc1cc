package domain

type Exercise struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	DurationSeconds int      `json:"durationSeconds"`
	Instructions    string   `json:"instructions,omitempty"`
	Tips            []string `json:"tips,omitempty"`
	Benefits        []string `json:"benefits,omitempty"`
}
