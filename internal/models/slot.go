package models

// Slot is a fixed one-hour bookable interval derived from a range's opening
// hours. ID is "HH:MM-HH:MM" in 24h form, Display is 12-hour with AM/PM.
type Slot struct {
	ID        string `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Display   string `json:"display"`
}
