package api

import "time"

// APIRequest is the body of POST /api. Several spellings are accepted for
// the surname and trip id fields; the first non-empty one wins.
type APIRequest struct {
	Action    string `json:"action"`
	APIKey    string `json:"api_key"`
	Surname   string `json:"surname"`
	LastName  string `json:"lastName"`
	Lastname  string `json:"lastname"`
	TripID    string `json:"trip_id"`
	TripIDAlt string `json:"tripId"`
	Trip      string `json:"trip"`
}

func (r APIRequest) surname() string {
	return firstNonEmpty(r.Surname, r.LastName, r.Lastname)
}

func (r APIRequest) tripID() string {
	return firstNonEmpty(r.TripID, r.TripIDAlt, r.Trip)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Status string `json:"status"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type FlushResponse struct {
	Status string `json:"status"`
}
