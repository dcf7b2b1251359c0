package search

// SearchResult is one matching Trips row. JSON names follow the public API
// contract, which mixes naming styles.
type SearchResult struct {
	TripID      string `json:"Trip_ID"`
	LastName    string `json:"LastName"`
	FirstName   string `json:"FirstName"`
	Destination string `json:"destination"`
	StartDate   string `json:"startDate"`
}

// SearchResponse is the outcome of a surname search. TextMessages holds one
// human readable block per result, in the same order.
type SearchResponse struct {
	Status       string         `json:"status"`
	Count        int            `json:"count"`
	Results      []SearchResult `json:"results"`
	TextMessages []string       `json:"textMessages"`
}

// TripDossier aggregates a trip with its clients, contacts and payments.
type TripDossier struct {
	Meta     Meta         `json:"meta"`
	Clients  []Client     `json:"clients"`
	Trips    []TripRecord `json:"trips"`
	Payments Payments     `json:"payments"`
}

type Meta struct {
	TripID      string `json:"trip_id"`
	GeneratedAt string `json:"generated_at"`
	Timezone    string `json:"timezone"`
}

type Tourist struct {
	LastName  string `json:"last_name"`
	FirstName string `json:"first_name"`
}

type TripRecord struct {
	TripID      string  `json:"trip_id"`
	MainTourist Tourist `json:"main_tourist"`
	Destination string  `json:"destination"`
	StartDate   string  `json:"start_date"`
	// Passengers is always empty: the sheet layout carries no passenger list.
	Passengers []string `json:"passengers"`
	Total      string   `json:"total"`
	Currency   string   `json:"currency"`
}

type Contact struct {
	Phone string `json:"phone"`
	Email string `json:"email"`
}

type Client struct {
	ClientID  string    `json:"client_id"`
	LastName  string    `json:"last_name"`
	FirstName string    `json:"first_name"`
	Amount    string    `json:"amount"`
	Contacts  []Contact `json:"contacts"`
}

type ClientPayment struct {
	ClientID string `json:"client_id"`
	Amount   string `json:"amount"`
}

type Payments struct {
	Total     string          `json:"total"`
	Currency  string          `json:"currency"`
	PerClient []ClientPayment `json:"per_client"`
}
