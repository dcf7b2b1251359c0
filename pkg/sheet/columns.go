package sheet

// Accepted header spellings per logical field, in order of preference.
var (
	TripIDColumn      = []string{"trip_id", "trip id"}
	LastNameColumn    = []string{"lastname", "last name"}
	FirstNameColumn   = []string{"firstname", "first name"}
	StartDateColumn   = []string{"startdate", "start date"}
	DestinationColumn = []string{"destination"}
	TotalColumn       = []string{"total", "amount"}
	CurrencyColumn    = []string{"currency"}
	ClientIDColumn    = []string{"client_id", "client id", "id"}
	AmountColumn      = []string{"amount", "total"}
	PhoneColumn       = []string{"phone", "mobile"}
	EmailColumn       = []string{"email"}
)
