// Package search implements the two read operations of the CRM lookup
// service: finding trips by the tourist's surname and assembling a full trip
// dossier from the Trips, Profile and Contacts sheets.
//
// The service is shared by the HTTP API, the Telegram bot and the CLI. It
// borrows cached tables from the repository read-only and never mutates
// them, so any number of requests may run concurrently.
//
// Searching:
//
//	svc := search.NewService(repo, search.Options{MaxResults: 20})
//	resp, err := svc.SearchBySurname(ctx, "Ivanov")
//
// A search that matches nothing is not an error: the response carries
// Count 0 and empty slices. Trip lookups fail with ErrNotFound when no Trips
// row carries the requested id:
//
//	dossier, err := svc.GetTrip(ctx, "T-1042")
//	if errors.Is(err, search.ErrNotFound) {
//		// 404 / "Поездка не найдена"
//	}
package search
