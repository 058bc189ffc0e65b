package service

import "time"

// ChronologicalAge returns the whole years between dob and now, counting a
// year only once its birthday has been reached. A dob after now yields a
// non-positive age.
func ChronologicalAge(dob, now time.Time) int {
	dob = dob.UTC()
	now = now.UTC()

	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}
