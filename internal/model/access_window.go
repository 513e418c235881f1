package model

import "time"

// AccessWindow models a row in the `access_windows` table. Start and
// end are wall-clock "HH:MM" strings with no date component; a window
// whose start is later than its end wraps past midnight. At most one
// row exists per user, and replacing it is a single transactional swap.
// A user with no row is always allowed.
type AccessWindow struct {
	ID        uint64    // access_windows.id
	UserID    uint64    // access_windows.user_id
	StartTime string    // access_windows.start_time ("HH:MM")
	EndTime   string    // access_windows.end_time ("HH:MM")
	CreatedAt time.Time // access_windows.created_at
}
