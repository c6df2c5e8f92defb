package outbox

import "time"

// Fixed retry schedule; index 0 is the wait before the first retry. Attempts
// past the end of the schedule reuse the last entry.
var _backoffSchedule = []time.Duration{
	1 * time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	1 * time.Hour,
	1 * time.Hour,
}

func backoffDelay(retryCount int) time.Duration {
	if retryCount >= len(_backoffSchedule) {
		return _backoffSchedule[len(_backoffSchedule)-1]
	}

	return _backoffSchedule[retryCount]
}
