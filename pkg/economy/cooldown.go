package economy

import "time"

// CheckCooldown reports whether an action last taken at last is still inside
// window at now, and how long remains if so.
func CheckCooldown(last *time.Time, now time.Time, window time.Duration) (bool, time.Duration) {
	if last == nil {
		return false, 0
	}
	end := last.Add(window)
	if now.Before(end) {
		return true, end.Sub(now)
	}
	return false, 0
}

// SplitRemaining floors d to whole minutes and splits it into hours and
// minutes for display.
func SplitRemaining(d time.Duration) (hours, minutes int) {
	if d <= 0 {
		return 0, 0
	}
	secs := int64(d / time.Second)
	return int(secs / 3600), int((secs % 3600) / 60)
}
