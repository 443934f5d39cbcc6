package schedule

// GenerateSlots returns the slot start times, earliest first, whose
// [start, start+duration) interval lies inside [workStart, workEnd) and does
// not overlap brk. A trailing slot that would run past workEnd is dropped.
func GenerateSlots(workStart, workEnd string, duration int, brk *Break) ([]string, error) {
	start, err := ParseClock(workStart)
	if err != nil {
		return nil, configErr("work_start", "unparseable time %q", workStart)
	}
	end, err := ParseClock(workEnd)
	if err != nil {
		return nil, configErr("work_end", "unparseable time %q", workEnd)
	}
	if start >= end {
		return nil, configErr("work_hours", "start %s is not before end %s", start, end)
	}
	if duration <= 0 {
		return nil, configErr("session_duration", "must be positive, got %d", duration)
	}
	if brk != nil && brk.Start >= brk.End {
		return nil, configErr("break", "start %s is not before end %s", brk.Start, brk.End)
	}

	slots := make([]string, 0, int(end-start)/duration)
	for t := start; t.Add(duration) <= end; t = t.Add(duration) {
		if brk != nil && overlaps(t, t.Add(duration), brk.Start, brk.End) {
			continue
		}
		slots = append(slots, t.String())
	}
	return slots, nil
}

func overlaps(aStart, aEnd, bStart, bEnd Clock) bool {
	return aStart < bEnd && bStart < aEnd
}
