package freeday

import "time"

// DateOnly wraps time.Time to serialize as "YYYY-MM-DD" in JSON.
type DateOnly struct{ time.Time }

func (d DateOnly) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format("2006-01-02") + `"`), nil
}

func (d *DateOnly) UnmarshalJSON(b []byte) error {
	t, err := time.Parse(`"2006-01-02"`, string(b))
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// String returns the YYYY-MM-DD form.
func (d DateOnly) String() string {
	return d.Time.Format("2006-01-02")
}

// dateIn truncates t to its calendar date in loc, returned as midnight UTC so
// the value round-trips through DATE columns unchanged.
func dateIn(t time.Time, loc *time.Location) DateOnly {
	y, m, day := t.In(loc).Date()
	return DateOnly{time.Date(y, m, day, 0, 0, 0, 0, time.UTC)}
}
