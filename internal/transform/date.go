package transform

import (
	"strings"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mgbpm/clingen-ai-tools/internal/table"
)

// DateFeatures parses a date column and derives age_{column} (whole years)
// and days_{column} (whole days) relative to Now. Values that are missing or
// do not parse yield missing features.
type DateFeatures struct {
	Column string
	Format string
	Age    bool
	Days   bool
	Now    time.Time
}

// Name implements Step.
func (d *DateFeatures) Name() string { return "date:" + d.Column }

// Apply implements Step.
func (d *DateFeatures) Apply(t *table.Table) (*table.Table, error) {
	if absent(t, "date", d.Column) {
		return t, nil
	}
	ageCol := AgePrefix + "_" + d.Column
	daysCol := DaysPrefix + "_" + d.Column
	age := d.Age && !taken(t, "age", ageCol)
	days := d.Days && !taken(t, "days", daysCol)
	if !age && !days {
		return t, nil
	}

	out := t.Clone()
	if age {
		out.AddColumn(ageCol)
	}
	if days {
		out.AddColumn(daysCol)
	}

	bad := 0
	for _, r := range out.Rows {
		var when time.Time
		ok := false
		if v := r[d.Column]; !table.IsMissing(v) {
			var err error
			when, err = ParseDate(d.Format, table.Format(v))
			if err == nil {
				ok = true
			} else {
				bad++
			}
		}
		if age {
			r[ageCol] = nil
			if ok {
				r[ageCol] = WholeYears(when, d.Now)
			}
		}
		if days {
			r[daysCol] = nil
			if ok {
				r[daysCol] = WholeDays(when, d.Now)
			}
		}
	}
	if bad > 0 {
		zap.L().Warn("unparseable dates set to missing",
			zap.String("source", t.Name),
			zap.String("column", d.Column),
			zap.String("format", d.Format),
			zap.Int("count", bad),
		)
	}
	return out, nil
}

// ParseDate parses value with a strftime format (any format containing '%')
// or a Go reference layout.
func ParseDate(format, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(format, "%") {
		t, err := strftime.Parse(format, value)
		if err != nil {
			return time.Time{}, eris.Wrapf(err, "transform: parse %q with %q", value, format)
		}
		return t, nil
	}
	t, err := time.Parse(format, value)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "transform: parse %q with %q", value, format)
	}
	return t, nil
}

// WholeYears returns the completed years from then to now.
func WholeYears(then, now time.Time) int {
	y := now.Year() - then.Year()
	if now.Month() < then.Month() || (now.Month() == then.Month() && now.Day() < then.Day()) {
		y--
	}
	return y
}

// WholeDays returns the completed calendar days from then to now.
func WholeDays(then, now time.Time) int {
	a := time.Date(then.Year(), then.Month(), then.Day(), 0, 0, 0, 0, time.UTC)
	b := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return int((b.Unix() - a.Unix()) / 86400)
}
