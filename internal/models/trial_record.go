package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CSVHeader is the first line of an empty results file.
const CSVHeader = "Name, Age, Gender, Education, Email, Trial no, Time(s), Distance(sides), Distance(ui units), Outcome 1, Outcome 2,"

// csvColumns is the number of values in a results line.
const csvColumns = 11

// TrialRecord is the outcome of one completed, non-practice trial. The first block of
// fields is what the results file holds; the rest is only kept in the database.
type TrialRecord struct {
	ID            uint    `gorm:"primaryKey" json:"id"`
	SessionID     string  `gorm:"index;size:36" json:"sessionId,omitempty"`
	Name          string  `json:"name"`
	Age           int     `json:"age"`
	Gender        int     `json:"gender"`
	Education     string  `json:"education"`
	Email         string  `json:"email"`
	TrialNumber   int     `json:"trialNumber"`
	TimeGap       float64 `json:"timeGap"`
	IndexDistance int     `json:"indexDistance"`
	UnitDistance  float64 `json:"unitDistance"`
	Outcome1      int     `json:"outcome1"`
	Outcome2      int     `json:"outcome2"`

	T1                int       `json:"t1,omitempty"`
	T2                int       `json:"t2,omitempty"`
	FrameT1           int       `json:"frameT1,omitempty"`
	FrameT2           int       `json:"frameT2,omitempty"`
	IndexT1           int       `json:"indexT1,omitempty"`
	IndexT2           int       `json:"indexT2,omitempty"`
	Response1         string    `json:"response1,omitempty"`
	Response2         string    `json:"response2,omitempty"`
	ResponseLatencyMs float64   `json:"responseLatencyMs,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}

// CSVFields returns the results file columns in order.
func (r TrialRecord) CSVFields() []string {
	return []string{
		r.Name,
		strconv.Itoa(r.Age),
		strconv.Itoa(r.Gender),
		r.Education,
		r.Email,
		strconv.Itoa(r.TrialNumber),
		formatFloat(r.TimeGap),
		strconv.Itoa(r.IndexDistance),
		formatFloat(r.UnitDistance),
		strconv.Itoa(r.Outcome1),
		strconv.Itoa(r.Outcome2),
	}
}

// ParseCSVFields rebuilds a record from a results line. A trailing empty column left
// by the header's final comma is tolerated.
func ParseCSVFields(fields []string) (TrialRecord, error) {
	if len(fields) == csvColumns+1 && strings.TrimSpace(fields[csvColumns]) == "" {
		fields = fields[:csvColumns]
	}
	if len(fields) != csvColumns {
		return TrialRecord{}, fmt.Errorf("expected %d columns, got %d", csvColumns, len(fields))
	}

	var (
		r    TrialRecord
		errs []error
	)
	atoi := func(i int) int {
		v, err := strconv.Atoi(strings.TrimSpace(fields[i]))
		if err != nil {
			errs = append(errs, fmt.Errorf("column %d: %w", i+1, err))
		}
		return v
	}
	atof := func(i int) float64 {
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("column %d: %w", i+1, err))
		}
		return v
	}

	r.Name = fields[0]
	r.Age = atoi(1)
	r.Gender = atoi(2)
	r.Education = fields[3]
	r.Email = fields[4]
	r.TrialNumber = atoi(5)
	r.TimeGap = atof(6)
	r.IndexDistance = atoi(7)
	r.UnitDistance = atof(8)
	r.Outcome1 = atoi(9)
	r.Outcome2 = atoi(10)
	if len(errs) > 0 {
		return TrialRecord{}, errs[0]
	}
	return r, nil
}

// formatFloat writes the shortest exact decimal, always with a fractional part, so a
// whole number reads "3.0".
func formatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}
