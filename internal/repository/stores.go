package repository

import "gorm.io/gorm"

// Stores is the set of stores one configuration writes to and reads from.
type Stores struct {
	Trials   MultiSink
	CSV      *CSVStore        // nil when no results file is configured
	Database *TrialRepository // nil when the database is disabled
}

// NewStores opens the results file at csvPath (when set) and the database (when db is
// non-nil). Trials go to both.
func NewStores(csvPath string, db *gorm.DB) Stores {
	var s Stores
	if csvPath != "" {
		s.CSV = NewCSVStore(csvPath)
		s.Trials = append(s.Trials, s.CSV)
	}
	if db != nil {
		s.Database = NewTrialRepository(db)
		s.Trials = append(s.Trials, s.Database)
	}
	return s
}

// Reader prefers the database, which also knows session ids.
func (s Stores) Reader() TrialReader {
	if s.Database != nil {
		return s.Database
	}
	if s.CSV != nil {
		return s.CSV
	}
	return nil
}

func (s Stores) Sessions() SessionSink {
	if s.Database == nil {
		return nil
	}
	return s.Database
}

func (s Stores) SessionLister() SessionLister {
	if s.Database == nil {
		return nil
	}
	return s.Database
}
