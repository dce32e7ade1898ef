package repository

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"attblink/internal/models"
)

// CSVStore appends trials to the flat results file shared by every session.
type CSVStore struct {
	path string
	mu   sync.Mutex
}

func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Path() string { return s.path }

// Append writes the header first when the file is new or empty, then the record.
func (s *CSVStore) Append(ctx context.Context, rec models.TrialRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat results file: %w", err)
	}

	w := bufio.NewWriter(f)
	if info.Size() == 0 {
		if _, err := w.WriteString(models.CSVHeader + "\n"); err != nil {
			return fmt.Errorf("write results header: %w", err)
		}
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(rec.CSVFields()); err != nil {
		return fmt.Errorf("write trial %d: %w", rec.TrialNumber, err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("write trial %d: %w", rec.TrialNumber, err)
	}
	return w.Flush()
}

// ListTrials reads back every stored line. The file carries no session id, so any
// session filter fails with ErrSessionFilter.
func (s *CSVStore) ListTrials(ctx context.Context, sessionID string) ([]models.TrialRecord, error) {
	if sessionID != "" {
		return nil, fmt.Errorf("list trials for session %q: %w", sessionID, ErrSessionFilter)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var (
		records []models.TrialRecord
		line    int
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("results file line %d: %w", line, err)
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(fields[0]), "name") {
			continue
		}
		rec, err := models.ParseCSVFields(fields)
		if err != nil {
			return nil, fmt.Errorf("results file line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}
