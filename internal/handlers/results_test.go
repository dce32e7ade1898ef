package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"attblink/internal/metrics"
	"attblink/internal/models"
	"attblink/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubReader struct {
	records []models.TrialRecord
	err     error
	asked   string
}

func (s *stubReader) ListTrials(_ context.Context, sessionID string) ([]models.TrialRecord, error) {
	s.asked = sessionID
	return s.records, s.err
}

func testRecords() []models.TrialRecord {
	return []models.TrialRecord{
		{TrialNumber: 1, TimeGap: 0.14, Outcome1: 1, Outcome2: 1},
		{TrialNumber: 2, TimeGap: 0.28, Outcome1: 1, Outcome2: 0},
		{TrialNumber: 3, TimeGap: 0.28, Outcome1: 1, Outcome2: 1},
	}
}

func serve(h gin.HandlerFunc, target string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", h)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestListTrials(t *testing.T) {
	reader := &stubReader{records: testRecords()}
	h := NewResultsHandler(zap.NewNop(), reader, nil)

	w := serve(h.ListTrials, "/x?session=abc")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "abc", reader.asked)

	var got []models.TrialRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Len(t, got, 3)

	empty := NewResultsHandler(zap.NewNop(), &stubReader{}, nil)
	w = serve(empty.ListTrials, "/x")
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestSummary(t *testing.T) {
	h := NewResultsHandler(zap.NewNop(), &stubReader{records: testRecords()}, nil)

	w := serve(h.Summary, "/x")
	require.Equal(t, http.StatusOK, w.Code)

	var got metrics.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, 3, got.Trials)
	require.Len(t, got.ByTimeGap, 2)
	assert.InDelta(t, 0.5, got.ByTimeGap[1].T2GivenT1.Value, 1e-9)
}

func TestLoadFailure(t *testing.T) {
	h := NewResultsHandler(zap.NewNop(), &stubReader{err: errors.New("boom")}, nil)
	w := serve(h.Summary, "/x")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestSessionFilterWithoutDatabase(t *testing.T) {
	csvStore := repository.NewCSVStore(filepath.Join(t.TempDir(), "results.csv"))
	h := NewResultsHandler(zap.NewNop(), csvStore, nil)

	w := serve(h.ListTrials, "/x?session=abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "database")

	assert.Equal(t, http.StatusOK, serve(h.ListTrials, "/x").Code)
}

func TestShowChart(t *testing.T) {
	h := NewResultsHandler(zap.NewNop(), &stubReader{records: testRecords()}, nil)
	w := serve(h.ShowChart, "/x")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Attentional blink")
	assert.Contains(t, w.Body.String(), "T2 | T1 correct")
}

type stubSessions struct{ sessions []models.Session }

func (s stubSessions) ListSessions(context.Context, int) ([]models.Session, error) {
	return s.sessions, nil
}

func TestListSessions(t *testing.T) {
	h := NewResultsHandler(zap.NewNop(), &stubReader{}, nil)
	assert.Equal(t, http.StatusNotFound, serve(h.ListSessions, "/x").Code)

	h = NewResultsHandler(zap.NewNop(), &stubReader{}, stubSessions{sessions: []models.Session{{ID: "s-1"}}})
	w := serve(h.ListSessions, "/x")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"s-1"`)
}
