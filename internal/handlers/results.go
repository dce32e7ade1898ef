package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"attblink/internal/metrics"
	"attblink/internal/models"
	"attblink/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"go.uber.org/zap"
)

const sessionListLimit = 100

type ResultsHandler struct {
	log      *zap.Logger
	trials   repository.TrialReader
	sessions repository.SessionLister
}

// NewResultsHandler serves stored trials. sessions may be nil when only the results
// file is available.
func NewResultsHandler(log *zap.Logger, trials repository.TrialReader, sessions repository.SessionLister) *ResultsHandler {
	return &ResultsHandler{log: log, trials: trials, sessions: sessions}
}

// ListTrials returns the stored trials, optionally for one session.
func (h *ResultsHandler) ListTrials(c *gin.Context) {
	records, ok := h.load(c)
	if !ok {
		return
	}
	if records == nil {
		records = []models.TrialRecord{}
	}
	c.JSON(http.StatusOK, records)
}

// Summary returns accuracy per time gap.
func (h *ResultsHandler) Summary(c *gin.Context) {
	records, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, metrics.Summarize(records))
}

func (h *ResultsHandler) ListSessions(c *gin.Context) {
	if h.sessions == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "sessions are only kept in the database"})
		return
	}
	sessions, err := h.sessions.ListSessions(c.Request.Context(), sessionListLimit)
	if err != nil {
		h.log.Error("Failed to list sessions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load sessions"})
		return
	}
	c.JSON(http.StatusOK, sessions)
}

// ShowChart renders the blink curve: accuracy against the time between the targets.
func (h *ResultsHandler) ShowChart(c *gin.Context) {
	records, ok := h.load(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	line := generateBlinkChart(metrics.Summarize(records))
	if err := line.Render(&buf); err != nil {
		h.log.Error("Failed to render chart", zap.Error(err))
		c.String(http.StatusInternalServerError, "Failed to render chart")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *ResultsHandler) load(c *gin.Context) ([]models.TrialRecord, bool) {
	sessionID := c.Query("session")
	records, err := h.trials.ListTrials(c.Request.Context(), sessionID)
	if errors.Is(err, repository.ErrSessionFilter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "filtering by session needs the database"})
		return nil, false
	}
	if err != nil {
		h.log.Error("Failed to load trials", zap.Error(err), zap.String("session", sessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trials"})
		return nil, false
	}
	return records, true
}

func generateBlinkChart(summary metrics.Summary) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Attentional blink results", Width: "100%", Height: "600px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Attentional blink",
			Subtitle: fmt.Sprintf("%d trials", summary.Trials),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "category",
			Name: "T1-T2 gap (s)",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type: "value",
			Name: "accuracy",
			Min:  0,
			Max:  1,
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)

	gaps := make([]string, 0, len(summary.ByTimeGap))
	var t2GivenT1, t1, t2 []opts.LineData
	for _, g := range summary.ByTimeGap {
		gaps = append(gaps, strconv.FormatFloat(g.TimeGap, 'f', -1, 64))
		t2GivenT1 = append(t2GivenT1, lineValue(g.T2GivenT1))
		t1 = append(t1, lineValue(g.T1Accuracy))
		t2 = append(t2, lineValue(g.T2Accuracy))
	}

	line.SetXAxis(gaps).
		AddSeries("T2 | T1 correct", t2GivenT1).
		AddSeries("T1", t1).
		AddSeries("T2", t2).
		SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}

// lineValue leaves a gap in the line where nothing could be computed.
func lineValue(m metrics.MetricResult) opts.LineData {
	if !m.Calculated {
		return opts.LineData{Value: "-"}
	}
	return opts.LineData{Value: m.Value, Name: strconv.Itoa(m.SampleSize)}
}
