package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/db"
	"github.com/nataliehoang91/lumi-self-lab-sub002/internal/service"
)

// GetInsightsSummary returns one statistical summary per field.
func (a *API) GetInsightsSummary(c *gin.Context) {
	experiment, fields, checkIns, ok := a.loadInsightsInput(c)
	if !ok {
		return
	}

	summaries, err := computeSummaries(fields, checkIns)
	if err != nil {
		log.Printf("insights summary for experiment %s failed: %v", experiment.PublicID, err)
		respondError(c, http.StatusInternalServerError, "failed to compute insights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiment_id": experiment.PublicID,
		"generated_at":  time.Now().UTC().Format(time.RFC3339),
		"summaries":     summaries,
	})
}

// GetInsightsTrends returns one trend verdict or series per field.
func (a *API) GetInsightsTrends(c *gin.Context) {
	experiment, fields, checkIns, ok := a.loadInsightsInput(c)
	if !ok {
		return
	}

	trends, err := computeTrends(fields, checkIns)
	if err != nil {
		log.Printf("insights trends for experiment %s failed: %v", experiment.PublicID, err)
		respondError(c, http.StatusInternalServerError, "failed to compute insights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"experiment_id": experiment.PublicID,
		"generated_at":  time.Now().UTC().Format(time.RFC3339),
		"trends":        trends,
	})
}

// GetReview composes experiment metadata, coarse stats and both insight
// outputs into one payload.
func (a *API) GetReview(c *gin.Context) {
	experiment, fields, checkIns, ok := a.loadInsightsInput(c)
	if !ok {
		return
	}

	review, err := computeReview(experiment, fields, checkIns)
	if err != nil {
		log.Printf("review for experiment %s failed: %v", experiment.PublicID, err)
		respondError(c, http.StatusInternalServerError, "failed to compute insights")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"review":       review,
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) loadInsightsInput(c *gin.Context) (*db.Experiment, []db.Field, []db.CheckIn, bool) {
	experiment, ok := a.ownedExperiment(c)
	if !ok {
		return nil, nil, nil, false
	}

	fields, err := a.experiments.Fields(experiment.ID)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load fields")
		return nil, nil, nil, false
	}
	checkIns, err := a.checkIns.List(experiment.ID, nil)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to load check-ins")
		return nil, nil, nil, false
	}

	return experiment, fields, checkIns, true
}

// The aggregation endpoints must never leak partial results or take the
// process down over one experiment's data, so each computation runs behind
// a recover barrier and reports a generic failure instead.

func computeSummaries(fields []db.Field, checkIns []db.CheckIn) (result []service.FieldSummary, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("summarize panicked: %v", r)
		}
	}()
	return service.Summarize(fields, checkIns), nil
}

func computeTrends(fields []db.Field, checkIns []db.CheckIn) (result []service.FieldTrend, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("trend analysis panicked: %v", r)
		}
	}()
	return service.AnalyzeTrends(fields, checkIns), nil
}

func computeReview(experiment *db.Experiment, fields []db.Field, checkIns []db.CheckIn) (result service.ReviewResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = service.ReviewResult{}
			err = fmt.Errorf("review panicked: %v", r)
		}
	}()
	return service.BuildReview(experiment, fields, checkIns, time.Now()), nil
}
