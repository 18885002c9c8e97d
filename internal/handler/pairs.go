package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cognicore/homer/pkg/homer"
	"github.com/cognicore/homer/pkg/homer/corpus"
	"github.com/cognicore/homer/pkg/homer/internalerr"
)

type PairController struct {
	engine *homer.Engine
	logger *zap.Logger
}

func NewPairController(engine *homer.Engine, logger *zap.Logger) *PairController {
	return &PairController{engine: engine, logger: logger}
}

type AddPairRequest struct {
	Input  string `json:"input" binding:"required"`
	Output string `json:"output" binding:"required"`
	Source string `json:"source"`
}

type PairResponse struct {
	ID        string    `json:"id"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// SimilaritiesRequest asks for the pairs closest to Query. A missing
// explain uses the server's configured default.
type SimilaritiesRequest struct {
	Query   string `json:"query" binding:"required"`
	TopK    int    `json:"top_k"`
	Explain *int   `json:"explain,omitempty"`
}

type TermResponse struct {
	Feature            string  `json:"feature"`
	LogProbGivenInput  float64 `json:"log_prob_given_input"`
	LogProbGivenOutput float64 `json:"log_prob_given_output"`
	Contribution       float64 `json:"contribution"`
}

type SimilarityResponse struct {
	PairID     string         `json:"pair_id"`
	Input      string         `json:"input"`
	Output     string         `json:"output"`
	Source     string         `json:"source,omitempty"`
	Similarity float64        `json:"similarity"`
	Terms      []TermResponse `json:"terms,omitempty"`
}

type SimilaritiesResponse struct {
	Words   []string             `json:"words"`
	Dropped []string             `json:"dropped,omitempty"`
	Results []SimilarityResponse `json:"results"`
}

func (pc *PairController) Health(c *gin.Context) {
	trained, stale, pairs := pc.engine.Status()
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"trained": trained,
		"stale":   stale,
		"pairs":   pairs,
	})
}

func (pc *PairController) AddPair(c *gin.Context) {
	var request AddPairRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		pc.logger.Error("Invalid request payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request payload",
			"details": err.Error(),
		})
		return
	}

	saved, err := pc.engine.Add(c.Request.Context(), corpus.Pair{
		Input:  request.Input,
		Output: request.Output,
		Source: request.Source,
	})
	if err != nil {
		pc.fail(c, "Failed to add pair", err)
		return
	}

	c.JSON(http.StatusCreated, toPairResponse(saved))
}

func (pc *PairController) ListPairs(c *gin.Context) {
	pairs, err := pc.engine.Store().ListPairs(c.Request.Context())
	if err != nil {
		pc.fail(c, "Failed to list pairs", err)
		return
	}

	out := make([]PairResponse, len(pairs))
	for i, p := range pairs {
		out[i] = toPairResponse(p)
	}
	c.JSON(http.StatusOK, gin.H{"pairs": out})
}

func (pc *PairController) DeletePair(c *gin.Context) {
	id := c.Param("id")
	if err := pc.engine.Delete(c.Request.Context(), id); err != nil {
		pc.fail(c, "Failed to delete pair", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (pc *PairController) Train(c *gin.Context) {
	stats, err := pc.engine.Train(c.Request.Context())
	if err != nil {
		pc.fail(c, "Failed to train model", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"pairs":             stats.Pairs,
		"input_vocabulary":  stats.InputVocabulary,
		"output_vocabulary": stats.OutputVocabulary,
		"duration_ms":       stats.Duration.Milliseconds(),
	})
}

func (pc *PairController) Similarities(c *gin.Context) {
	var request SimilaritiesRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		pc.logger.Error("Invalid request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}
	explain := -1
	if request.Explain != nil {
		explain = *request.Explain
	}
	if request.TopK < 0 || (request.Explain != nil && explain < 0) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "top_k and explain must be non-negative",
		})
		return
	}

	resp, err := pc.engine.Search(c.Request.Context(), homer.SearchRequest{
		Query:   request.Query,
		TopK:    request.TopK,
		Explain: explain,
	})
	if err != nil {
		pc.fail(c, "Failed to rank pairs", err)
		return
	}

	out := SimilaritiesResponse{
		Words:   resp.Words,
		Dropped: resp.Dropped,
		Results: make([]SimilarityResponse, len(resp.Results)),
	}
	for i, r := range resp.Results {
		sr := SimilarityResponse{
			PairID:     r.PairID,
			Input:      r.Input,
			Output:     r.Output,
			Source:     r.Source,
			Similarity: r.Similarity,
		}
		for _, t := range r.Terms {
			sr.Terms = append(sr.Terms, TermResponse{
				Feature:            t.Feature,
				LogProbGivenInput:  t.LogProbGivenInput,
				LogProbGivenOutput: t.LogProbGivenOutput,
				Contribution:       t.Contribution,
			})
		}
		out.Results[i] = sr
	}
	c.JSON(http.StatusOK, out)
}

// fail maps engine errors onto HTTP status codes.
func (pc *PairController) fail(c *gin.Context, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		pc.logger.Error(msg, zap.Error(err))
	} else {
		pc.logger.Warn(msg, zap.Error(err), zap.Int("status", status))
	}
	c.JSON(status, gin.H{
		"error":   msg,
		"details": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, internalerr.ErrEmptySentence), errors.Is(err, internalerr.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, internalerr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, internalerr.ErrNotTrained):
		return http.StatusConflict
	case errors.Is(err, internalerr.ErrNumeric):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func toPairResponse(p corpus.Pair) PairResponse {
	return PairResponse{
		ID:        p.ID,
		Input:     p.Input,
		Output:    p.Output,
		Source:    p.Source,
		CreatedAt: p.CreatedAt,
	}
}
