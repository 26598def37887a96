package routes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/ai"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/logger"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/registry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/search"
	"github.com/runwhen-contrib/codecollection-registry-sub002/internal/telemetry"
	"github.com/runwhen-contrib/codecollection-registry-sub002/models"
	"github.com/runwhen-contrib/codecollection-registry-sub002/utils"
)

const historyDepth = 10

// AnswerGenerator turns a question plus supporting snippets into prose;
// satisfied by *ai.GeminiClient.
type AnswerGenerator interface {
	GenerateAnswer(ctx context.Context, question string, snippets []string) (string, error)
}

type searchRequest struct {
	Query   string        `json:"query" binding:"required"`
	History []search.Turn `json:"history"`
	Limit   int           `json:"limit"`
}

type chatRequest struct {
	ConversationID string `json:"conversation_id"`
	Question       string `json:"question" binding:"required"`
}

// SetupAssistantRoutes exposes the search and chat endpoints.
func SetupAssistantRoutes(router *gin.Engine, svc *search.Service, generator AnswerGenerator, repo *registry.Repository, metrics *telemetry.Metrics) {
	assistant := router.Group("/assistant")

	assistant.POST("/search", func(c *gin.Context) {
		var req searchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		started := time.Now()
		resp, err := svc.Search(c.Request.Context(), req.Query, req.History, req.Limit)
		if errors.Is(err, search.ErrEmptyQuery) {
			utils.RespondWithBadRequest(c, "Query must not be empty", nil)
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}
		metrics.RecordSearch(c.Request.Context(), resp.Context.Mode.String(),
			resp.Degraded, resp.NoMatch, time.Since(started))
		c.JSON(http.StatusOK, resp)
	})

	assistant.POST("/chat", func(c *gin.Context) {
		var req chatRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
			return
		}

		conversationID := req.ConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		history, err := conversationTurns(c, repo, conversationID)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to load conversation", nil)
			return
		}

		started := time.Now()
		resp, err := svc.Search(c.Request.Context(), req.Question, history, 0)
		if errors.Is(err, search.ErrEmptyQuery) {
			utils.RespondWithBadRequest(c, "Question must not be empty", nil)
			return
		}
		if err != nil {
			utils.RespondWithInternalError(c, "Search failed", nil)
			return
		}

		metrics.RecordSearch(c.Request.Context(), resp.Context.Mode.String(),
			resp.Degraded, resp.NoMatch, time.Since(started))

		answer := composeAnswer(c, generator, req.Question, resp)

		message := &models.Message{
			ConversationID: conversationID,
			Question:       req.Question,
			Answer:         answer,
			ResultSlugs:    resultSlugs(resp.Results),
			Degraded:       resp.Degraded,
			NoMatch:        resp.NoMatch,
		}
		if err := repo.SaveMessage(c.Request.Context(), message); err != nil {
			logger.Error("saving message failed", "conversation", conversationID, "error", err)
		}

		c.JSON(http.StatusOK, gin.H{
			"conversation_id": conversationID,
			"answer":          answer,
			"results":         resp.Results,
			"degraded":        resp.Degraded,
			"no_match":        resp.NoMatch,
		})
	})
}

// conversationTurns replays a stored conversation as classifier history.
func conversationTurns(c *gin.Context, repo *registry.Repository, conversationID string) ([]search.Turn, error) {
	messages, err := repo.ConversationHistory(c.Request.Context(), conversationID, historyDepth)
	if err != nil {
		return nil, err
	}
	var turns []search.Turn
	for _, m := range messages {
		turns = append(turns, search.Turn{Role: search.RoleUser, Content: m.Question})
		turns = append(turns, search.Turn{Role: search.RoleAssistant, Content: m.Answer})
	}
	return turns, nil
}

// composeAnswer asks the model for prose grounded in the top results. When
// the model is unavailable the endpoint still answers with the result list.
func composeAnswer(c *gin.Context, generator AnswerGenerator, question string, resp *search.Response) string {
	if resp.NoMatch {
		return "I could not find a matching codebundle in the registry. " +
			"Try describing the system or resource you want to automate."
	}

	snippets := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		snippets = append(snippets, fmt.Sprintf("[%s] %s", r.ID, r.Text))
	}

	answer, err := generator.GenerateAnswer(c.Request.Context(), question, snippets)
	if err != nil {
		if !errors.Is(err, ai.ErrUpstreamUnavailable) {
			logger.Error("answer generation failed", "error", err)
		}
		return fallbackAnswer(resp)
	}
	return answer
}

func fallbackAnswer(resp *search.Response) string {
	slugs := resultSlugs(resp.Results)
	return "These registry entries look relevant: " + strings.Join(slugs, ", ")
}

func resultSlugs(results []search.RankedResult) []string {
	slugs := make([]string, 0, len(results))
	for _, r := range results {
		slugs = append(slugs, r.ID)
	}
	return slugs
}
