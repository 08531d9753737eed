package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"journalbe/models"

	"github.com/gin-gonic/gin"
	openai "github.com/sashabaranov/go-openai"
)

// noEntriesSentinel is returned instead of calling the completion service
// when the requested range holds no entries.
const noEntriesSentinel = "No entries found for this range."

const trendSystemPrompt = "You are an insightful journaling assistant. " +
	"You will receive a series of dated journal entries in markdown. " +
	"Analyze them and summarize the emotional patterns and trends you observe " +
	"across the entries. Be concise and empathetic."

// TrendAnalyzer submits a serialized journal to a text-completion service
// and returns its analysis. Stubbed in tests.
type TrendAnalyzer interface {
	Analyze(ctx context.Context, journal string) (string, error)
}

// openAIAnalyzer backs TrendAnalyzer with a single, non-retried chat
// completion call.
type openAIAnalyzer struct {
	client *openai.Client
	model  string
}

func newOpenAIAnalyzer(apiKey, model string) *openAIAnalyzer {
	return &openAIAnalyzer{client: openai.NewClient(apiKey), model: model}
}

func (o *openAIAnalyzer) Analyze(ctx context.Context, journal string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: trendSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: journal},
		},
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("completion response contained no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// serializeEntries renders entries as one markdown document, one section per
// entry with the title and date in the heading.
func serializeEntries(entries []models.Entry) string {
	var b strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&b, "## %s (%s)\n\n%s\n\n", e.Title, e.Date.Format("2006-01-02"), e.Description)
	}
	return b.String()
}

// analyzeEntriesTrend summarizes emotional patterns across entries in an
// inclusive date range. The completion call is single-shot; a failure is a
// plain 500.
func (a *App) analyzeEntriesTrend(c *gin.Context) {
	var req struct {
		From *string `json:"from"`
		To   *string `json:"to"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.From == nil || req.To == nil {
		abortWithAPIError(c, http.StatusBadRequest, "Missing from and/or to date")
		return
	}
	from, err := parseDate(*req.From)
	if err != nil {
		abortWithAPIError(c, http.StatusBadRequest, "Invalid date format")
		return
	}
	to, err := parseDate(*req.To)
	if err != nil {
		abortWithAPIError(c, http.StatusBadRequest, "Invalid date format")
		return
	}

	var entries []models.Entry
	err = a.db.Where("user_id = ? AND date BETWEEN ? AND ?", c.GetUint(ctxUserID), from, to).
		Order("date asc").
		Find(&entries).Error
	if err != nil {
		a.failInternal(c, err)
		return
	}
	if len(entries) == 0 {
		c.JSON(http.StatusOK, gin.H{"analysis": noEntriesSentinel})
		return
	}

	analysis, err := a.analyzer.Analyze(c.Request.Context(), serializeEntries(entries))
	if err != nil {
		a.failInternal(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": analysis})
}
