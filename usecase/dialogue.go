package usecase

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/entities"
	"github.com/satriahrh/interview-partner/domain/repositories"
	"github.com/satriahrh/interview-partner/internal/prompts"
)

// DialogueGenerator produces interviewer questions and feedback reports.
// It never returns an error: failures come back as a Failed generation.
type DialogueGenerator struct {
	llm     repositories.LargeLanguageModel
	catalog *prompts.Catalog
	logger  *zap.Logger
}

// NewDialogueGenerator creates a new dialogue generator
func NewDialogueGenerator(llm repositories.LargeLanguageModel, catalog *prompts.Catalog, logger *zap.Logger) *DialogueGenerator {
	return &DialogueGenerator{
		llm:     llm,
		catalog: catalog,
		logger:  logger,
	}
}

// NextQuestion asks for the next interviewer utterance given the transcript so far
func (d *DialogueGenerator) NextQuestion(ctx context.Context, history []entities.Turn, role string) Generation {
	request, err := d.catalog.InterviewerRequest(role, history)
	if err != nil {
		return Failed(err.Error())
	}
	return d.generate(ctx, "question", request)
}

// GenerateFeedback asks for the structured feedback report of the transcript
func (d *DialogueGenerator) GenerateFeedback(ctx context.Context, history []entities.Turn, role string) Generation {
	request, err := d.catalog.FeedbackRequest(role, history)
	if err != nil {
		return Failed(err.Error())
	}
	return d.generate(ctx, "feedback", request)
}

func (d *DialogueGenerator) generate(ctx context.Context, kind string, request repositories.GenerateRequest) Generation {
	text, err := d.llm.Generate(ctx, request)
	if err != nil {
		d.logger.Warn("Generation failed", zap.String("kind", kind), zap.Error(err))
		return Failed(err.Error())
	}

	text = strings.TrimSpace(text)
	if text == "" {
		d.logger.Warn("Generation returned no text", zap.String("kind", kind))
		return Failed("empty response from language model")
	}

	return Ok(text)
}
