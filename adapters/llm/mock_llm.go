package llm

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/repositories"
)

var mockQuestions = []string{
	"Thanks for joining. Could you walk me through your background and what draws you to this role?",
	"Tell me about a project you are proud of. What was your specific contribution?",
	"Describe a time you disagreed with a teammate. How did you resolve it?",
	"How would you approach a task where the requirements are unclear?",
	"What is one technical decision you would make differently in hindsight, and why?",
}

const mockFeedback = `### 1. Overall Score & Impression
7/10. Clear and friendly answers with room for more depth.

### 2. Communication Analysis
Answers were structured and easy to follow.

### 3. Content & Strategy Analysis
Examples were relevant but light on measurable outcomes.

### 4. Key Areas for Improvement
- Use the STAR method for behavioral answers.
- Quantify the impact of your work.
- Close each answer by tying it back to the role.`

// MockLLM returns canned interview questions and a canned feedback report
type MockLLM struct {
	logger *zap.Logger
}

// NewMockLLM creates a new mock language model
func NewMockLLM(logger *zap.Logger) repositories.LargeLanguageModel {
	return &MockLLM{logger: logger}
}

// Generate implements repositories.LargeLanguageModel. The question is picked
// by how many interviewer lines the prompt transcript already holds.
func (m *MockLLM) Generate(ctx context.Context, request repositories.GenerateRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(request.Prompt) == "" {
		return "", fmt.Errorf("prompt cannot be empty")
	}

	if strings.Contains(strings.ToLower(request.SystemInstruction), "coach") {
		m.logger.Debug("Mock feedback generated")
		return mockFeedback, nil
	}

	asked := strings.Count(request.Prompt, "\nInterviewer: ")
	if strings.HasPrefix(request.Prompt, "Interviewer: ") {
		asked++
	}
	question := mockQuestions[asked%len(mockQuestions)]

	m.logger.Debug("Mock question generated", zap.Int("asked", asked))
	return question, nil
}
