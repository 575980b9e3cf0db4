package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/satriahrh/interview-partner/domain/entities"
)

// AnswerStatus tells the caller what happened to a submitted answer
type AnswerStatus string

const (
	// AnswerAccepted means the answer was recorded and a new question asked
	AnswerAccepted AnswerStatus = "accepted"
	// AnswerFinished means the answer ended the interview
	AnswerFinished AnswerStatus = "finished"
	// AnswerNotUnderstood means no speech was recognized; nothing was recorded
	AnswerNotUnderstood AnswerStatus = "not_understood"
)

// AnswerOutcome is the result of submitting an answer
type AnswerOutcome struct {
	Status AnswerStatus
	// Transcript is the recognized text of an audio answer
	Transcript string
	// Question is the interviewer turn asked in reply, if any
	Question *entities.Turn
}

// InterviewConfig holds the tunables of the interview flow
type InterviewConfig struct {
	TerminationPhrases []string
	// CollaboratorTimeout bounds every call to an external provider. Zero disables it.
	CollaboratorTimeout time.Duration
}

// InterviewService drives one interview session through its lifecycle. Every
// operation works on the session handle it is given; callers must not run two
// operations on the same session at once.
type InterviewService struct {
	dialogue    *DialogueGenerator
	transcriber *Transcriber
	synthesizer *SpeechSynthesizer
	phrases     []string
	timeout     time.Duration
	logger      *zap.Logger
}

// NewInterviewService creates a new interview service
func NewInterviewService(
	dialogue *DialogueGenerator,
	transcriber *Transcriber,
	synthesizer *SpeechSynthesizer,
	config InterviewConfig,
	logger *zap.Logger,
) *InterviewService {
	phrases := config.TerminationPhrases
	if len(phrases) == 0 {
		phrases = entities.DefaultTerminationPhrases
		logger.Info("Using default termination phrases", zap.Strings("phrases", phrases))
	}

	return &InterviewService{
		dialogue:    dialogue,
		transcriber: transcriber,
		synthesizer: synthesizer,
		phrases:     phrases,
		timeout:     config.CollaboratorTimeout,
		logger:      logger,
	}
}

// StartInterview moves the session to INTERVIEW and asks the opening question
func (s *InterviewService) StartInterview(ctx context.Context, session *entities.Session, role string) (*entities.Turn, error) {
	if err := session.Start(role); err != nil {
		return nil, err
	}

	s.logger.Info("Interview started",
		zap.String("sessionID", session.ID),
		zap.String("role", session.Role))

	return s.askNextQuestion(ctx, session)
}

// SubmitTextAnswer records a candidate answer. An answer containing a
// termination phrase ends the interview; any other answer gets a new question.
func (s *InterviewService) SubmitTextAnswer(ctx context.Context, session *entities.Session, text string) (*AnswerOutcome, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, &entities.ValidationError{Field: "answer", Reason: "answer cannot be empty"}
	}

	if err := session.AppendCandidate(text); err != nil {
		return nil, err
	}

	if entities.ContainsTerminationPhrase(text, s.phrases) {
		if err := session.EndInterview(); err != nil {
			return nil, err
		}
		s.logger.Info("Interview ended by candidate", zap.String("sessionID", session.ID))
		return &AnswerOutcome{Status: AnswerFinished}, nil
	}

	question, err := s.askNextQuestion(ctx, session)
	if err != nil {
		return nil, err
	}
	return &AnswerOutcome{Status: AnswerAccepted, Question: question}, nil
}

// SubmitAudioAnswer transcribes a recorded WAV answer and submits it as text.
// When no speech is recognized the session is left untouched.
func (s *InterviewService) SubmitAudioAnswer(ctx context.Context, session *entities.Session, blob []byte) (*AnswerOutcome, error) {
	if session.Mode != entities.ModeInterview {
		return nil, fmt.Errorf("submit audio answer in %s mode: %w", session.Mode, entities.ErrInvalidMode)
	}

	callCtx, cancel := s.withTimeout(ctx)
	text, err := s.transcriber.Transcribe(callCtx, blob)
	cancel()
	if err != nil {
		s.logger.Warn("Audio answer rejected", zap.String("sessionID", session.ID), zap.Error(err))
		return nil, err
	}

	if text == "" {
		s.logger.Info("Audio answer not understood", zap.String("sessionID", session.ID))
		return &AnswerOutcome{Status: AnswerNotUnderstood}, nil
	}

	outcome, err := s.SubmitTextAnswer(ctx, session, text)
	if err != nil {
		return nil, err
	}
	outcome.Transcript = text
	return outcome, nil
}

// RequestFeedback generates the feedback report for the current transcript.
// History and mode are never changed; the report is cached on the session and
// reused while the history stays the same.
func (s *InterviewService) RequestFeedback(ctx context.Context, session *entities.Session) (Generation, error) {
	if session.Mode == entities.ModeSetup {
		return Generation{}, fmt.Errorf("request feedback in %s mode: %w", session.Mode, entities.ErrInvalidMode)
	}

	if session.Feedback.Covers(session) {
		return Ok(session.Feedback.Text), nil
	}

	callCtx, cancel := s.withTimeout(ctx)
	generation := s.dialogue.GenerateFeedback(callCtx, session.History, session.Role)
	cancel()

	session.Feedback = &entities.Report{
		Text:        RenderFeedback(generation),
		Failure:     generation.Failure,
		TurnCount:   len(session.History),
		GeneratedAt: time.Now(),
	}
	session.UpdateLastActive()

	s.logger.Info("Feedback generated",
		zap.String("sessionID", session.ID),
		zap.Bool("ok", generation.IsOk()),
		zap.Int("turns", len(session.History)))

	return generation, nil
}

// EndInterview is the explicit end action, moving INTERVIEW to FEEDBACK
func (s *InterviewService) EndInterview(ctx context.Context, session *entities.Session) error {
	if err := session.EndInterview(); err != nil {
		return err
	}
	s.logger.Info("Interview ended", zap.String("sessionID", session.ID))
	return nil
}

// StartNew resets the session to an empty SETUP state
func (s *InterviewService) StartNew(ctx context.Context, session *entities.Session) error {
	if err := session.Reset(); err != nil {
		return err
	}
	s.logger.Info("Session reset", zap.String("sessionID", session.ID))
	return nil
}

// Evaluate produces a feedback report for a single standalone answer
func (s *InterviewService) Evaluate(ctx context.Context, role, answer string) (Generation, error) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return Generation{}, &entities.ValidationError{Field: "answer", Reason: "answer cannot be empty"}
	}

	role = strings.TrimSpace(role)
	if role == "" {
		role = "an unspecified role"
	}

	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.dialogue.GenerateFeedback(callCtx, []entities.Turn{entities.NewCandidateTurn(answer)}, role), nil
}

// Transcribe recognizes a standalone WAV recording outside of any session
func (s *InterviewService) Transcribe(ctx context.Context, blob []byte) (string, error) {
	callCtx, cancel := s.withTimeout(ctx)
	defer cancel()
	return s.transcriber.Transcribe(callCtx, blob)
}

// askNextQuestion appends the next interviewer turn and synthesizes its audio.
// A failed generation becomes a visible placeholder turn without audio.
func (s *InterviewService) askNextQuestion(ctx context.Context, session *entities.Session) (*entities.Turn, error) {
	callCtx, cancel := s.withTimeout(ctx)
	generation := s.dialogue.NextQuestion(callCtx, session.History, session.Role)
	cancel()

	turn := entities.NewInterviewerTurn(RenderQuestion(generation))
	turn.Failure = generation.Failure
	if err := session.AppendInterviewer(turn); err != nil {
		return nil, err
	}
	index := len(session.History) - 1

	if generation.IsOk() {
		callCtx, cancel := s.withTimeout(ctx)
		wav, err := s.synthesizer.Synthesize(callCtx, turn.Text)
		cancel()

		failure := ""
		if err != nil {
			failure = err.Error()
			s.logger.Warn("Speech synthesis failed",
				zap.String("sessionID", session.ID),
				zap.Error(err))
		}
		if err := session.AttachAudio(index, wav, failure); err != nil {
			return nil, err
		}
	}

	asked := session.History[index]
	return &asked, nil
}

func (s *InterviewService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
