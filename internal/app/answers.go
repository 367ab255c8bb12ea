package app

import (
	"context"

	"geoquiz-service/internal/domain"
	"geoquiz-service/internal/scoring"
)

// SubmitAnswer records the caller's answer for the open question, at most once.
// Nothing on the session document changes; the answer becomes visible when the host
// closes the question.
func (s *SessionService) SubmitAnswer(ctx context.Context, sessionID string, caller domain.Identity, at domain.Coordinate) (domain.GivenAnswer, error) {
	if err := requireIdentity(caller); err != nil {
		return domain.GivenAnswer{}, err
	}
	if err := at.Validate(); err != nil {
		return domain.GivenAnswer{}, err
	}

	var recorded domain.GivenAnswer
	err := s.sessions.RunInTx(ctx, sessionID, func(tx SessionTx) error {
		session, err := tx.Session()
		if err != nil {
			return err
		}
		if session.State != domain.StateInProgress {
			return domain.ErrNotInProgress
		}
		if _, ok := session.Participant(caller.ID); !ok {
			return domain.ErrNotParticipant
		}
		question := session.CurrentQuestion
		if question == nil || question.Closed() {
			return domain.ErrNoOpenQuestion
		}

		now := s.now()
		if now.After(question.Deadline.Add(s.settings.AnswerSlack)) {
			return domain.ErrDeadlinePassed
		}

		state, err := tx.State()
		if err != nil {
			return err
		}
		if state.HasAnswered(question.ID, caller.ID) {
			return domain.ErrAlreadyAnswered
		}
		if state.CurrentCorrectAnswer.QuestionID != question.ID {
			return domain.ErrStaleQuestion
		}

		recorded = domain.GivenAnswer{
			QuestionID:    question.ID,
			ParticipantID: caller.ID,
			Coordinate:    at,
			Distance:      scoring.Distance(at, state.CurrentCorrectAnswer.Answer),
			Timestamp:     now,
		}
		return tx.AppendAnswers(recorded)
	})
	if err != nil {
		return domain.GivenAnswer{}, err
	}
	return recorded, nil
}

// AdvanceOutcome tells the host what an Advance call did.
type AdvanceOutcome string

const (
	// OutcomeBackfilled means penalty answers were added for missing participants and
	// the question is still open; call Advance again to close it.
	OutcomeBackfilled AdvanceOutcome = "backfilled"
	// OutcomeNextQuestion means the question was closed and the next one opened.
	OutcomeNextQuestion AdvanceOutcome = "next-question"
	// OutcomeFinished means the last question was closed and the session is over.
	OutcomeFinished AdvanceOutcome = "finished"
)

// AdvanceResult is returned by Advance.
type AdvanceResult struct {
	Outcome AdvanceOutcome `json:"outcome"`
	// Backfilled lists the participants that received a penalty answer.
	Backfilled []string           `json:"backfilled,omitempty"`
	Session    domain.QuizSession `json:"session"`
}

// Advance is the host's "next question". While participants are missing an answer it
// only backfills penalty answers for them; once everyone is accounted for it reveals the
// question, recomputes the standings and either opens the next question or ends the session.
func (s *SessionService) Advance(ctx context.Context, sessionID string, caller domain.Identity) (AdvanceResult, error) {
	if err := requireIdentity(caller); err != nil {
		return AdvanceResult{}, err
	}

	var (
		result AdvanceResult
		closed domain.CurrentQuestion
	)
	err := s.sessions.RunInTx(ctx, sessionID, func(tx SessionTx) error {
		result = AdvanceResult{}

		session, err := tx.Session()
		if err != nil {
			return err
		}
		if !session.IsHost(caller.ID) {
			return domain.ErrNotHost
		}
		if session.State != domain.StateInProgress {
			return domain.ErrNotInProgress
		}
		state, err := tx.State()
		if err != nil {
			return err
		}
		question := session.CurrentQuestion
		if question == nil || question.Closed() {
			return domain.ErrNoOpenQuestion
		}

		quiz, err := s.loadQuiz(ctx, session.QuizDetails.ID)
		if err != nil {
			return err
		}
		index := quiz.QuestionIndex(question.ID)
		if index < 0 {
			return domain.ErrQuestionNotFound
		}
		if state.CurrentCorrectAnswer.QuestionID != question.ID {
			return domain.ErrStaleQuestion
		}

		now := s.now()
		answers := state.AnswersFor(question.ID)

		if missing := missingParticipants(session.Participants, answers); len(missing) > 0 {
			penalty := scoring.PenaltyDistance(answers, s.settings.PenaltyFallbackDistance)
			anchor := scoring.Anchor(state.CurrentCorrectAnswer.Answer)
			backfill := make([]domain.GivenAnswer, 0, len(missing))
			for _, p := range missing {
				backfill = append(backfill, domain.GivenAnswer{
					QuestionID:    question.ID,
					ParticipantID: p.ID,
					Coordinate:    scoring.Project(anchor, penalty, scoring.Bearing(session.ID, question.ID, p.ID)),
					Distance:      penalty,
					Timestamp:     now,
					Penalty:       true,
				})
				result.Backfilled = append(result.Backfilled, p.ID)
			}
			result.Outcome = OutcomeBackfilled
			result.Session = session
			return tx.AppendAnswers(backfill...)
		}

		session.Reveal(state.CurrentCorrectAnswer.Answer, answers)
		session.Results = scoring.Standings(session.Participants, state.GivenAnswers)
		closed = *session.CurrentQuestion

		if index == len(quiz.Questions)-1 {
			if err := session.Transition(domain.StateOver); err != nil {
				return err
			}
			result.Outcome = OutcomeFinished
		} else {
			next := quiz.Questions[index+1]
			session.OpenQuestion(next, index+1, now)
			state.CurrentCorrectAnswer = domain.CorrectAnswer{QuestionID: next.ID, Answer: next.Answer}
			tx.PutState(state)
			result.Outcome = OutcomeNextQuestion
		}
		tx.PutSession(session)
		result.Session = session
		return nil
	})
	if err != nil {
		return AdvanceResult{}, err
	}

	if result.Outcome != OutcomeBackfilled {
		s.announce(ctx, result, closed)
	}
	return result, nil
}

func (s *SessionService) announce(ctx context.Context, result AdvanceResult, closed domain.CurrentQuestion) {
	session := result.Session
	s.publish(ctx, domain.SessionEvent{
		Type:          domain.EventQuestionClosed,
		SessionID:     session.ID,
		QuizID:        session.QuizDetails.ID,
		QuestionID:    closed.ID,
		QuestionIndex: closed.Index,
		Results:       session.Results,
	})
	if result.Outcome == OutcomeFinished {
		s.publish(ctx, domain.SessionEvent{
			Type:          domain.EventSessionOver,
			SessionID:     session.ID,
			QuizID:        session.QuizDetails.ID,
			QuestionID:    closed.ID,
			QuestionIndex: closed.Index,
			Results:       session.Results,
		})
	}
}

// missingParticipants returns, in join order, everyone without an answer.
func missingParticipants(participants []domain.Player, answers []domain.GivenAnswer) []domain.Player {
	answered := make(map[string]struct{}, len(answers))
	for _, a := range answers {
		answered[a.ParticipantID] = struct{}{}
	}
	var missing []domain.Player
	for _, p := range participants {
		if _, ok := answered[p.ID]; !ok {
			missing = append(missing, p)
		}
	}
	return missing
}

// loadQuiz fetches a template and fills in index-derived question ids the template left empty.
func (s *SessionService) loadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	quiz, err := s.quizzes.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions := make([]domain.Question, len(quiz.Questions))
	for i, q := range quiz.Questions {
		if q.ID == "" {
			q.ID = domain.QuestionID(i)
		}
		questions[i] = q
	}
	quiz.Questions = questions
	return quiz, nil
}
