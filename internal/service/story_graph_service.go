package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"artstory-server/internal/ai"
	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"

	"go.uber.org/zap"
)

const segmentSystemPrompt = "You are a master storyteller for kids writing an interactive choose-your-own-adventure " +
	"story set on Uncle Mark's forest farm, starring the Yorkshire terriers Pawel (male, impulsive) and Pawleen " +
	"(female, thoughtful). You receive the story context as JSON: the characters, setting, mood, conflict and the " +
	"previous segments with the choice the reader made after each one. Continue the story with one vivid segment " +
	"of a few paragraphs with emojis, then offer exactly two different choices for what happens next. " +
	"Respond with a JSON object: {\"content\": \"segment text\", \"choices\": [\"first choice\", \"second choice\"]}."

// BeginRequest - параметры новой сессии.
type BeginRequest struct {
	Params       models.StoryParams
	CharacterIDs []int64
}

// HistoryEntry - сегмент на пути от корня и выбор, сделанный в нём (nil для текущего).
type HistoryEntry struct {
	Segment    *models.StorySegment `json:"segment"`
	ChoiceMade *models.StoryChoice  `json:"choice_made,omitempty"`
}

// SessionView - состояние сессии для клиента.
type SessionView struct {
	Session        *models.StorySession   `json:"session"`
	State          models.SessionState    `json:"state"`
	CurrentSegment *models.StorySegment   `json:"current_segment,omitempty"`
	Choices        []*models.StoryChoice  `json:"choices"`
	History        []HistoryEntry         `json:"history"`
	Characters     []models.CharacterInfo `json:"characters"`
}

// GraphView - полный снимок дерева сессии и журнал выборов.
type GraphView struct {
	Session       *models.StorySession  `json:"session"`
	Segments      []models.StorySegment `json:"segments"`
	Choices       []models.StoryChoice  `json:"choices"`
	PlayerChoices []models.PlayerChoice `json:"player_choices"`
}

// StoryGraphService - движок интерактивной истории.
type StoryGraphService interface {
	Begin(ctx context.Context, req BeginRequest) (*models.StorySession, error)
	// Choose переходит по выбору. Уже сгенерированный сегмент переиспользуется.
	Choose(ctx context.Context, choiceID int64) (int64, error)
	// Regenerate всегда генерирует новый сегмент для выбора и перепривязывает выбор к нему.
	Regenerate(ctx context.Context, choiceID int64) (int64, error)
	Complete(ctx context.Context, sessionID int64) error
	GetSession(ctx context.Context, sessionID int64) (*SessionView, error)
	GetGraph(ctx context.Context, sessionID int64) (*GraphView, error)
}

type storyGraphServiceImpl struct {
	client      ai.Client
	db          interfaces.DBTX
	tx          interfaces.TxManager
	sessions    interfaces.SessionRepository
	segments    interfaces.SegmentRepository
	analyses    interfaces.AnalysisRepository
	temperature float64
	logger      *zap.Logger
}

func NewStoryGraphService(
	client ai.Client,
	db interfaces.DBTX,
	tx interfaces.TxManager,
	sessions interfaces.SessionRepository,
	segments interfaces.SegmentRepository,
	analyses interfaces.AnalysisRepository,
	temperature float64,
	logger *zap.Logger,
) StoryGraphService {
	return &storyGraphServiceImpl{
		client:      client,
		db:          db,
		tx:          tx,
		sessions:    sessions,
		segments:    segments,
		analyses:    analyses,
		temperature: temperature,
		logger:      logger.Named("StoryGraphService"),
	}
}

func (s *storyGraphServiceImpl) Begin(ctx context.Context, req BeginRequest) (*models.StorySession, error) {
	params := req.Params.Resolve()
	if err := requireResolved(params, false); err != nil {
		return nil, err
	}

	characterIDs := uniqueIDs(req.CharacterIDs)
	characters, err := s.loadCharacters(ctx, s.db, characterIDs)
	if err != nil {
		return nil, err
	}

	// Генерация до транзакции: при ошибке модели ничего не пишется
	draft, err := s.generateSegment(ctx, "begin", models.FirstSegmentContext(characters, params))
	if err != nil {
		return nil, err
	}

	session := &models.StorySession{Setting: params.Setting, Mood: params.Mood, Conflict: params.Conflict}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.sessions.Create(ctx, tx, session); err != nil {
			return err
		}
		if err := s.sessions.AttachCharacters(ctx, tx, session.ID, characterIDs); err != nil {
			return err
		}
		root, err := s.insertSegment(ctx, tx, session.ID, 1, nil, draft)
		if err != nil {
			return err
		}
		if err := s.sessions.SetCurrentSegment(ctx, tx, session.ID, root.ID); err != nil {
			return err
		}
		session.CurrentSegmentID = &root.ID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to store new story session: %w", err)
	}

	s.logger.Info("Story session started",
		zap.Int64("sessionID", session.ID),
		zap.Int64s("characterIDs", characterIDs),
		zap.Int64("rootSegmentID", *session.CurrentSegmentID),
	)
	return session, nil
}

func (s *storyGraphServiceImpl) Choose(ctx context.Context, choiceID int64) (int64, error) {
	choice, session, err := s.loadChoice(ctx, choiceID)
	if err != nil {
		return 0, err
	}
	log := s.logger.With(zap.Int64("sessionID", session.ID), zap.Int64("choiceID", choiceID))

	if choice.NextSegmentID != nil {
		var nextID int64
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
			if _, err := s.lockOpenSession(ctx, tx, session.ID); err != nil {
				return err
			}
			// Ссылку перечитываем под блокировкой: Regenerate мог перепривязать выбор
			locked, err := s.segments.LockChoice(ctx, tx, choiceID)
			if err != nil {
				return err
			}
			if locked.NextSegmentID == nil {
				return fmt.Errorf("choice %d lost its next segment", choiceID)
			}
			nextID = *locked.NextSegmentID
			return s.recordChoice(ctx, tx, session.ID, choiceID, nextID)
		})
		if err != nil {
			return 0, err
		}
		segmentMemoHitsTotal.Inc()
		log.Info("Choice replayed", zap.Int64("nextSegmentID", nextID))
		return nextID, nil
	}

	draft, err := s.generateForChoice(ctx, "choose", session, choiceID)
	if err != nil {
		return 0, err
	}

	var nextID int64
	reused := false
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if _, err := s.lockOpenSession(ctx, tx, session.ID); err != nil {
			return err
		}
		locked, err := s.segments.LockChoice(ctx, tx, choiceID)
		if err != nil {
			return err
		}
		// Параллельный запрос успел сгенерировать сегмент - берём его, свой текст выбрасываем
		if locked.NextSegmentID != nil {
			nextID = *locked.NextSegmentID
			reused = true
			return s.recordChoice(ctx, tx, session.ID, choiceID, nextID)
		}
		nextID, err = s.growBranch(ctx, tx, session.ID, locked, draft)
		if err != nil {
			return err
		}
		return s.recordChoice(ctx, tx, session.ID, choiceID, nextID)
	})
	if err != nil {
		return 0, err
	}

	if reused {
		segmentMemoHitsTotal.Inc()
		log.Info("Choice resolved by concurrent request, generated segment discarded", zap.Int64("nextSegmentID", nextID))
	} else {
		log.Info("Story segment generated", zap.Int64("nextSegmentID", nextID))
	}
	return nextID, nil
}

func (s *storyGraphServiceImpl) Regenerate(ctx context.Context, choiceID int64) (int64, error) {
	_, session, err := s.loadChoice(ctx, choiceID)
	if err != nil {
		return 0, err
	}

	draft, err := s.generateForChoice(ctx, "regenerate", session, choiceID)
	if err != nil {
		return 0, err
	}

	var nextID int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if _, err := s.lockOpenSession(ctx, tx, session.ID); err != nil {
			return err
		}
		locked, err := s.segments.LockChoice(ctx, tx, choiceID)
		if err != nil {
			return err
		}
		nextID, err = s.growBranch(ctx, tx, session.ID, locked, draft)
		if err != nil {
			return err
		}
		return s.recordChoice(ctx, tx, session.ID, choiceID, nextID)
	})
	if err != nil {
		return 0, err
	}
	s.logger.Info("Branch regenerated",
		zap.Int64("sessionID", session.ID), zap.Int64("choiceID", choiceID), zap.Int64("nextSegmentID", nextID))
	return nextID, nil
}

func (s *storyGraphServiceImpl) Complete(ctx context.Context, sessionID int64) error {
	return s.tx.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		session, err := s.sessions.LockByID(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.IsCompleted {
			return nil
		}
		if err := s.sessions.MarkCompleted(ctx, tx, sessionID); err != nil {
			return err
		}
		s.logger.Info("Story session completed", zap.Int64("sessionID", sessionID))
		return nil
	})
}

func (s *storyGraphServiceImpl) GetSession(ctx context.Context, sessionID int64) (*SessionView, error) {
	session, err := s.sessions.GetByID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	graph, err := s.loadGraph(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	characters, err := s.sessionCharacters(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}

	view := &SessionView{
		Session:    session,
		State:      session.State(),
		Choices:    []*models.StoryChoice{},
		History:    []HistoryEntry{},
		Characters: characters,
	}
	if session.CurrentSegmentID == nil {
		return view, nil
	}

	current, ok := graph.Segment(*session.CurrentSegmentID)
	if !ok {
		return nil, fmt.Errorf("current segment %d of session %d is missing", *session.CurrentSegmentID, sessionID)
	}
	view.CurrentSegment = current
	if choices := graph.ChoicesOf(current.ID); choices != nil {
		view.Choices = choices
	}

	steps, err := graph.PathTo(current.ID)
	if err != nil {
		return nil, err
	}
	for _, step := range steps {
		view.History = append(view.History, HistoryEntry{Segment: step.Segment, ChoiceMade: step.Choice})
	}
	return view, nil
}

func (s *storyGraphServiceImpl) GetGraph(ctx context.Context, sessionID int64) (*GraphView, error) {
	session, err := s.sessions.GetByID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	segments, err := s.segments.ListSegments(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	choices, err := s.segments.ListChoices(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	log, err := s.sessions.ListPlayerChoices(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	return &GraphView{Session: session, Segments: segments, Choices: choices, PlayerChoices: log}, nil
}

// loadChoice находит выбор и его сессию. Завершённая сессия - ErrSessionCompleted.
func (s *storyGraphServiceImpl) loadChoice(ctx context.Context, choiceID int64) (*models.StoryChoice, *models.StorySession, error) {
	choice, err := s.segments.GetChoice(ctx, s.db, choiceID)
	if err != nil {
		return nil, nil, err
	}
	segment, err := s.segments.GetSegment(ctx, s.db, choice.SegmentID)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.sessions.GetByID(ctx, s.db, segment.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if session.IsCompleted {
		return nil, nil, fmt.Errorf("%w: session %d", models.ErrSessionCompleted, session.ID)
	}
	return choice, session, nil
}

func (s *storyGraphServiceImpl) lockOpenSession(ctx context.Context, tx interfaces.DBTX, sessionID int64) (*models.StorySession, error) {
	session, err := s.sessions.LockByID(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsCompleted {
		return nil, fmt.Errorf("%w: session %d", models.ErrSessionCompleted, sessionID)
	}
	return session, nil
}

// generateForChoice собирает контекст по пути от корня и генерирует следующий сегмент.
func (s *storyGraphServiceImpl) generateForChoice(ctx context.Context, operation string, session *models.StorySession, choiceID int64) (*models.SegmentDraft, error) {
	graph, err := s.loadGraph(ctx, s.db, session.ID)
	if err != nil {
		return nil, err
	}
	characters, err := s.sessionCharacters(ctx, s.db, session.ID)
	if err != nil {
		return nil, err
	}
	params := models.ResolvedStoryParams{Conflict: session.Conflict, Setting: session.Setting, Mood: session.Mood}
	segCtx, err := graph.ContextForChoice(choiceID, characters, params)
	if err != nil {
		return nil, err
	}
	return s.generateSegment(ctx, operation, segCtx)
}

// growBranch вставляет сегмент под выбором с двумя выборами и привязывает выбор к нему.
func (s *storyGraphServiceImpl) growBranch(ctx context.Context, tx interfaces.DBTX, sessionID int64, choice *models.StoryChoice, draft *models.SegmentDraft) (int64, error) {
	parent, err := s.segments.GetSegment(ctx, tx, choice.SegmentID)
	if err != nil {
		return 0, err
	}
	segment, err := s.insertSegment(ctx, tx, sessionID, parent.SequenceNumber+1, &choice.ID, draft)
	if err != nil {
		return 0, err
	}
	if err := s.segments.LinkChoice(ctx, tx, choice.ID, segment.ID); err != nil {
		return 0, err
	}
	return segment.ID, nil
}

func (s *storyGraphServiceImpl) insertSegment(ctx context.Context, tx interfaces.DBTX, sessionID int64, seq int, parentChoiceID *int64, draft *models.SegmentDraft) (*models.StorySegment, error) {
	segment := &models.StorySegment{
		SessionID:      sessionID,
		Content:        draft.Content,
		SequenceNumber: seq,
		ParentChoiceID: parentChoiceID,
	}
	if err := s.segments.CreateSegment(ctx, tx, segment); err != nil {
		return nil, err
	}
	for i, text := range draft.Choices {
		choice := &models.StoryChoice{SegmentID: segment.ID, Content: text, Position: i + 1}
		if err := s.segments.CreateChoice(ctx, tx, choice); err != nil {
			return nil, err
		}
	}
	return segment, nil
}

// recordChoice дописывает выбор в журнал (номер = число прошлых + 1) и двигает текущий сегмент.
// Вызывается под блокировкой строки сессии.
func (s *storyGraphServiceImpl) recordChoice(ctx context.Context, tx interfaces.DBTX, sessionID, choiceID, nextSegmentID int64) error {
	count, err := s.sessions.CountPlayerChoices(ctx, tx, sessionID)
	if err != nil {
		return err
	}
	pc := &models.PlayerChoice{SessionID: sessionID, ChoiceID: choiceID, SequenceNumber: count + 1}
	if err := s.sessions.AppendPlayerChoice(ctx, tx, pc); err != nil {
		return err
	}
	return s.sessions.SetCurrentSegment(ctx, tx, sessionID, nextSegmentID)
}

func (s *storyGraphServiceImpl) loadGraph(ctx context.Context, db interfaces.DBTX, sessionID int64) (*models.StoryGraph, error) {
	segments, err := s.segments.ListSegments(ctx, db, sessionID)
	if err != nil {
		return nil, err
	}
	choices, err := s.segments.ListChoices(ctx, db, sessionID)
	if err != nil {
		return nil, err
	}
	return models.NewStoryGraph(sessionID, segments, choices)
}

func (s *storyGraphServiceImpl) sessionCharacters(ctx context.Context, db interfaces.DBTX, sessionID int64) ([]models.CharacterInfo, error) {
	ids, err := s.sessions.ListCharacterIDs(ctx, db, sessionID)
	if err != nil {
		return nil, err
	}
	return s.loadCharacters(ctx, db, ids)
}

func (s *storyGraphServiceImpl) loadCharacters(ctx context.Context, db interfaces.DBTX, ids []int64) ([]models.CharacterInfo, error) {
	analyses, err := s.analyses.GetByIDs(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	characters := make([]models.CharacterInfo, 0, len(analyses))
	for i := range analyses {
		characters = append(characters, analyses[i].Character())
	}
	return characters, nil
}

// generateSegment вызывает модель. Любая ошибка оборачивается в ErrSegmentGeneration.
func (s *storyGraphServiceImpl) generateSegment(ctx context.Context, operation string, segCtx models.SegmentContext) (*models.SegmentDraft, error) {
	payload, err := json.MarshalIndent(segCtx, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("%w: failed to encode context: %v", models.ErrSegmentGeneration, err)
	}

	temperature := s.temperature
	reply, _, err := s.client.Chat(ctx, ai.ChatRequest{
		Operation:    ai.OperationSegment,
		SystemPrompt: segmentSystemPrompt,
		UserPrompt:   "Story context:\n" + string(payload),
		JSONMode:     true,
		Temperature:  &temperature,
	})
	if err != nil {
		segmentsGeneratedTotal.WithLabelValues(operation, "upstream_error").Inc()
		return nil, fmt.Errorf("%w: %w", models.ErrSegmentGeneration, err)
	}

	draft, err := ParseSegmentReply(reply)
	if err != nil {
		segmentsGeneratedTotal.WithLabelValues(operation, "parse_error").Inc()
		s.logger.Warn("Segment reply has unexpected shape", zap.Error(err), zap.String("reply", truncate(reply, 500)))
		return nil, fmt.Errorf("%w: %w", models.ErrSegmentGeneration, err)
	}
	segmentsGeneratedTotal.WithLabelValues(operation, "success").Inc()
	return draft, nil
}

// ParseSegmentReply требует content и ровно два непустых варианта в choices.
func ParseSegmentReply(reply string) (*models.SegmentDraft, error) {
	fields, err := decodeReplyObject(reply)
	if err != nil {
		return nil, err
	}
	content, err := requireString(fields, "content")
	if err != nil {
		return nil, err
	}

	raw, ok := fields["choices"]
	if !ok {
		return nil, fmt.Errorf("%w: missing key 'choices'", models.ErrUpstreamParse)
	}
	var choices []string
	if err := json.Unmarshal(raw, &choices); err != nil {
		return nil, fmt.Errorf("%w: choices must be a list of strings", models.ErrUpstreamParse)
	}
	if len(choices) != models.ChoicesPerSegment {
		return nil, fmt.Errorf("%w: expected %d choices, got %d", models.ErrUpstreamParse, models.ChoicesPerSegment, len(choices))
	}

	draft := &models.SegmentDraft{Content: content}
	for i, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" {
			return nil, fmt.Errorf("%w: choice %d is empty", models.ErrUpstreamParse, i+1)
		}
		draft.Choices[i] = c
	}
	return draft, nil
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
