package service_test

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"artstory-server/internal/interfaces"
	"artstory-server/internal/models"
)

var errInjected = errors.New("injected failure")

// memStore - хранилище в памяти для тестов сервисов.
// Транзакции сериализуются, ошибка в fn восстанавливает снимок.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	nextID        int64
	instructions  map[int64]models.AnalysisInstruction
	hashtags      map[int64]models.HashtagCollection
	analyses      map[int64]models.ImageAnalysis
	stories       map[int64]models.StoryGeneration
	storyImages   map[int64][]int64
	sessions      map[int64]models.StorySession
	sessionChars  map[int64][]int64
	segments      map[int64]models.StorySegment
	choices       map[int64]models.StoryChoice
	playerChoices []models.PlayerChoice

	// failCreateChoice - ошибка при вставке выбора; проверка атомарности
	failCreateChoice bool
	// beforeLockChoice вызывается в LockChoice; имитирует параллельный запрос
	beforeLockChoice func(choiceID int64)
}

func newMemStore() *memStore {
	return &memStore{
		instructions: map[int64]models.AnalysisInstruction{},
		hashtags:     map[int64]models.HashtagCollection{},
		analyses:     map[int64]models.ImageAnalysis{},
		stories:      map[int64]models.StoryGeneration{},
		storyImages:  map[int64][]int64{},
		sessions:     map[int64]models.StorySession{},
		sessionChars: map[int64][]int64{},
		segments:     map[int64]models.StorySegment{},
		choices:      map[int64]models.StoryChoice{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (m *memStore) snapshot() *memStore {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &memStore{
		nextID:        m.nextID,
		instructions:  cloneMap(m.instructions),
		hashtags:      cloneMap(m.hashtags),
		analyses:      cloneMap(m.analyses),
		stories:       cloneMap(m.stories),
		storyImages:   cloneMap(m.storyImages),
		sessions:      cloneMap(m.sessions),
		sessionChars:  cloneMap(m.sessionChars),
		segments:      cloneMap(m.segments),
		choices:       cloneMap(m.choices),
		playerChoices: append([]models.PlayerChoice(nil), m.playerChoices...),
	}
}

func (m *memStore) restore(s *memStore) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID = s.nextID
	m.instructions = s.instructions
	m.hashtags = s.hashtags
	m.analyses = s.analyses
	m.stories = s.stories
	m.storyImages = s.storyImages
	m.sessions = s.sessions
	m.sessionChars = s.sessionChars
	m.segments = s.segments
	m.choices = s.choices
	m.playerChoices = s.playerChoices
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx interfaces.DBTX) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	snap := m.snapshot()
	if err := fn(ctx, nil); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *memStore) id() int64 {
	m.nextID++
	return m.nextID
}

func notFound(what string, id int64) error {
	return fmt.Errorf("%w: %s %d", models.ErrNotFound, what, id)
}

// --- instructions ---

type memInstructions struct{ *memStore }

func (r memInstructions) Create(_ context.Context, _ interfaces.DBTX, i *models.AnalysisInstruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i.IsDefault {
		for _, other := range r.instructions {
			if other.IsDefault {
				return errors.New("unique violation: ai_instructions_single_default")
			}
		}
	}
	i.ID = r.id()
	i.CreatedAt = time.Now()
	r.instructions[i.ID] = *i
	return nil
}

func (r memInstructions) Update(_ context.Context, _ interfaces.DBTX, i *models.AnalysisInstruction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.instructions[i.ID]
	if !ok {
		return notFound("instruction", i.ID)
	}
	if i.IsDefault {
		for id, other := range r.instructions {
			if id != i.ID && other.IsDefault {
				return errors.New("unique violation: ai_instructions_single_default")
			}
		}
	}
	upd := *i
	upd.CreatedAt = cur.CreatedAt
	r.instructions[i.ID] = upd
	return nil
}

func (r memInstructions) GetByID(_ context.Context, _ interfaces.DBTX, id int64) (*models.AnalysisInstruction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.instructions[id]
	if !ok {
		return nil, notFound("instruction", id)
	}
	return &i, nil
}

func (r memInstructions) LockByID(ctx context.Context, db interfaces.DBTX, id int64) (*models.AnalysisInstruction, error) {
	return r.GetByID(ctx, db, id)
}

func (r memInstructions) GetDefault(_ context.Context, _ interfaces.DBTX) (*models.AnalysisInstruction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, i := range r.instructions {
		if i.IsDefault {
			return &i, nil
		}
	}
	return nil, fmt.Errorf("%w: default instruction", models.ErrNotFound)
}

func (r memInstructions) List(_ context.Context, _ interfaces.DBTX) ([]models.AnalysisInstruction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.AnalysisInstruction, 0, len(r.instructions))
	for _, i := range r.instructions {
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r memInstructions) Delete(_ context.Context, _ interfaces.DBTX, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.instructions[id]; !ok {
		return notFound("instruction", id)
	}
	delete(r.instructions, id)
	return nil
}

func (r memInstructions) ClearDefault(_ context.Context, _ interfaces.DBTX, exceptID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, i := range r.instructions {
		if id != exceptID && i.IsDefault {
			i.IsDefault = false
			r.instructions[id] = i
		}
	}
	return nil
}

// --- hashtags ---

type memHashtags struct{ *memStore }

func (r memHashtags) Create(_ context.Context, _ interfaces.DBTX, c *models.HashtagCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.IsDefault {
		for _, other := range r.hashtags {
			if other.IsDefault {
				return errors.New("unique violation: hashtag_collections_single_default")
			}
		}
	}
	c.ID = r.id()
	c.CreatedAt = time.Now()
	r.hashtags[c.ID] = *c
	return nil
}

func (r memHashtags) GetByID(_ context.Context, _ interfaces.DBTX, id int64) (*models.HashtagCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.hashtags[id]
	if !ok {
		return nil, notFound("hashtag collection", id)
	}
	return &c, nil
}

func (r memHashtags) LockByID(ctx context.Context, db interfaces.DBTX, id int64) (*models.HashtagCollection, error) {
	return r.GetByID(ctx, db, id)
}

func (r memHashtags) GetDefault(_ context.Context, _ interfaces.DBTX) (*models.HashtagCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.hashtags {
		if c.IsDefault {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("%w: default hashtag collection", models.ErrNotFound)
}

func (r memHashtags) List(_ context.Context, _ interfaces.DBTX) ([]models.HashtagCollection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.HashtagCollection, 0, len(r.hashtags))
	for _, c := range r.hashtags {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (r memHashtags) Delete(_ context.Context, _ interfaces.DBTX, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hashtags[id]; !ok {
		return notFound("hashtag collection", id)
	}
	delete(r.hashtags, id)
	return nil
}

func (r memHashtags) ClearDefault(_ context.Context, _ interfaces.DBTX, exceptID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.hashtags {
		if id != exceptID && c.IsDefault {
			c.IsDefault = false
			r.hashtags[id] = c
		}
	}
	return nil
}

// --- analyses ---

type memAnalyses struct{ *memStore }

func (r memAnalyses) Create(_ context.Context, _ interfaces.DBTX, a *models.ImageAnalysis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a.ID = r.id()
	a.CreatedAt = time.Now()
	r.analyses[a.ID] = *a
	return nil
}

func (r memAnalyses) GetByID(_ context.Context, _ interfaces.DBTX, id int64) (*models.ImageAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.analyses[id]
	if !ok {
		return nil, notFound("image analysis", id)
	}
	return &a, nil
}

func (r memAnalyses) GetByIDs(_ context.Context, _ interfaces.DBTX, ids []int64) ([]models.ImageAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.ImageAnalysis, 0, len(ids))
	for _, id := range ids {
		a, ok := r.analyses[id]
		if !ok {
			return nil, notFound("image analysis", id)
		}
		out = append(out, a)
	}
	return out, nil
}

// Random в тестах детерминирован: по возрастанию id.
func (r memAnalyses) Random(_ context.Context, _ interfaces.DBTX, limit int, excludeIDs []int64) ([]models.ImageAnalysis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	excluded := map[int64]bool{}
	for _, id := range excludeIDs {
		excluded[id] = true
	}
	out := []models.ImageAnalysis{}
	for _, a := range r.analyses {
		if !excluded[a.ID] {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- stories ---

type memStories struct{ *memStore }

func (r memStories) Create(_ context.Context, _ interfaces.DBTX, s *models.StoryGeneration, imageIDs []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range imageIDs {
		if _, ok := r.analyses[id]; !ok {
			return notFound("image analysis", id)
		}
	}
	s.ID = r.id()
	s.CreatedAt = time.Now()
	r.stories[s.ID] = *s
	r.storyImages[s.ID] = append([]int64(nil), imageIDs...)
	return nil
}

// --- sessions ---

type memSessions struct{ *memStore }

func (r memSessions) Create(_ context.Context, _ interfaces.DBTX, s *models.StorySession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s.ID = r.id()
	s.CreatedAt = time.Now()
	s.UpdatedAt = s.CreatedAt
	r.sessions[s.ID] = *s
	return nil
}

func (r memSessions) AttachCharacters(_ context.Context, _ interfaces.DBTX, sessionID int64, ids []int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionChars[sessionID] = append([]int64(nil), ids...)
	return nil
}

func (r memSessions) ListCharacterIDs(_ context.Context, _ interfaces.DBTX, sessionID int64) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64{}, r.sessionChars[sessionID]...), nil
}

func (r memSessions) GetByID(_ context.Context, _ interfaces.DBTX, id int64) (*models.StorySession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, notFound("story session", id)
	}
	return &s, nil
}

func (r memSessions) LockByID(ctx context.Context, db interfaces.DBTX, id int64) (*models.StorySession, error) {
	return r.GetByID(ctx, db, id)
}

func (r memSessions) SetCurrentSegment(_ context.Context, _ interfaces.DBTX, sessionID, segmentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return notFound("story session", sessionID)
	}
	id := segmentID
	s.CurrentSegmentID = &id
	s.UpdatedAt = time.Now()
	r.sessions[sessionID] = s
	return nil
}

func (r memSessions) MarkCompleted(_ context.Context, _ interfaces.DBTX, sessionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	if !ok {
		return notFound("story session", sessionID)
	}
	s.IsCompleted = true
	r.sessions[sessionID] = s
	return nil
}

func (r memSessions) CountPlayerChoices(_ context.Context, _ interfaces.DBTX, sessionID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, pc := range r.playerChoices {
		if pc.SessionID == sessionID {
			n++
		}
	}
	return n, nil
}

func (r memSessions) AppendPlayerChoice(_ context.Context, _ interfaces.DBTX, pc *models.PlayerChoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.playerChoices {
		if existing.SessionID == pc.SessionID && existing.SequenceNumber == pc.SequenceNumber {
			return errors.New("unique violation: player_choices (session_id, sequence_number)")
		}
	}
	pc.ID = r.id()
	pc.CreatedAt = time.Now()
	r.playerChoices = append(r.playerChoices, *pc)
	return nil
}

func (r memSessions) ListPlayerChoices(_ context.Context, _ interfaces.DBTX, sessionID int64) ([]models.PlayerChoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.PlayerChoice{}
	for _, pc := range r.playerChoices {
		if pc.SessionID == sessionID {
			out = append(out, pc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

// --- segments ---

type memSegments struct{ *memStore }

func (r memSegments) CreateSegment(_ context.Context, _ interfaces.DBTX, s *models.StorySegment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ParentChoiceID == nil {
		for _, other := range r.segments {
			if other.SessionID == s.SessionID && other.ParentChoiceID == nil {
				return errors.New("unique violation: story_segments_single_root")
			}
		}
	}
	s.ID = r.id()
	s.CreatedAt = time.Now()
	r.segments[s.ID] = *s
	return nil
}

func (r memSegments) CreateChoice(_ context.Context, _ interfaces.DBTX, c *models.StoryChoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failCreateChoice {
		return errInjected
	}
	c.ID = r.id()
	c.CreatedAt = time.Now()
	r.choices[c.ID] = *c
	return nil
}

func (r memSegments) GetChoice(_ context.Context, _ interfaces.DBTX, id int64) (*models.StoryChoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.choices[id]
	if !ok {
		return nil, notFound("story choice", id)
	}
	return &c, nil
}

func (r memSegments) LockChoice(ctx context.Context, db interfaces.DBTX, id int64) (*models.StoryChoice, error) {
	if r.beforeLockChoice != nil {
		r.beforeLockChoice(id)
	}
	return r.GetChoice(ctx, db, id)
}

func (r memSegments) LinkChoice(_ context.Context, _ interfaces.DBTX, choiceID, segmentID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.choices[choiceID]
	if !ok {
		return notFound("story choice", choiceID)
	}
	id := segmentID
	c.NextSegmentID = &id
	r.choices[choiceID] = c
	return nil
}

func (r memSegments) GetSegment(_ context.Context, _ interfaces.DBTX, id int64) (*models.StorySegment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.segments[id]
	if !ok {
		return nil, notFound("story segment", id)
	}
	return &s, nil
}

func (r memSegments) ListSegments(_ context.Context, _ interfaces.DBTX, sessionID int64) ([]models.StorySegment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.StorySegment{}
	for _, s := range r.segments {
		if s.SessionID == sessionID {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SequenceNumber != out[j].SequenceNumber {
			return out[i].SequenceNumber < out[j].SequenceNumber
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r memSegments) ListChoices(_ context.Context, _ interfaces.DBTX, sessionID int64) ([]models.StoryChoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.StoryChoice{}
	for _, c := range r.choices {
		if seg, ok := r.segments[c.SegmentID]; ok && seg.SessionID == sessionID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SegmentID != out[j].SegmentID {
			return out[i].SegmentID < out[j].SegmentID
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// segmentCount - число сегментов сессии.
func (m *memStore) segmentCount(sessionID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, s := range m.segments {
		if s.SessionID == sessionID {
			n++
		}
	}
	return n
}

var (
	_ interfaces.TxManager                 = (*memStore)(nil)
	_ interfaces.InstructionRepository     = memInstructions{}
	_ interfaces.HashtagRepository         = memHashtags{}
	_ interfaces.AnalysisRepository        = memAnalyses{}
	_ interfaces.StoryGenerationRepository = memStories{}
	_ interfaces.SessionRepository         = memSessions{}
	_ interfaces.SegmentRepository         = memSegments{}
)
