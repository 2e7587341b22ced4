package models

import (
	"fmt"
	"sort"
)

// StoryGraph - арена сегментов и выборов одной сессии.
// Сегменты и выборы индексируются по id, next хранит мемоизированный переход выбор -> сегмент.
type StoryGraph struct {
	SessionID int64

	segments  map[int64]*StorySegment
	choices   map[int64]*StoryChoice
	bySegment map[int64][]*StoryChoice
	next      map[int64]int64
	rootID    int64
}

// PathStep - шаг пути от корня: сегмент и выбор, сделанный в нём (nil для последнего).
type PathStep struct {
	Segment *StorySegment
	Choice  *StoryChoice
}

// NewStoryGraph строит арену из строк хранилища и проверяет ссылки.
func NewStoryGraph(sessionID int64, segments []StorySegment, choices []StoryChoice) (*StoryGraph, error) {
	g := &StoryGraph{
		SessionID: sessionID,
		segments:  make(map[int64]*StorySegment, len(segments)),
		choices:   make(map[int64]*StoryChoice, len(choices)),
		bySegment: make(map[int64][]*StoryChoice, len(segments)),
		next:      make(map[int64]int64, len(choices)),
	}

	for i := range segments {
		s := &segments[i]
		if s.SessionID != sessionID {
			return nil, fmt.Errorf("segment %d belongs to session %d, not %d", s.ID, s.SessionID, sessionID)
		}
		g.segments[s.ID] = s
		if s.ParentChoiceID == nil {
			if g.rootID != 0 {
				return nil, fmt.Errorf("session %d has more than one root segment", sessionID)
			}
			g.rootID = s.ID
		}
	}

	for i := range choices {
		c := &choices[i]
		if _, ok := g.segments[c.SegmentID]; !ok {
			return nil, fmt.Errorf("choice %d refers to unknown segment %d", c.ID, c.SegmentID)
		}
		g.choices[c.ID] = c
		g.bySegment[c.SegmentID] = append(g.bySegment[c.SegmentID], c)
		if c.NextSegmentID != nil {
			if _, ok := g.segments[*c.NextSegmentID]; !ok {
				return nil, fmt.Errorf("choice %d points to unknown segment %d", c.ID, *c.NextSegmentID)
			}
			g.next[c.ID] = *c.NextSegmentID
		}
	}

	for _, list := range g.bySegment {
		sort.Slice(list, func(i, j int) bool {
			if list[i].Position != list[j].Position {
				return list[i].Position < list[j].Position
			}
			return list[i].ID < list[j].ID
		})
	}

	for _, s := range g.segments {
		if s.ParentChoiceID == nil {
			continue
		}
		if _, ok := g.choices[*s.ParentChoiceID]; !ok {
			return nil, fmt.Errorf("segment %d refers to unknown parent choice %d", s.ID, *s.ParentChoiceID)
		}
	}

	return g, nil
}

func (g *StoryGraph) Segment(id int64) (*StorySegment, bool) {
	s, ok := g.segments[id]
	return s, ok
}

func (g *StoryGraph) Choice(id int64) (*StoryChoice, bool) {
	c, ok := g.choices[id]
	return c, ok
}

// Root возвращает первый сегмент сессии.
func (g *StoryGraph) Root() (*StorySegment, bool) {
	if g.rootID == 0 {
		return nil, false
	}
	return g.segments[g.rootID], true
}

// ChoicesOf возвращает выборы сегмента в порядке позиции.
func (g *StoryGraph) ChoicesOf(segmentID int64) []*StoryChoice {
	return g.bySegment[segmentID]
}

// Next возвращает уже сгенерированный сегмент для выбора.
func (g *StoryGraph) Next(choiceID int64) (int64, bool) {
	id, ok := g.next[choiceID]
	return id, ok
}

// PathTo восстанавливает путь от корня до сегмента по обратным ссылкам parent_choice.
// Шаги идут по возрастанию sequence_number.
func (g *StoryGraph) PathTo(segmentID int64) ([]PathStep, error) {
	seg, ok := g.segments[segmentID]
	if !ok {
		return nil, fmt.Errorf("%w: segment %d", ErrNotFound, segmentID)
	}

	var steps []PathStep
	var taken *StoryChoice
	for {
		steps = append(steps, PathStep{Segment: seg, Choice: taken})
		if len(steps) > len(g.segments) {
			return nil, fmt.Errorf("cycle detected in session %d at segment %d", g.SessionID, seg.ID)
		}
		if seg.ParentChoiceID == nil {
			break
		}
		taken = g.choices[*seg.ParentChoiceID]
		seg = g.segments[taken.SegmentID]
	}

	for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
		steps[i], steps[j] = steps[j], steps[i]
	}
	return steps, nil
}

// ContextForChoice собирает контекст для генерации сегмента, следующего за выбором.
func (g *StoryGraph) ContextForChoice(choiceID int64, characters []CharacterInfo, params ResolvedStoryParams) (SegmentContext, error) {
	choice, ok := g.choices[choiceID]
	if !ok {
		return SegmentContext{}, fmt.Errorf("%w: choice %d", ErrNotFound, choiceID)
	}
	steps, err := g.PathTo(choice.SegmentID)
	if err != nil {
		return SegmentContext{}, err
	}

	prev := make([]PreviousSegment, 0, len(steps))
	for _, step := range steps {
		made := choice.Content
		if step.Choice != nil {
			made = step.Choice.Content
		}
		prev = append(prev, PreviousSegment{
			SequenceNumber: step.Segment.SequenceNumber,
			Content:        step.Segment.Content,
			ChoiceMade:     made,
		})
	}

	ctx := FirstSegmentContext(characters, params)
	ctx.PreviousSegments = prev
	ctx.IsFirstSegment = false
	return ctx, nil
}

// FirstSegmentContext - контекст для первого сегмента сессии.
func FirstSegmentContext(characters []CharacterInfo, params ResolvedStoryParams) SegmentContext {
	if characters == nil {
		characters = []CharacterInfo{}
	}
	return SegmentContext{
		Characters:       characters,
		Setting:          params.Setting,
		Mood:             params.Mood,
		Conflict:         params.Conflict,
		PreviousSegments: []PreviousSegment{},
		IsFirstSegment:   true,
	}
}

// Segments возвращает все сегменты по возрастанию sequence_number, затем id.
func (g *StoryGraph) Segments() []*StorySegment {
	out := make([]*StorySegment, 0, len(g.segments))
	for _, s := range g.segments {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SequenceNumber != out[j].SequenceNumber {
			return out[i].SequenceNumber < out[j].SequenceNumber
		}
		return out[i].ID < out[j].ID
	})
	return out
}
