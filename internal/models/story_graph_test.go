package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

// Дерево: S1 -(A)-> S2 -(C)-> S3, выбор B из S1 не пройден.
func buildGraph(t *testing.T) *StoryGraph {
	t.Helper()
	segments := []StorySegment{
		{ID: 3, SessionID: 1, Content: "third", SequenceNumber: 3, ParentChoiceID: ptr(21)},
		{ID: 1, SessionID: 1, Content: "first", SequenceNumber: 1},
		{ID: 2, SessionID: 1, Content: "second", SequenceNumber: 2, ParentChoiceID: ptr(11)},
	}
	choices := []StoryChoice{
		{ID: 12, SegmentID: 1, Content: "choice B", Position: 2},
		{ID: 11, SegmentID: 1, Content: "choice A", Position: 1, NextSegmentID: ptr(2)},
		{ID: 21, SegmentID: 2, Content: "choice C", Position: 1, NextSegmentID: ptr(3)},
		{ID: 22, SegmentID: 2, Content: "choice D", Position: 2},
		{ID: 31, SegmentID: 3, Content: "choice E", Position: 1},
		{ID: 32, SegmentID: 3, Content: "choice F", Position: 2},
	}
	g, err := NewStoryGraph(1, segments, choices)
	require.NoError(t, err)
	return g
}

func TestStoryGraph_Indexes(t *testing.T) {
	g := buildGraph(t)

	root, ok := g.Root()
	require.True(t, ok)
	assert.Equal(t, int64(1), root.ID)

	next, ok := g.Next(11)
	assert.True(t, ok)
	assert.Equal(t, int64(2), next)

	_, ok = g.Next(12)
	assert.False(t, ok, "untaken choice must not be memoized")

	choices := g.ChoicesOf(1)
	require.Len(t, choices, 2)
	assert.Equal(t, "choice A", choices[0].Content)
	assert.Equal(t, "choice B", choices[1].Content)

	ordered := g.Segments()
	require.Len(t, ordered, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{ordered[0].ID, ordered[1].ID, ordered[2].ID})
}

func TestStoryGraph_PathTo(t *testing.T) {
	g := buildGraph(t)

	steps, err := g.PathTo(3)
	require.NoError(t, err)
	require.Len(t, steps, 3)
	assert.Equal(t, int64(1), steps[0].Segment.ID)
	assert.Equal(t, "choice A", steps[0].Choice.Content)
	assert.Equal(t, int64(2), steps[1].Segment.ID)
	assert.Equal(t, "choice C", steps[1].Choice.Content)
	assert.Equal(t, int64(3), steps[2].Segment.ID)
	assert.Nil(t, steps[2].Choice)

	_, err = g.PathTo(99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoryGraph_ContextForChoice(t *testing.T) {
	g := buildGraph(t)
	chars := []CharacterInfo{{Name: "Biscuit", Traits: []string{"brave"}, Description: "watercolor"}}
	params := ResolvedStoryParams{Conflict: "X", Setting: "Deep Forest", Mood: "Joyful"}

	// Генерация детей S2: S1 идёт раньше S2, переходом из S1 записан "choice A".
	ctx, err := g.ContextForChoice(22, chars, params)
	require.NoError(t, err)
	assert.False(t, ctx.IsFirstSegment)
	assert.Equal(t, "X", ctx.Conflict)
	assert.Equal(t, chars, ctx.Characters)
	require.Len(t, ctx.PreviousSegments, 2)
	assert.Equal(t, PreviousSegment{SequenceNumber: 1, Content: "first", ChoiceMade: "choice A"}, ctx.PreviousSegments[0])
	assert.Equal(t, PreviousSegment{SequenceNumber: 2, Content: "second", ChoiceMade: "choice D"}, ctx.PreviousSegments[1])

	_, err = g.ContextForChoice(404, chars, params)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFirstSegmentContext(t *testing.T) {
	ctx := FirstSegmentContext(nil, ResolvedStoryParams{Conflict: "X"})
	assert.True(t, ctx.IsFirstSegment)
	assert.NotNil(t, ctx.Characters)
	assert.Empty(t, ctx.PreviousSegments)
	assert.NotNil(t, ctx.PreviousSegments)
}

func TestNewStoryGraph_BrokenLinks(t *testing.T) {
	_, err := NewStoryGraph(1,
		[]StorySegment{{ID: 1, SessionID: 1, SequenceNumber: 1}},
		[]StoryChoice{{ID: 11, SegmentID: 1, NextSegmentID: ptr(7)}},
	)
	assert.Error(t, err)

	_, err = NewStoryGraph(1,
		[]StorySegment{{ID: 1, SessionID: 1}, {ID: 2, SessionID: 1}},
		nil,
	)
	assert.Error(t, err, "two roots")

	_, err = NewStoryGraph(1, []StorySegment{{ID: 1, SessionID: 2}}, nil)
	assert.Error(t, err)
}

func TestStorySession_State(t *testing.T) {
	s := &StorySession{}
	assert.Equal(t, StateAwaitingFirstSegment, s.State())
	s.CurrentSegmentID = ptr(1)
	assert.Equal(t, StateInProgress, s.State())
	s.IsCompleted = true
	assert.Equal(t, StateCompleted, s.State())
}
