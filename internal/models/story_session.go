package models

import "time"

// SessionState - состояние прохождения.
type SessionState string

const (
	StateAwaitingFirstSegment SessionState = "AWAITING_FIRST_SEGMENT"
	StateInProgress           SessionState = "IN_PROGRESS"
	StateCompleted            SessionState = "COMPLETED"
)

// ChoicesPerSegment - у каждого сгенерированного сегмента ровно два выбора.
const ChoicesPerSegment = 2

// StorySession - одно прохождение интерактивной истории.
type StorySession struct {
	ID               int64     `db:"id" json:"id"`
	Setting          string    `db:"setting" json:"setting"`
	Mood             string    `db:"mood" json:"mood"`
	Conflict         string    `db:"conflict" json:"conflict"`
	IsCompleted      bool      `db:"is_completed" json:"is_completed"`
	CurrentSegmentID *int64    `db:"current_segment_id" json:"current_segment_id"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`
}

func (s *StorySession) State() SessionState {
	switch {
	case s.IsCompleted:
		return StateCompleted
	case s.CurrentSegmentID == nil:
		return StateAwaitingFirstSegment
	default:
		return StateInProgress
	}
}

// StorySegment - узел дерева истории. У корня нет ParentChoiceID.
type StorySegment struct {
	ID             int64     `db:"id" json:"id"`
	SessionID      int64     `db:"session_id" json:"session_id"`
	Content        string    `db:"content" json:"content"`
	SequenceNumber int       `db:"sequence_number" json:"sequence_number"`
	ParentChoiceID *int64    `db:"parent_choice_id" json:"parent_choice_id"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// StoryChoice - вариант выбора под сегментом. NextSegmentID заполняется при первом проходе.
type StoryChoice struct {
	ID            int64     `db:"id" json:"id"`
	SegmentID     int64     `db:"segment_id" json:"segment_id"`
	Content       string    `db:"content" json:"content"`
	Position      int       `db:"position" json:"position"`
	NextSegmentID *int64    `db:"next_segment_id" json:"next_segment_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// PlayerChoice - запись журнала сделанных выборов.
type PlayerChoice struct {
	ID             int64     `db:"id" json:"id"`
	SessionID      int64     `db:"session_id" json:"session_id"`
	ChoiceID       int64     `db:"choice_id" json:"choice_id"`
	SequenceNumber int       `db:"sequence_number" json:"sequence_number"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// SegmentDraft - проверенный ответ модели для нового сегмента.
type SegmentDraft struct {
	Content string
	Choices [ChoicesPerSegment]string
}

// SegmentContext - контекст, который отправляется модели при генерации сегмента.
type SegmentContext struct {
	Characters       []CharacterInfo   `json:"characters"`
	Setting          string            `json:"setting"`
	Mood             string            `json:"mood"`
	Conflict         string            `json:"conflict"`
	PreviousSegments []PreviousSegment `json:"previous_segments"`
	IsFirstSegment   bool              `json:"is_first_segment"`
}

// PreviousSegment - сегмент истории и выбор, сделанный после него.
type PreviousSegment struct {
	SequenceNumber int    `json:"sequence_number"`
	Content        string `json:"content"`
	ChoiceMade     string `json:"choice_made"`
}
