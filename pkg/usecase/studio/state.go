package studio

import (
	"github.com/m-mizutani/pollen/pkg/model"
	"github.com/samber/lo"
)

// State is everything the studio shows. It only changes through the methods below.
type State struct {
	Tab      model.Kind
	History  model.History
	Messages []model.Message
}

// SetTab switches the active tab
func (s *State) SetTab(kind model.Kind) {
	s.Tab = kind
}

// InsertRecord puts r at the head of the history and returns the records pushed out
// of its tail
func (s *State) InsertRecord(r *model.Record) []*model.Record {
	prev := s.History
	s.History = s.History.Insert(r)
	if len(prev) < model.MaxHistory {
		return nil
	}

	return lo.Filter(prev, func(old *model.Record, _ int) bool {
		_, ok := s.History.Find(old.ID)
		return !ok
	})
}

// RestoreRecords puts records pushed out by InsertRecord back at the tail
func (s *State) RestoreRecords(records []*model.Record) {
	s.History = s.History.Backfill(records)
}

// RemoveRecord drops the record of the given ID
func (s *State) RemoveRecord(id model.RecordID) {
	s.History = s.History.Remove(id)
}

// ClearHistory empties the history
func (s *State) ClearHistory() {
	s.History = model.History{}
}

// AppendMessage adds msg to the end of the conversation
func (s *State) AppendMessage(msg model.Message) {
	s.Messages = append(s.Messages, msg)
}
