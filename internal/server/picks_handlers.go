package server

import (
	"context"

	"github.com/simonjohansson/gemtracker/internal/model"
	"github.com/simonjohansson/gemtracker/internal/service"
)

type pickOutput struct {
	Body service.PickResult
}

func (s *Server) pickRandomKit(_ context.Context, _ *struct{}) (*pickOutput, error) {
	result, err := s.service.PickRandomKit()
	if err != nil {
		return nil, toHumaError(err)
	}
	return &pickOutput{Body: result}, nil
}

type listPickHistoryInput struct {
	Limit int `query:"limit" minimum:"0"`
}

type listPickHistoryOutput struct {
	Body struct {
		Picks []model.PickHistoryEntry `json:"picks"`
	}
}

func (s *Server) listPickHistory(_ context.Context, input *listPickHistoryInput) (*listPickHistoryOutput, error) {
	picks, err := s.service.ListPickHistory(input.Limit)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := &listPickHistoryOutput{}
	out.Body.Picks = picks
	return out, nil
}

type pickPathInput struct {
	Pick string `path:"pick"`
}

type deletePickOutput struct {
	Body struct {
		PickID  string `json:"pickId"`
		Deleted bool   `json:"deleted"`
	}
}

func (s *Server) deletePickHistoryEntry(_ context.Context, input *pickPathInput) (*deletePickOutput, error) {
	if err := s.service.DeletePickHistoryEntry(input.Pick); err != nil {
		return nil, toHumaError(err)
	}

	out := &deletePickOutput{}
	out.Body.PickID = input.Pick
	out.Body.Deleted = true
	return out, nil
}
