package server

import (
	"context"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
	"github.com/simonjohansson/gemtracker/internal/service"
)

type createKitRequest struct {
	Number      int      `json:"number"`
	Name        string   `json:"name,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	DesignCount int      `json:"designCount,omitempty" minimum:"0"`
	DesignNames []string `json:"designNames,omitempty"`
}

type createKitInput struct {
	Body createKitRequest
}

type kitOutput struct {
	Body service.KitView
}

func (s *Server) createKit(_ context.Context, input *createKitInput) (*kitOutput, error) {
	view, err := s.service.CreateKit(service.CreateKitInput{
		Number:      input.Body.Number,
		Name:        input.Body.Name,
		Notes:       input.Body.Notes,
		DesignCount: input.Body.DesignCount,
		DesignNames: input.Body.DesignNames,
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	return &kitOutput{Body: view}, nil
}

type listKitsOutput struct {
	Body struct {
		Kits []service.KitView `json:"kits"`
	}
}

func (s *Server) listKits(_ context.Context, _ *struct{}) (*listKitsOutput, error) {
	kits, err := s.service.ListKits()
	if err != nil {
		return nil, toHumaError(err)
	}
	out := &listKitsOutput{}
	out.Body.Kits = kits
	return out, nil
}

type listKitSummariesInput struct {
	Bucket string `query:"bucket" enum:"complete,started,not_started"`
}

type listKitSummariesOutput struct {
	Body struct {
		Kits []model.KitSummary `json:"kits"`
	}
}

func (s *Server) listKitSummaries(_ context.Context, input *listKitSummariesInput) (*listKitSummariesOutput, error) {
	summaries, err := s.service.ListKitSummaries(input.Bucket)
	if err != nil {
		return nil, toHumaError(err)
	}
	out := &listKitSummariesOutput{}
	out.Body.Kits = summaries
	return out, nil
}

type kitPathInput struct {
	Kit string `path:"kit"`
}

func (s *Server) getKit(_ context.Context, input *kitPathInput) (*kitOutput, error) {
	view, err := s.service.GetKit(input.Kit)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &kitOutput{Body: view}, nil
}

type updateKitRequest struct {
	Number                *int     `json:"number,omitempty"`
	Name                  *string  `json:"name,omitempty"`
	Notes                 *string  `json:"notes,omitempty"`
	DesignCount           *int     `json:"designCount,omitempty" minimum:"0"`
	DesignNames           []string `json:"designNames,omitempty"`
	KitStartDate          *int64   `json:"kitStartDate,omitempty"`
	ClearKitStartDate     bool     `json:"clearKitStartDate,omitempty"`
	KitCompletedDate      *int64   `json:"kitCompletedDate,omitempty"`
	ClearKitCompletedDate bool     `json:"clearKitCompletedDate,omitempty"`
}

type updateKitInput struct {
	Kit  string `path:"kit"`
	Body updateKitRequest
}

func (s *Server) updateKit(_ context.Context, input *updateKitInput) (*kitOutput, error) {
	body := input.Body
	view, err := s.service.UpdateKit(input.Kit, service.UpdateKitInput{
		Number:                body.Number,
		Name:                  body.Name,
		Notes:                 body.Notes,
		DesignCount:           body.DesignCount,
		DesignNames:           body.DesignNames,
		KitStartDate:          body.KitStartDate,
		ClearKitStartDate:     body.ClearKitStartDate,
		KitCompletedDate:      body.KitCompletedDate,
		ClearKitCompletedDate: body.ClearKitCompletedDate,
	})
	if err != nil {
		return nil, toHumaError(err)
	}
	return &kitOutput{Body: view}, nil
}

type deleteKitOutput struct {
	Body struct {
		KitID   string `json:"kitId"`
		Deleted bool   `json:"deleted"`
	}
}

func (s *Server) deleteKit(_ context.Context, input *kitPathInput) (*deleteKitOutput, error) {
	if err := s.service.DeleteKit(input.Kit); err != nil {
		return nil, toHumaError(err)
	}

	out := &deleteKitOutput{}
	out.Body.KitID = input.Kit
	out.Body.Deleted = true
	return out, nil
}

type statsOutput struct {
	Body engine.OverallStats
}

func (s *Server) overallStats(_ context.Context, _ *struct{}) (*statsOutput, error) {
	stats, err := s.service.OverallStats()
	if err != nil {
		return nil, toHumaError(err)
	}
	return &statsOutput{Body: stats}, nil
}
