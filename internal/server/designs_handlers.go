package server

import (
	"context"

	"github.com/simonjohansson/gemtracker/internal/engine"
	"github.com/simonjohansson/gemtracker/internal/model"
	"github.com/simonjohansson/gemtracker/internal/service"
)

type designPathInput struct {
	Kit    string `path:"kit"`
	Design string `path:"design"`
}

type transitionOutput struct {
	Body service.TransitionResult
}

func (s *Server) startDesign(_ context.Context, input *designPathInput) (*transitionOutput, error) {
	return transitionResponse(s.service.StartDesign(input.Kit, input.Design))
}

type confirmSwitchInput struct {
	Body struct {
		Active engine.DesignRef `json:"active"`
		Target engine.DesignRef `json:"target"`
	}
}

func (s *Server) confirmSwitch(_ context.Context, input *confirmSwitchInput) (*transitionOutput, error) {
	return transitionResponse(s.service.ConfirmSwitch(input.Body.Active, input.Body.Target))
}

func (s *Server) advanceDesign(_ context.Context, input *designPathInput) (*transitionOutput, error) {
	return transitionResponse(s.service.AdvanceDesign(input.Kit, input.Design))
}

func (s *Server) requestUncomplete(_ context.Context, input *designPathInput) (*transitionOutput, error) {
	return transitionResponse(s.service.RequestUncomplete(input.Kit, input.Design))
}

func (s *Server) confirmUncomplete(_ context.Context, input *designPathInput) (*transitionOutput, error) {
	return transitionResponse(s.service.ConfirmUncomplete(input.Kit, input.Design))
}

func transitionResponse(result service.TransitionResult, err error) (*transitionOutput, error) {
	if err != nil {
		return nil, toHumaError(err)
	}
	return &transitionOutput{Body: result}, nil
}

type setDesignPhotoInput struct {
	Kit     string `path:"kit"`
	Design  string `path:"design"`
	RawBody []byte `contentType:"image/jpeg"`
}

type designOutput struct {
	Body model.Design
}

func (s *Server) setDesignPhoto(_ context.Context, input *setDesignPhotoInput) (*designOutput, error) {
	design, err := s.service.SetDesignPhoto(input.Kit, input.Design, input.RawBody)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &designOutput{Body: design}, nil
}

func (s *Server) deleteDesignPhoto(_ context.Context, input *designPathInput) (*designOutput, error) {
	design, err := s.service.DeleteDesignPhoto(input.Kit, input.Design)
	if err != nil {
		return nil, toHumaError(err)
	}
	return &designOutput{Body: design}, nil
}
