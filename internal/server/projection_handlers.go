package server

import (
	"context"

	"github.com/simonjohansson/gemtracker/internal/service"
)

type healthOutput struct {
	Body struct {
		Ok bool `json:"ok"`
	}
}

func (s *Server) health(_ context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Ok = true
	return out, nil
}

type rebuildProjectionOutput struct {
	Body service.RebuildResult
}

// rebuildProjection drops and refills the SQLite read model from documents.
func (s *Server) rebuildProjection(_ context.Context, _ *struct{}) (*rebuildProjectionOutput, error) {
	result, err := s.service.RebuildProjection()
	if err != nil {
		return nil, toHumaError(err)
	}
	return &rebuildProjectionOutput{Body: result}, nil
}

type reconcileOutput struct {
	Body service.ReconcileResult
}

func (s *Server) reconcileActiveDesigns(_ context.Context, _ *struct{}) (*reconcileOutput, error) {
	result, err := s.service.Reconcile()
	if err != nil {
		return nil, toHumaError(err)
	}
	return &reconcileOutput{Body: result}, nil
}
