package server

import (
	"context"
	"os"
	"strings"

	"github.com/simonjohansson/gemtracker/pkg/gemconfig"
)

type clientConfigOutput struct {
	Body struct {
		ServerURL string `json:"serverUrl" doc:"Base URL clients should call; empty when unknown"`
		PhotosURL string `json:"photosUrl" doc:"Prefix under which design photos are served"`
		Source    string `json:"source" enum:"public_url,config_file,none"`
	}
}

func (s *Server) clientConfig(_ context.Context, _ *struct{}) (*clientConfigOutput, error) {
	out := &clientConfigOutput{}
	out.Body.ServerURL, out.Body.Source = s.advertisedURL()
	out.Body.PhotosURL = strings.TrimRight(out.Body.ServerURL, "/") + "/photos"
	return out, nil
}

// advertisedURL resolves the URL handed to clients: the --public-url the
// backend was started with, then server_url from the local config file.
func (s *Server) advertisedURL() (string, string) {
	if s.publicURL != "" {
		return s.publicURL, "public_url"
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", "none"
	}
	cfg, err := gemconfig.LoadFile(gemconfig.ConfigPath(home))
	if err != nil || strings.TrimSpace(cfg.ServerURL) == "" {
		return "", "none"
	}
	return strings.TrimSpace(cfg.ServerURL), "config_file"
}
