package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"gopkg.in/yaml.v3"

	"github.com/simonjohansson/gemtracker/internal/server"
)

func main() {
	outPath := flag.String("out", filepath.Join("api", "openapi.yaml"), "output path for the OpenAPI document")
	format := flag.String("format", "", "yaml or json; inferred from -out when empty")
	flag.Parse()

	if err := export(*outPath, *format); err != nil {
		log.Fatal(err)
	}
}

func export(outPath, format string) error {
	tmpDir, err := os.MkdirTemp("", "gemtracker-openapi-")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	app, err := server.New(server.Options{
		DataDir:    filepath.Join(tmpDir, "data"),
		SQLitePath: filepath.Join(tmpDir, "projection.db"),
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}
	defer func() { _ = app.Close() }()

	raw, err := render(app.OpenAPI(), formatFor(outPath, format))
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return os.WriteFile(outPath, raw, 0o644)
}

func formatFor(outPath, format string) string {
	if format = strings.ToLower(strings.TrimSpace(format)); format != "" {
		return format
	}
	if strings.EqualFold(filepath.Ext(outPath), ".json") {
		return "json"
	}
	return "yaml"
}

func render(doc *huma.OpenAPI, format string) ([]byte, error) {
	switch format {
	case "json":
		raw, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal openapi: %w", err)
		}
		return append(raw, '\n'), nil
	case "yaml", "yml":
		raw, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshal openapi: %w", err)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
}
