package server

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/simonjohansson/gemtracker/internal/service"
	"github.com/simonjohansson/gemtracker/internal/store"
)

const maxPhotoBytes = 10 << 20

type Options struct {
	DataDir    string
	SQLitePath string
	// BlobDir defaults to <DataDir>/blobs.
	BlobDir string
	// PublicURL prefixes photo URLs. Empty yields server-relative URLs.
	PublicURL      string
	Logger         *slog.Logger
	ServiceOptions []service.Option
}

type Server struct {
	service    *service.Service
	projection *store.SQLiteProjection
	hub        *hub
	logger     *slog.Logger
	router     *chi.Mux
	api        huma.API
	blobDir    string
	publicURL  string
	stopSync   func()
}

func New(opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	blobDir := opts.BlobDir
	if blobDir == "" {
		blobDir = filepath.Join(opts.DataDir, "blobs")
	}

	documents, err := store.NewDocumentStore(opts.DataDir)
	if err != nil {
		return nil, err
	}
	blobs, err := store.NewBlobStore(blobDir, opts.PublicURL)
	if err != nil {
		return nil, err
	}
	projection, err := store.NewSQLiteProjection(opts.SQLitePath)
	if err != nil {
		return nil, err
	}

	eventHub := newHub()
	svc := service.New(documents, blobs, projection, eventHub, logger, opts.ServiceOptions...)
	stopSync, err := svc.SyncProjection()
	if err != nil {
		eventHub.Close()
		_ = projection.Close()
		return nil, err
	}
	if result, err := svc.Reconcile(); err != nil {
		logger.Warn("startup reconcile failed", "error", err)
	} else if result.Reverted > 0 {
		logger.Warn("startup reconcile reverted active designs", "reverted", result.Reverted)
	}

	s := &Server{
		service:    svc,
		projection: projection,
		hub:        eventHub,
		logger:     logger,
		router:     chi.NewRouter(),
		blobDir:    blobDir,
		publicURL:  strings.TrimRight(strings.TrimSpace(opts.PublicURL), "/"),
		stopSync:   stopSync,
	}
	s.routes()
	s.logger.Info("server initialized", "data_dir", opts.DataDir, "sqlite_path", opts.SQLitePath, "blob_dir", blobDir)
	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.api.OpenAPI()
}

func (s *Server) Close() error {
	s.stopSync()
	s.hub.Close()
	return s.projection.Close()
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(s.requestLoggingMiddleware)

	config := huma.DefaultConfig("Gemtracker API", "1.0.0")
	config.OpenAPIPath = "/openapi"
	config.DocsPath = ""

	s.api = humachi.New(s.router, config)
	s.registerOperations()
	s.registerWebSocketOperationDocs()

	// Websocket upgrade and photo files stay native HTTP handlers.
	s.router.Get("/ws", s.hub.ServeWS)
	s.router.Handle("/photos/*", http.FileServer(filesOnly{http.Dir(s.blobDir)}))
}

// filesOnly hides directories so the photo route never renders a listing.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil || info.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

func (s *Server) registerOperations() {
	huma.Get(s.api, "/health", s.health)

	huma.Register(s.api, huma.Operation{
		OperationID: "clientConfig",
		Method:      http.MethodGet,
		Path:        "/client-config",
		Summary:     "Client configuration",
	}, s.clientConfig)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createKit",
		Method:        http.MethodPost,
		Path:          "/kits",
		DefaultStatus: http.StatusCreated,
		Summary:       "Create kit",
		Errors:        []int{http.StatusBadRequest, http.StatusConflict, http.StatusInternalServerError},
	}, s.createKit)

	huma.Register(s.api, huma.Operation{
		OperationID: "listKits",
		Method:      http.MethodGet,
		Path:        "/kits",
		Summary:     "List kits with stats",
		Errors:      []int{http.StatusInternalServerError},
	}, s.listKits)

	huma.Register(s.api, huma.Operation{
		OperationID: "listKitSummaries",
		Method:      http.MethodGet,
		Path:        "/kits/summaries",
		Summary:     "List kit summaries from the projection",
		Errors:      []int{http.StatusBadRequest, http.StatusInternalServerError},
	}, s.listKitSummaries)

	huma.Register(s.api, huma.Operation{
		OperationID: "getKit",
		Method:      http.MethodGet,
		Path:        "/kits/{kit}",
		Summary:     "Get kit",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.getKit)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateKit",
		Method:      http.MethodPatch,
		Path:        "/kits/{kit}",
		Summary:     "Edit kit",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusUnprocessableEntity, http.StatusInternalServerError},
	}, s.updateKit)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteKit",
		Method:      http.MethodDelete,
		Path:        "/kits/{kit}",
		Summary:     "Delete kit",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteKit)

	huma.Register(s.api, huma.Operation{
		OperationID: "startDesign",
		Method:      http.MethodPost,
		Path:        "/kits/{kit}/designs/{design}/start",
		Summary:     "Start design",
		Description: "Returns action needs_confirmation with a switch confirmation when another kit holds the active design.",
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, s.startDesign)

	huma.Register(s.api, huma.Operation{
		OperationID: "confirmSwitch",
		Method:      http.MethodPost,
		Path:        "/switch",
		Summary:     "Confirm active design switch",
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, s.confirmSwitch)

	huma.Register(s.api, huma.Operation{
		OperationID: "advanceDesign",
		Method:      http.MethodPost,
		Path:        "/kits/{kit}/designs/{design}/advance",
		Summary:     "Complete active design",
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, s.advanceDesign)

	huma.Register(s.api, huma.Operation{
		OperationID: "requestUncomplete",
		Method:      http.MethodPost,
		Path:        "/kits/{kit}/designs/{design}/uncomplete",
		Summary:     "Request uncomplete confirmation",
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, s.requestUncomplete)

	huma.Register(s.api, huma.Operation{
		OperationID: "confirmUncomplete",
		Method:      http.MethodPost,
		Path:        "/kits/{kit}/designs/{design}/uncomplete/confirm",
		Summary:     "Confirm uncomplete",
		Errors:      []int{http.StatusNotFound, http.StatusConflict, http.StatusInternalServerError},
	}, s.confirmUncomplete)

	huma.Register(s.api, huma.Operation{
		OperationID:  "setDesignPhoto",
		Method:       http.MethodPut,
		Path:         "/kits/{kit}/designs/{design}/photo",
		Summary:      "Upload design photo",
		Description:  "Request body is the raw JPEG image.",
		MaxBodyBytes: maxPhotoBytes,
		Errors:       []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.setDesignPhoto)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteDesignPhoto",
		Method:      http.MethodDelete,
		Path:        "/kits/{kit}/designs/{design}/photo",
		Summary:     "Delete design photo",
		Errors:      []int{http.StatusNotFound, http.StatusInternalServerError},
	}, s.deleteDesignPhoto)

	huma.Register(s.api, huma.Operation{
		OperationID: "overallStats",
		Method:      http.MethodGet,
		Path:        "/stats",
		Summary:     "Collection statistics",
		Errors:      []int{http.StatusInternalServerError},
	}, s.overallStats)

	huma.Register(s.api, huma.Operation{
		OperationID:   "pickRandomKit",
		Method:        http.MethodPost,
		Path:          "/picks",
		DefaultStatus: http.StatusCreated,
		Summary:       "Pick a random unfinished kit",
		Errors:        []int{http.StatusConflict, http.StatusInternalServerError},
	}, s.pickRandomKit)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPickHistory",
		Method:      http.MethodGet,
		Path:        "/picks",
		Summary:     "List pick history",
		Errors:      []int{http.StatusInternalServerError},
	}, s.listPickHistory)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePickHistoryEntry",
		Method:      http.MethodDelete,
		Path:        "/picks/{pick}",
		Summary:     "Delete pick history entry",
		Errors:      []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError},
	}, s.deletePickHistoryEntry)

	huma.Register(s.api, huma.Operation{
		OperationID: "rebuildProjection",
		Method:      http.MethodPost,
		Path:        "/admin/rebuild",
		Summary:     "Rebuild SQLite projection from documents",
		Errors:      []int{http.StatusInternalServerError},
	}, s.rebuildProjection)

	huma.Register(s.api, huma.Operation{
		OperationID: "reconcileActiveDesigns",
		Method:      http.MethodPost,
		Path:        "/admin/reconcile",
		Summary:     "Revert all but the latest active design",
		Errors:      []int{http.StatusInternalServerError},
	}, s.reconcileActiveDesigns)
}

func (s *Server) registerWebSocketOperationDocs() {
	oapi := s.api.OpenAPI()
	if oapi.Paths == nil {
		oapi.Paths = map[string]*huma.PathItem{}
	}
	oapi.Paths["/ws"] = &huma.PathItem{
		Get: &huma.Operation{
			OperationID: "websocketEvents",
			Summary:     "Websocket event stream",
			Description: "Subscribe to change events. Optional kit query param filters by kit id.",
			Responses: map[string]*huma.Response{
				"101": {Description: "Switching protocols to websocket"},
			},
		},
	}
}
