// Package api implements the REST API for storing variability models and
// converting conditions against them.
package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/lemonberrylabs/nonbool/pkg/expr"
	"github.com/lemonberrylabs/nonbool/pkg/model"
	"github.com/lemonberrylabs/nonbool/pkg/store"
	"github.com/lemonberrylabs/nonbool/pkg/types"
)

// MaxLines is the maximum number of lines in one replace request.
const MaxLines = 10000

var validModelID = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Config configures a Server.
type Config struct {
	// AccessLog enables the request logger middleware.
	AccessLog bool
	// CacheSize is the number of parsed conditions kept across requests.
	// Zero means expr.DefaultCacheSize.
	CacheSize int
}

// Server is the API server.
type Server struct {
	app   *fiber.App
	store *store.Store
	cache *expr.Cache
}

// New creates a new API server.
func New(s *store.Store, cfg Config) (*Server, error) {
	cache, err := expr.NewCache(cfg.CacheSize)
	if err != nil {
		return nil, err
	}
	srv := &Server{store: s, cache: cache}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	if cfg.AccessLog {
		app.Use(logger.New())
	}

	app.Post("/v1/models", srv.createModel)
	app.Get("/v1/models/:model", srv.getModel)
	app.Get("/v1/models", srv.listModels)
	app.Patch("/v1/models/:model", srv.updateModel)
	app.Delete("/v1/models/:model", srv.deleteModel)

	app.Post("/v1/models/:model\\:replace", srv.replaceLines)
	app.Post("/v1/models/:model\\:evaluate", srv.evaluate)

	srv.app = app
	return srv, nil
}

// Listen starts the HTTP server on the given address.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App returns the underlying Fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// --- Model Handlers ---

type modelRequest struct {
	Source      string `json:"source"`
	Description string `json:"description"`
}

func (s *Server) createModel(c *fiber.Ctx) error {
	modelID := c.Query("modelId")
	if modelID == "" {
		return apiError(c, 400, "INVALID_ARGUMENT", "modelId query parameter is required")
	}
	if !validModelID.MatchString(modelID) || len(modelID) > 128 {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid modelId %q", modelID))
	}

	var req modelRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	m, err := model.Parse([]byte(req.Source))
	if err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid model: %v", err))
	}

	entry, err := s.store.CreateModel(modelID, req.Source, req.Description, m)
	if err != nil {
		return storeError(c, err)
	}
	return c.Status(200).JSON(modelToJSON(entry))
}

func (s *Server) getModel(c *fiber.Ctx) error {
	entry, err := s.store.GetModel(modelName(c))
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(modelToJSON(entry))
}

func (s *Server) listModels(c *fiber.Ctx) error {
	models := s.store.ListModels()

	items := make([]fiber.Map, len(models))
	for i, m := range models {
		items[i] = modelToJSON(m)
	}

	return c.JSON(fiber.Map{
		"models": items,
	})
}

func (s *Server) updateModel(c *fiber.Ctx) error {
	var req modelRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}

	var m *model.Model
	if req.Source != "" {
		var err error
		m, err = model.Parse([]byte(req.Source))
		if err != nil {
			return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid model: %v", err))
		}
	}

	entry, err := s.store.UpdateModel(modelName(c), req.Source, req.Description, m)
	if err != nil {
		return storeError(c, err)
	}
	return c.JSON(modelToJSON(entry))
}

func (s *Server) deleteModel(c *fiber.Ctx) error {
	if err := s.store.DeleteModel(modelName(c)); err != nil {
		return storeError(c, err)
	}
	return c.JSON(fiber.Map{
		"name": modelName(c),
		"done": true,
	})
}

// --- Conversion Handlers ---

type replaceRequest struct {
	Lines []string `json:"lines"`
}

func (s *Server) replaceLines(c *fiber.Ctx) error {
	name := modelName(c)
	entry, err := s.store.GetModel(name)
	if err != nil {
		return storeError(c, err)
	}

	var req replaceRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	if len(req.Lines) > MaxLines {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("%d lines exceed the maximum of %d", len(req.Lines), MaxLines))
	}

	r := expr.NewReplacer(entry.Variables, entry.Constants, s.cache)
	results := make([]fiber.Map, len(req.Lines))
	var failed int64
	for i, line := range req.Lines {
		out, err := r.ReplaceLine(line)
		if err != nil {
			failed++
			results[i] = fiber.Map{"line": line, "error": errorBody(400, "INVALID_ARGUMENT", err)}
			continue
		}
		results[i] = fiber.Map{"line": line, "output": out}
	}
	s.store.RecordConversions(name, int64(len(req.Lines)), failed)

	return c.JSON(fiber.Map{
		"results":  results,
		"replaced": int64(len(req.Lines)) - failed,
		"failed":   failed,
	})
}

type evaluateRequest struct {
	Expression string `json:"expression"`
	Mode       string `json:"mode"`
}

func (s *Server) evaluate(c *fiber.Ctx) error {
	name := modelName(c)
	entry, err := s.store.GetModel(name)
	if err != nil {
		return storeError(c, err)
	}

	var req evaluateRequest
	if err := c.BodyParser(&req); err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", fmt.Sprintf("invalid request body: %v", err))
	}
	mode, err := expr.ParseMode(req.Mode)
	if err != nil {
		return apiError(c, 400, "INVALID_ARGUMENT", err.Error())
	}

	r := expr.NewReplacer(entry.Variables, entry.Constants, s.cache)
	r.Mode = mode
	res, err := r.Convert(req.Expression)
	if err != nil {
		s.store.RecordConversions(name, 1, 1)
		return c.Status(400).JSON(fiber.Map{"error": errorBody(400, "INVALID_ARGUMENT", err)})
	}
	s.store.RecordConversions(name, 1, 0)

	return c.JSON(fiber.Map{
		"expression": req.Expression,
		"mode":       mode.String(),
		"result":     expr.ToString(res, mode),
		"formula":    expr.ToFormula(res).String(),
	})
}

// --- Directory Loading ---

// LoadDir loads all .yaml, .yml and .json model files from dir. The file
// name (sans extension) becomes the model ID.
func (s *Server) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading models directory: %w", err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		modelID, ok := modelIDFromFile(name)
		if !ok {
			continue
		}
		if err := s.loadFile(filepath.Join(dir, name), modelID); err != nil {
			log.Printf("Warning: could not load %q: %v", name, err)
			continue
		}
		loaded++
		log.Printf("Loaded model %q from %s", modelID, name)
	}

	log.Printf("Loaded %d model(s) from %s", loaded, dir)
	return nil
}

// WatchDir keeps the models loaded from dir in sync with its files until
// ctx is done. Written files are (re)loaded and removed files unloaded.
func (s *Server) WatchDir(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				s.handleEvent(event)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("Warning: error watching %s: %v", dir, err)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (s *Server) handleEvent(event fsnotify.Event) {
	name := filepath.Base(event.Name)
	modelID, ok := modelIDFromFile(name)
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if err := s.store.DeleteModel("models/" + modelID); err == nil {
			log.Printf("Unloaded model %q (%s removed)", modelID, name)
		}
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		if err := s.loadFile(event.Name, modelID); err != nil {
			log.Printf("Warning: could not reload %q: %v", name, err)
			return
		}
		log.Printf("Reloaded model %q from %s", modelID, name)
	}
}

// loadFile parses the model file at path and stores it under modelID,
// replacing the current revision if the model exists.
func (s *Server) loadFile(path, modelID string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	m, err := model.Parse(data)
	if err != nil {
		return err
	}
	_, err = s.store.CreateModel(modelID, string(data), "", m)
	if errors.Is(err, store.ErrAlreadyExists) {
		_, err = s.store.UpdateModel("models/"+modelID, string(data), "", m)
	}
	return err
}

// modelIDFromFile derives the model ID from a model file name. Other files
// and names that are not valid IDs are rejected.
func modelIDFromFile(name string) (string, bool) {
	ext := filepath.Ext(name)
	if ext != ".yaml" && ext != ".yml" && ext != ".json" {
		return "", false
	}

	base := strings.TrimSuffix(name, ext)
	modelID := strings.ToLower(base)
	if modelID != base {
		log.Printf("Warning: lowercased model ID %q (from file %q)", modelID, name)
	}
	if !validModelID.MatchString(modelID) || len(modelID) > 128 {
		log.Printf("Warning: skipping file %q: invalid model ID %q", name, modelID)
		return "", false
	}
	return modelID, true
}

// --- Helpers ---

func modelName(c *fiber.Ctx) string {
	return "models/" + c.Params("model")
}

func apiError(c *fiber.Ctx, code int, status, message string) error {
	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
			"status":  status,
		},
	})
}

func storeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return apiError(c, 404, "NOT_FOUND", err.Error())
	case errors.Is(err, store.ErrAlreadyExists):
		return apiError(c, 409, "ALREADY_EXISTS", err.Error())
	default:
		return apiError(c, 500, "INTERNAL", err.Error())
	}
}

// errorBody renders a conversion error. Expression errors carry their tags
// and the caret marker.
func errorBody(code int, status string, err error) fiber.Map {
	body := fiber.Map{
		"code":    code,
		"message": err.Error(),
		"status":  status,
	}
	var ee *types.ExpressionError
	if errors.As(err, &ee) {
		body["tags"] = ee.Tags
		if marker := ee.Marker(); marker != "" {
			body["expression"] = ee.Expression
			body["marker"] = marker
		}
	}
	return body
}

func modelToJSON(m store.Model) fiber.Map {
	return fiber.Map{
		"name":        m.Name,
		"description": m.Description,
		"state":       m.State,
		"revisionId":  m.RevisionID,
		"createTime":  m.CreateTime.Format(time.RFC3339),
		"updateTime":  m.UpdateTime.Format(time.RFC3339),
		"source":      m.Source,
		"variables":   m.Variables.Names(),
		"counters":    m.Counters,
	}
}
