package main

import (
	"context"
	"embed"
	"errors"
	"flag"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"todolist/internal/config"
	"todolist/internal/handlers"
	"todolist/internal/logging"
	"todolist/internal/persist"
	"todolist/internal/store"
	"todolist/internal/taskstore"
)

//go:embed templates/*
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

const shutdownTimeout = 5 * time.Second

func main() {
	cfg, err := config.Load(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "todolist: %v\n", err)
		os.Exit(2)
	}

	logger := logging.New(os.Stderr, logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
	})
	if cfg.ConfigFile != "" {
		logger.Debug("loaded config file", "path", cfg.ConfigFile)
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server failed", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize storage
	slot, err := openSlot(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer slot.Close()

	adapter := persist.NewAdapter(slot, cfg.SlotKey, logger)
	var persister taskstore.Persister = adapter
	if cfg.AsyncSave {
		saver := persist.NewAsyncSaver(context.Background(), adapter, logger)
		defer func() {
			if err := saver.Close(); err != nil {
				logger.Error("final save failed", "err", err)
			}
		}()
		persister = saver
	}

	s := taskstore.New(ctx, persister, taskstore.WithLogger(logger))

	tmpl, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	h := handlers.New(s, tmpl, logger)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: newRouter(h),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "url", "http://"+cfg.Addr, "storage", cfg.Storage)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openSlot opens the storage backend named by the config.
func openSlot(cfg *config.Config) (store.Slot, error) {
	switch cfg.Storage {
	case config.StorageSQLite:
		// Ensure data directory exists
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
		return store.NewSQLiteSlot(cfg.DBPath)
	case config.StorageFile:
		return store.NewFileSlot(cfg.DataDir)
	case config.StorageMemory:
		return store.NewMemorySlot(), nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
}

func newRouter(h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	// Static files
	staticSub, _ := fs.Sub(staticFS, "static")
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	// Page routes
	r.Get("/", h.Home)

	// Task API routes
	r.Get("/api/tasks", h.ListTasks)
	r.Post("/api/tasks", h.CreateTask)
	r.Get("/api/tasks/{id}", h.GetTask)
	r.Put("/api/tasks/{id}", h.UpdateTask)
	r.Delete("/api/tasks/{id}", h.DeleteTask)
	r.Post("/api/tasks/{id}/toggle", h.ToggleTask)
	r.Post("/api/tasks/{id}/edit", h.EditTask)

	// Edit form routes
	r.Post("/api/submit", h.SubmitTask)
	r.Delete("/api/edit", h.CancelEdit)

	// View routes
	r.Post("/api/sort/toggle", h.ToggleSort)
	r.Post("/api/filter/{priority}", h.SetFilter)
	r.Delete("/api/filter", h.ClearFilter)
	r.Get("/api/priorities", h.Priorities)

	return r
}

func parseTemplates() (*template.Template, error) {
	// Custom template functions
	funcMap := template.FuncMap{
		"dict": func(values ...interface{}) map[string]interface{} {
			if len(values)%2 != 0 {
				return nil
			}
			dict := make(map[string]interface{}, len(values)/2)
			for i := 0; i < len(values); i += 2 {
				key, ok := values[i].(string)
				if !ok {
					continue
				}
				dict[key] = values[i+1]
			}
			return dict
		},
	}

	tmpl := template.New("").Funcs(funcMap)

	patterns := []string{
		"templates/*.html",
		"templates/partials/*.html",
	}

	for _, pattern := range patterns {
		matches, err := fs.Glob(templatesFS, pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to glob pattern %s: %w", pattern, err)
		}

		for _, match := range matches {
			content, err := templatesFS.ReadFile(match)
			if err != nil {
				return nil, fmt.Errorf("failed to read template %s: %w", match, err)
			}

			name := filepath.Base(match)
			if _, err := tmpl.New(name).Parse(string(content)); err != nil {
				return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
			}
		}
	}

	return tmpl, nil
}
