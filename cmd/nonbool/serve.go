package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lemonberrylabs/nonbool/pkg/api"
	"github.com/lemonberrylabs/nonbool/pkg/store"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion REST API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "HTTP server port (default 8790, env NONBOOL_PORT)")
	serveCmd.Flags().String("host", "", "Bind address (default 0.0.0.0, env NONBOOL_HOST)")
	serveCmd.Flags().String("models-dir", "", "Directory of model YAML/JSON files to load (env NONBOOL_MODELS_DIR)")
	serveCmd.Flags().Bool("watch", false, "Reload models when files in --models-dir change")
	serveCmd.Flags().Int("cache-size", 0, "Parsed conditions kept in memory (default 4096)")
	serveCmd.Flags().Bool("access-log", true, "Log every request")
}

func runServe(cmd *cobra.Command, args []string) error {
	port := envOrDefault("NONBOOL_PORT", "8790")
	if v, _ := cmd.Flags().GetInt("port"); v != 0 {
		port = fmt.Sprintf("%d", v)
	}

	host := envOrDefault("NONBOOL_HOST", "0.0.0.0")
	if v, _ := cmd.Flags().GetString("host"); v != "" {
		host = v
	}

	modelsDir := os.Getenv("NONBOOL_MODELS_DIR")
	if v, _ := cmd.Flags().GetString("models-dir"); v != "" {
		modelsDir = v
	}

	cacheSize, _ := cmd.Flags().GetInt("cache-size")
	accessLog, _ := cmd.Flags().GetBool("access-log")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := store.New()
	server, err := api.New(s, api.Config{AccessLog: accessLog, CacheSize: cacheSize})
	if err != nil {
		return err
	}

	// The model given with --model is served as "default".
	if os.Getenv("NONBOOL_MODEL") != "" || cmd.Flags().Changed("model") || cmd.Flags().Changed("define") {
		m, err := loadModel(cmd)
		if err != nil {
			return err
		}
		source, err := m.Marshal()
		if err != nil {
			return err
		}
		if _, err := s.CreateModel("default", string(source), "loaded at startup", m); err != nil {
			return err
		}
		log.Printf("Loaded default model (%d variable(s))", len(m.Variables))
	}

	if modelsDir != "" {
		if err := server.LoadDir(modelsDir); err != nil {
			log.Printf("Warning: failed to load models directory: %v", err)
		}
		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			if err := server.WatchDir(ctx, modelsDir); err != nil {
				log.Printf("Warning: failed to watch models directory: %v", err)
			} else {
				log.Printf("Watching models directory: %s", modelsDir)
			}
		}
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Println("Shutting down...")
		cancel()
		if err := server.Shutdown(); err != nil {
			log.Printf("Error during shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf("%s:%s", host, port)
	log.Printf("nonbool %s listening on %s", version, addr)
	return server.Listen(addr)
}
