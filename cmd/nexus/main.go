package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"tailscale.com/tsweb"

	"github.com/jsdx761/nexus/internal/api"
	"github.com/jsdx761/nexus/internal/serialmux"
	"github.com/jsdx761/nexus/internal/timeutil"
	"github.com/jsdx761/nexus/internal/version"
)

var (
	configPath      = flag.String("config", "", "Path to a JSON config file (default "+defaultConfigHint+")")
	listen          = flag.String("listen", ":8080", "Listen address")
	port            = flag.String("port", "", "Serial port of the radar detector bridge, or \"sim\" to replay a demo drive")
	baud            = flag.Int("baud", serialmux.DefaultBaudRate, "Baud rate of the detector bridge")
	disableDetector = flag.Bool("disable-detector", false, "Do not read the radar detector")
	registryPath    = flag.String("registry", "", "Aircraft registry, .csv or sqlite (overrides registry_path)")
	logLevel        = flag.String("log-level", "ops", "Log streams to print: ops, diag or trace")
	showVersion     = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("nexus %s\n", version.String())
		return
	}
	if *listen == "" {
		log.Fatal("Listen address is required")
	}

	if err := godotenv.Load(); err == nil {
		log.Print("loaded environment from .env")
	}
	if err := setupLogging(*logLevel, os.Stderr); err != nil {
		log.Fatal(err)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.ApplyEnv(nil)
	if *registryPath != "" {
		cfg.RegistryPath = registryPath
	}

	sched := timeutil.NewScheduler(nil)
	app, err := build(cfg, sched, os.Stdout, detectorOptions{
		port: *port, baud: *baud, disabled: *disableDetector,
	})
	if err != nil {
		log.Fatalf("failed to start: %v", err)
	}
	defer app.close()
	log.Printf("nexus %s: %s", version.String(), app.sup)

	// Create a wait group for the scheduler, supervisor and HTTP server routines
	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	wg.Add(1)
	go func() {
		defer wg.Done()
		sched.Run(ctx)
		log.Print("scheduler routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.sup.Run(ctx)
		log.Print("supervisor routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()
		mux.Handle("/", app.api.Router())
		app.attachAdminRoutes(tsweb.Debugger(mux))

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		// Start server in a goroutine so it doesn't block
		go func() {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		// Wait for context cancellation to shut down server
		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
			// Force close the server if graceful shutdown fails
			if err := server.Close(); err != nil {
				log.Printf("HTTP server force close error: %v", err)
			}
		}

		log.Printf("HTTP server routine stopped")
	}()

	// Wait for all goroutines to finish
	wg.Wait()
	app.sup.Stop()
	log.Printf("Graceful shutdown complete")
}
