package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ironsheep/marker-tools-mcp/internal/config"
	"github.com/ironsheep/marker-tools-mcp/internal/logger"
	"github.com/ironsheep/marker-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	// Handle --version and -v flags
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("marker-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "marker-tools-mcp: %v\n", err)
		os.Exit(1)
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log, err := logger.New(os.Stderr, cfg.LoggerOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "marker-tools-mcp: %v\n", err)
		os.Exit(1)
	}
	log.WithFields(logrus.Fields{
		"version":    Version,
		"build_time": BuildTime,
		"commit":     GitCommit,
	}).Debug("Marker MCP server starting")

	srv := server.New(cfg, server.WithLogger(log), server.WithVersion(Version))
	err = srv.Run()
	srv.Close()
	if err != nil {
		log.WithError(err).Fatal("Server error")
	}
}

func printHelp() {
	fmt.Println("marker-tools-mcp - MCP server for fiducial marker detection")
	fmt.Println()
	fmt.Println("Usage: marker-tools-mcp [options]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Printf("  %-28s YAML config file\n", config.EnvConfigFile)
	fmt.Printf("  %-28s debug, info, warn or error (default info)\n", config.EnvLogLevel)
	fmt.Printf("  %-28s text or json (default text)\n", config.EnvLogFormat)
	fmt.Printf("  %-28s Warn when a frame takes longer (default 50)\n", config.EnvSlowFrameMs)
	fmt.Printf("  %-28s Frames between debug lines (default 60)\n", config.EnvLogEvery)
	fmt.Printf("  %-28s Adaptive threshold radius in pixels (default 5)\n", config.EnvThresholdRadius)
	fmt.Printf("  %-28s Adaptive threshold offset (default 7)\n", config.EnvThresholdC)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
