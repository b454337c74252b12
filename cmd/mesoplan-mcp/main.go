package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/mesoplan/internal/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	serverURL := flag.String("server", "", "Mesoplan server URL (e.g. https://mesoplan.tail1234.ts.net)")
	version := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *version {
		fmt.Println("mesoplan-mcp", Version)
		return
	}

	// stdout carries the MCP protocol; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if *serverURL == "" {
		fmt.Fprintf(os.Stderr, "Usage: mesoplan-mcp -server <URL>\n\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	client := mcp.NewHTTPClient(*serverURL)
	s := mcp.New(client, Version, log)

	log.Info("mcp stdio bridge starting", "server", *serverURL)
	if err := mcpserver.ServeStdio(s); err != nil {
		log.Error("mcp stdio server failed", "error", err)
		os.Exit(1)
	}
}
