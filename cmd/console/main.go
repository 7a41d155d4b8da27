package main

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jwebster45206/immersion-engine/pkg/session"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	Session    session.Config
	// FrameInterval paces frame commands while the camera is moving.
	FrameInterval time.Duration
	FramesPerTick int
}

func main() {
	// IMMERSION_QUERY takes the same parameters as a deep link, e.g. "lang=fr&mode=dev".
	query, err := url.ParseQuery(getEnv("IMMERSION_QUERY", ""))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid IMMERSION_QUERY: %v\n", err)
		os.Exit(1)
	}

	cfg := &ConsoleConfig{
		APIBaseURL:    getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:       30 * time.Second,
		Session:       session.FromQuery(query),
		FrameInterval: 100 * time.Millisecond,
		FramesPerTick: 3,
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
