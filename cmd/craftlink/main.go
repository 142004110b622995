package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/craftlink/craftlink/internal/app"
	"github.com/craftlink/craftlink/internal/model"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the config file")
	flag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, closeLog, err := openLogger(cfg.DataDir)
	if err != nil {
		log.Fatalf("log: %v", err)
	}
	defer closeLog()

	program := tea.NewProgram(app.New(cfg, logger), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "craftlink: %v\n", err)
		os.Exit(1)
	}
}

// openLogger writes the client log to a file under the data directory;
// stdout belongs to the terminal UI.
func openLogger(dataDir string) (*log.Logger, func(), error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, nil, fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	path := filepath.Join(dataDir, "craftlink.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file %s: %w", path, err)
	}

	logger := log.New(f, "", log.LstdFlags)
	return logger, func() { f.Close() }, nil
}
