package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"promptsmith/pkg/api/chat"
	"promptsmith/pkg/api/config"
	"promptsmith/pkg/core/agent"
	"promptsmith/pkg/core/interview"
	"promptsmith/pkg/core/prompt"
	"promptsmith/pkg/core/store"
)

func main() {
	// Load environment variables
	godotenv.Load()

	// Initialize prompt overrides
	// Determine resources path (relative to executable or working directory)
	resourcesPath := "resources"
	if _, err := os.Stat(resourcesPath); os.IsNotExist(err) {
		exePath, _ := os.Executable()
		resourcesPath = filepath.Join(filepath.Dir(exePath), "resources")
	}
	if err := prompt.LoadFromDirectory(resourcesPath); err != nil {
		fmt.Printf("[WARNING] Failed to load prompt overrides: %v\n", err)
		fmt.Println("  Falling back to built-in stage instructions")
	} else {
		fmt.Printf("[PROMPT] Loaded %d prompt overrides from %s\n", prompt.Get().Count(), resourcesPath)
	}

	// Initialize manager from the model catalog
	configPath := os.Getenv("MODELS_CONFIG")
	if configPath == "" {
		configPath = "config/models.yaml"
	}
	configData, err := os.ReadFile(configPath)
	if err != nil {
		fmt.Printf("[FATAL] Failed to read model catalog %s: %v\n", configPath, err)
		os.Exit(1)
	}
	var agentCfg agent.Config
	if err := yaml.Unmarshal(configData, &agentCfg); err != nil {
		fmt.Printf("[FATAL] Invalid model catalog: %v\n", err)
		os.Exit(1)
	}
	agentMgr := agent.NewManager(agentCfg)

	// Initialize persistence
	ctx := context.Background()
	if err := store.InitDB(ctx); err != nil {
		fmt.Printf("[FATAL] Database init failed: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.EnsureSchema(ctx); err != nil {
		fmt.Printf("[FATAL] Schema check failed: %v\n", err)
		os.Exit(1)
	}

	interviewCfg := interview.ConfigFromEnv()
	fmt.Printf("[CONFIG] timeout=%s retries=%d historyCap=%d roundLimit=%d minVariables=%d countPolicy=%s\n",
		interviewCfg.Timeout, interviewCfg.Retries, interviewCfg.HistoryCap,
		interviewCfg.RoundLimit, interviewCfg.MinVariables, interviewCfg.CountPolicy)

	// Chat endpoint
	chatHandler := chat.NewHandler(agentMgr, store.NewSessionRepo(), interviewCfg)
	http.HandleFunc("/api/chat/turn", chatHandler.HandleTurn)

	// Config endpoints
	configHandler := config.NewHandler(agentMgr)
	http.HandleFunc("/api/config", configHandler.HandleGet)
	http.HandleFunc("/api/config/switch", configHandler.HandleSwitch)
	http.HandleFunc("/api/config/prompts", configHandler.HandlePrompts)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	fmt.Printf("API server starting on :%s...\n", port)
	fmt.Println("  - POST /api/chat/turn  (JSON or SSE with ?stream=1)")
	fmt.Println("  - GET  /api/config")
	fmt.Println("  - POST /api/config/switch")
	fmt.Println("  - GET  /api/config/prompts")

	if err := http.ListenAndServe(":"+port, nil); err != nil {
		fmt.Printf("[FATAL] Server failed to start: %v\n", err)
		os.Exit(1)
	}
}
