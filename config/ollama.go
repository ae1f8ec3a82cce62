package config

import (
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/joho/godotenv"
)

var (
	ollamaOnce   sync.Once
	ollamaConfig *OllamaConfig
)

// OllamaConfig holds the merge-advisor model settings. Endpoint left
// empty disables the advisor entirely.
type OllamaConfig struct {
	Endpoint    string
	Model       string
	Temperature float64
}

func GetOllamaConfig() *OllamaConfig {
	ollamaOnce.Do(func() {
		_, filename, _, _ := runtime.Caller(0)
		configDir := filepath.Dir(filename)

		rootDir := filepath.Dir(configDir)
		envPath := filepath.Join(rootDir, ".env")

		if err := godotenv.Load(envPath); err != nil {
			log.Printf("Warning: .env file not found at %s, falling back to environment variables", envPath)
		}

		model := os.Getenv("OLLAMA_MODEL")
		if model == "" {
			model = "llama3.1"
		}

		ollamaConfig = &OllamaConfig{
			Endpoint:    os.Getenv("OLLAMA_ENDPOINT"),
			Model:       model,
			Temperature: 0.1,
		}
	})
	return ollamaConfig
}
