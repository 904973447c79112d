// Package config loads callwise settings from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the tunable parameters for both workflows and the server.
// Zero values are replaced with defaults by Load and Default.
type Settings struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `yaml:"listen_addr"`

	// DatabasePath is the SQLite document store path.
	DatabasePath string `yaml:"database_path"`

	// TranscriptDir is the directory the artifact source reads from.
	TranscriptDir string `yaml:"transcript_dir"`

	// LLMTimeout bounds each inference call.
	LLMTimeout time.Duration `yaml:"llm_timeout"`

	// LLMModel is the default model name, empty for provider default.
	LLMModel string `yaml:"llm_model"`

	// ConfidenceThreshold is the minimum verification confidence (1-5)
	// that lets a reasoning run continue without replanning.
	ConfidenceThreshold int `yaml:"confidence_threshold"`

	// MaxReplans caps the replan cycle; once reached the run concludes
	// with a best-effort answer.
	MaxReplans int `yaml:"max_replans"`

	// SynthesisBudget is the maximum rendered size, in bytes, of the
	// execution log handed to the concluding step. Oldest entries are
	// elided first.
	SynthesisBudget int `yaml:"synthesis_budget"`

	// ChunkSize is the target chunk length, in runes, for ingestion.
	ChunkSize int `yaml:"chunk_size"`

	// ChunkOverlap is the rune overlap between consecutive chunks.
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// Default returns the default settings.
func Default() Settings {
	return Settings{
		ListenAddr:          ":8080",
		DatabasePath:        "./callwise.db",
		TranscriptDir:       "./transcripts",
		LLMTimeout:          90 * time.Second,
		ConfidenceThreshold: 3,
		MaxReplans:          2,
		SynthesisBudget:     8192,
		ChunkSize:           800,
		ChunkOverlap:        120,
	}
}

// Load reads settings from a YAML file and fills unset fields with defaults.
func Load(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML settings and fills unset fields with defaults.
func Parse(data []byte) (Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("parse config: %w", err)
	}
	s.applyDefaults()
	if err := s.validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

func (s *Settings) applyDefaults() {
	def := Default()
	if s.ListenAddr == "" {
		s.ListenAddr = def.ListenAddr
	}
	if s.DatabasePath == "" {
		s.DatabasePath = def.DatabasePath
	}
	if s.TranscriptDir == "" {
		s.TranscriptDir = def.TranscriptDir
	}
	if s.LLMTimeout <= 0 {
		s.LLMTimeout = def.LLMTimeout
	}
	if s.ConfidenceThreshold == 0 {
		s.ConfidenceThreshold = def.ConfidenceThreshold
	}
	if s.MaxReplans == 0 {
		s.MaxReplans = def.MaxReplans
	}
	if s.SynthesisBudget == 0 {
		s.SynthesisBudget = def.SynthesisBudget
	}
	if s.ChunkSize == 0 {
		s.ChunkSize = def.ChunkSize
	}
	if s.ChunkOverlap == 0 {
		s.ChunkOverlap = def.ChunkOverlap
	}
}

func (s *Settings) validate() error {
	if s.ConfidenceThreshold < 1 || s.ConfidenceThreshold > 5 {
		return fmt.Errorf("confidence_threshold must be in [1,5], got %d", s.ConfidenceThreshold)
	}
	if s.MaxReplans < 0 {
		return fmt.Errorf("max_replans cannot be negative, got %d", s.MaxReplans)
	}
	if s.ChunkOverlap >= s.ChunkSize {
		return fmt.Errorf("chunk_overlap (%d) must be smaller than chunk_size (%d)", s.ChunkOverlap, s.ChunkSize)
	}
	return nil
}
