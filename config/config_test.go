package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"DATABASE_URL", "LISTEN_ADDR", "ALLOWED_ORIGIN",
		"EMBEDDINGS_PROVIDER", "EMBEDDINGS_MODEL", "EMBEDDING_DIMENSION",
		"LLM_PROVIDER", "LLM_MODEL",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Embeddings.Provider != ProviderGemini {
		t.Fatalf("embeddings provider = %q, want gemini", cfg.Embeddings.Provider)
	}
	if cfg.Embeddings.Dimension != 768 {
		t.Fatalf("embedding dimension = %d, want 768", cfg.Embeddings.Dimension)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddr)
	}
	if cfg.AllowedOrigin != "*" {
		t.Fatalf("allowed origin = %q", cfg.AllowedOrigin)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("EMBEDDINGS_PROVIDER", "openai")
	t.Setenv("EMBEDDING_DIMENSION", "1536")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")

	cfg := Load()

	if cfg.Embeddings.Provider != ProviderOpenAI {
		t.Fatalf("embeddings provider = %q", cfg.Embeddings.Provider)
	}
	if cfg.Embeddings.Dimension != 1536 {
		t.Fatalf("embedding dimension = %d", cfg.Embeddings.Dimension)
	}
	if cfg.LLM.Model != "gpt-4o-mini" {
		t.Fatalf("llm model = %q", cfg.LLM.Model)
	}
}

func TestLoadIgnoresInvalidDimension(t *testing.T) {
	t.Setenv("EMBEDDING_DIMENSION", "not-a-number")

	if cfg := Load(); cfg.Embeddings.Dimension != 768 {
		t.Fatalf("embedding dimension = %d, want fallback 768", cfg.Embeddings.Dimension)
	}
}
