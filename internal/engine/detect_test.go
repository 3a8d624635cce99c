package engine

import "testing"

func TestDetect(t *testing.T) {
	cases := []struct {
		name    string
		cfg     DetectConfig
		want    string
		wantErr bool
	}{
		{"openai", DetectConfig{Provider: ProviderOpenAI, OpenAIAPIKey: "sk-test"}, ProviderOpenAI, false},
		{"default provider is openai", DetectConfig{OpenAIAPIKey: "sk-test"}, ProviderOpenAI, false},
		{"openai without key", DetectConfig{Provider: ProviderOpenAI}, "", true},
		{"ollama", DetectConfig{Provider: ProviderOllama, OllamaBaseURL: "http://localhost:11434"}, ProviderOllama, false},
		{"unknown", DetectConfig{Provider: "mlx"}, "", true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, err := Detect(c.cfg)
			if c.wantErr {
				if err == nil {
					t.Fatalf("Detect(%+v) succeeded, want error", c.cfg)
				}
				return
			}
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if e.Name() != c.want {
				t.Errorf("Name() = %q, want %q", e.Name(), c.want)
			}
		})
	}
}
