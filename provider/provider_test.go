package provider

import "testing"

func TestWithBaseURLReturnsCopy(t *testing.T) {
	base := New("openai-main", KindOpenAI, "sk-test")
	withURL := base.WithBaseURL("https://proxy.example.com")

	if base.BaseURL != "" {
		t.Fatalf("expected original Provider to be unmodified, got BaseURL=%q", base.BaseURL)
	}
	if withURL.BaseURL != "https://proxy.example.com" {
		t.Fatalf("got %q", withURL.BaseURL)
	}
	if withURL.Name != base.Name || withURL.Kind != base.Kind || withURL.APIKey != base.APIKey {
		t.Fatalf("WithBaseURL should preserve other fields, got %+v", withURL)
	}
}
