package export

import "testing"

func TestStagingConfigFromEnv(t *testing.T) {
	t.Setenv("EXPORT_S3_BUCKET", "")
	if _, ok := StagingConfigFromEnv(); ok {
		t.Fatal("missing bucket should disable staging")
	}

	t.Setenv("EXPORT_S3_BUCKET", "kb-exports")
	t.Setenv("EXPORT_S3_PREFIX", "")
	cfg, ok := StagingConfigFromEnv()
	if !ok {
		t.Fatal("bucket set, staging should be enabled")
	}
	if cfg.Prefix != "notebooklm" {
		t.Errorf("default prefix = %q", cfg.Prefix)
	}

	t.Setenv("EXPORT_S3_PREFIX", "custom/path")
	cfg, _ = StagingConfigFromEnv()
	if cfg.Prefix != "custom/path" {
		t.Errorf("explicit prefix = %q", cfg.Prefix)
	}
}

func TestContentTypeFor(t *testing.T) {
	cases := []struct{ path, want string }{
		{"a/doc.md", "text/plain; charset=utf-8"},
		{"a/doc.TXT", "text/plain; charset=utf-8"},
		{"a/index.json", "application/json"},
		{"a/slide.png", "image/png"},
		{"a/archive.zip", ""},
	}
	for _, c := range cases {
		if got := contentTypeFor(c.path); got != c.want {
			t.Errorf("contentTypeFor(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}
