package storage

import "testing"

func TestS3Region(t *testing.T) {
	tests := []struct {
		cfg  Config
		want string
	}{
		{Config{Type: StorageTypeR2}, "auto"},
		{Config{Type: StorageTypeS3}, "us-east-1"},
		{Config{Type: StorageTypeR2, Region: "weur"}, "weur"},
	}
	for _, tt := range tests {
		if got := s3Region(&tt.cfg); got != tt.want {
			t.Errorf("s3Region(%+v) = %q, want %q", tt.cfg, got, tt.want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := map[string]string{
		"https://acct.r2.cloudflarestorage.com/bucket": "acct.r2.cloudflarestorage.com",
		"http://localhost:9000":                        "localhost:9000",
		"s3.amazonaws.com":                             "s3.amazonaws.com",
		"":                                             "",
	}
	for in, want := range tests {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", in, got, want)
		}
	}
}
