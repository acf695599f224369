package auth

import "testing"

func TestVerifyPlainToken(t *testing.T) {
	v := NewTokenVerifier("s3cret", "")

	cases := []struct {
		name  string
		token string
		want  bool
	}{
		{"exact match", "s3cret", true},
		{"wrong token", "guess", false},
		{"prefix only", "s3c", false},
		{"empty", "", false},
		{"case differs", "S3CRET", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := v.Verify(tc.token); got != tc.want {
				t.Errorf("Verify(%q) = %v, want %v", tc.token, got, tc.want)
			}
		})
	}
}

func TestVerifyHashedToken(t *testing.T) {
	hash, err := Hash("s3cret")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	v := NewTokenVerifier("ignored", hash)
	if !v.Verify("s3cret") {
		t.Error("expected hashed token to verify")
	}
	if v.Verify("ignored") {
		t.Error("plain token must not verify when a hash is configured")
	}
}

func TestVerifyEmptyConfiguredToken(t *testing.T) {
	v := NewTokenVerifier("", "")
	if v.Verify("anything") {
		t.Error("expected no token to verify against an empty configuration")
	}
}
