package crawler

import "testing"

// TestMatchPattern tests glob matching against URL paths.
func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		pattern string
		path    string
		want    bool
	}{
		{"/admin/*", "/admin/users", true},
		{"/admin/*", "/admin/users/1", false},
		{"/admin/**", "/admin/users/1", true},
		{"/admin/**", "/admin", true},
		{"/admin/**", "/administrator", false},
		{"*.pdf", "/files/report.pdf", true},
		{"*.pdf", "/files/report.html", false},
		{"/exact", "/exact", true},
		{"[", "/anything", false},
	}
	for _, tt := range tests {
		if got := matchPattern(tt.pattern, tt.path); got != tt.want {
			t.Errorf("matchPattern(%q, %q) = %v, want %v", tt.pattern, tt.path, got, tt.want)
		}
	}
}

// TestPathFilterAllow tests ignore and follow precedence.
func TestPathFilterAllow(t *testing.T) {
	t.Parallel()

	f := pathFilter{
		ignore: []string{"/docs/private/**"},
		follow: []string{"/docs/**", "/"},
	}

	tests := []struct {
		url  string
		want bool
	}{
		{"http://example.com/", true},
		{"http://example.com", true},
		{"http://example.com/docs/intro", true},
		{"http://example.com/docs/private/key", false},
		{"http://example.com/blog/post", false},
	}
	for _, tt := range tests {
		if got := f.allow(tt.url); got != tt.want {
			t.Errorf("allow(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}

	if !(pathFilter{}).allow("http://example.com/anything") {
		t.Error("empty filter should allow everything")
	}
}
