package gitutils

import (
	"errors"
	"testing"
)

func TestParseRepositoryURL(t *testing.T) {
	tests := []struct {
		raw  string
		want RepoRef
	}{
		{"https://github.com/acme/widget", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
		{"http://github.com/acme/widget.git", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
		{"github.com/acme/widget/", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
		{"  GitHub.com/acme/widget  ", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
		{"https://github.com/acme/widget/tree/dev", RepoRef{Host: "github.com", Owner: "acme", Name: "widget", Branch: "dev"}},
		{"https://github.com/acme/widget/tree/feature/login-form", RepoRef{Host: "github.com", Owner: "acme", Name: "widget", Branch: "feature/login-form"}},
		{"https://github.com/acme/widget?tab=readme#top", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
		{"git@github.com:acme/widget.git", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
		{"https://gitlab.com/acme/widget/-/tree/main", RepoRef{Host: "gitlab.com", Owner: "acme", Name: "widget", Branch: "main"}},
		{"https://token@github.com/acme/widget", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
		{"https://github.com/acme/widget/blob/main/README.md", RepoRef{Host: "github.com", Owner: "acme", Name: "widget"}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseRepositoryURL(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseRepositoryURLUnsupported(t *testing.T) {
	for _, raw := range []string{
		"",
		"ftp://github.com/acme/widget",
		"file:///tmp/repo",
		"https://github.com/acme",
		"not a url",
		"git@github.com",
		"https://github.com/ac me/widget",
		"widget/acme/github",
	} {
		if _, err := ParseRepositoryURL(raw); !errors.Is(err, ErrUnsupportedSource) {
			t.Errorf("ParseRepositoryURL(%q) error = %v, want ErrUnsupportedSource", raw, err)
		}
	}
}

func TestRepoRefURLs(t *testing.T) {
	ref := RepoRef{Host: "gitlab.com", Owner: "acme", Name: "widget", Branch: "dev"}
	if ref.CloneURL() != "https://gitlab.com/acme/widget.git" {
		t.Errorf("clone URL %s", ref.CloneURL())
	}
	if ref.String() != "gitlab.com/acme/widget@dev" {
		t.Errorf("string %s", ref.String())
	}
}
