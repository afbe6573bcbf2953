package thumbnail

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"myfeed/internal/cache"
	"myfeed/internal/ratelimit"
	"myfeed/internal/testutil"
)

func newTestResolver(c cache.Cache) (*Resolver, *http.Client) {
	client := &http.Client{Timeout: time.Second}
	return NewResolver(client, c, ratelimit.New(0), testutil.NullLogger()), client
}

func pageWith(head string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><head>" + head + "</head><body></body></html>"))
	}
}

func TestResolvePicksFirstQualifyingImage(t *testing.T) {
	tests := []struct {
		name string
		head string
		want string
	}{
		{
			name: "single candidate",
			head: `<meta property="og:image" content="https://cdn.example.com/a.png"/>`,
			want: "https://cdn.example.com/a.png",
		},
		{
			name: "skips unsupported format",
			head: `<meta property="og:image" content="https://cdn.example.com/anim.gif"/>` +
				`<meta property="og:image" content="https://cdn.example.com/still.jpg"/>`,
			want: "https://cdn.example.com/still.jpg",
		},
		{
			name: "suffix check is case sensitive",
			head: `<meta property="og:image" content="https://cdn.example.com/a.PNG"/>`,
			want: "",
		},
		{
			name: "query string ignored by suffix check",
			head: `<meta property="og:image" content="https://cdn.example.com/a.webp?w=1200"/>`,
			want: "https://cdn.example.com/a.webp?w=1200",
		},
		{
			name: "document order wins",
			head: `<meta property="og:image" content="https://cdn.example.com/first.jpeg"/>` +
				`<meta property="og:image" content="https://cdn.example.com/second.png"/>`,
			want: "https://cdn.example.com/first.jpeg",
		},
		{
			name: "missing content attribute",
			head: `<meta property="og:image"/>`,
			want: "",
		},
		{
			name: "no og:image at all",
			head: `<meta property="og:title" content="hello"/>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(pageWith(tt.head))
			defer server.Close()

			resolver, _ := newTestResolver(nil)

			got, err := resolver.Resolve(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("Resolve failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveIgnoresBodyMeta(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head></head><body>` +
			`<meta property="og:image" content="https://cdn.example.com/a.png"/>` +
			`</body></html>`))
	}))
	defer server.Close()

	resolver, _ := newTestResolver(nil)

	got, err := resolver.Resolve(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != "" {
		t.Errorf("got %q, want no image for meta outside head", got)
	}
}

func TestResolveFetchFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	resolver, _ := newTestResolver(nil)

	if _, err := resolver.Resolve(context.Background(), server.URL); err == nil {
		t.Fatal("expected an error for a 404 page")
	}
}

func TestResolveCachesResults(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		pageWith(`<meta property="og:image" content="https://cdn.example.com/a.jpg"/>`)(w, r)
	}))
	defer server.Close()

	c := cache.NewMemory(time.Minute)
	defer c.Stop()
	resolver, _ := newTestResolver(c)

	for i := 0; i < 3; i++ {
		got, err := resolver.Resolve(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != "https://cdn.example.com/a.jpg" {
			t.Errorf("got %q on call %d", got, i)
		}
	}

	if hits != 1 {
		t.Errorf("page fetched %d times, want 1", hits)
	}
}

func TestResolveCachesMissingImage(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		pageWith("")(w, r)
	}))
	defer server.Close()

	c := cache.NewMemory(time.Minute)
	defer c.Stop()
	resolver, _ := newTestResolver(c)

	for i := 0; i < 2; i++ {
		got, err := resolver.Resolve(context.Background(), server.URL)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if got != "" {
			t.Errorf("got %q, want no image", got)
		}
	}

	if hits != 1 {
		t.Errorf("page fetched %d times, want 1 for a cached empty answer", hits)
	}
}

func TestHasImageSuffix(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/a.jpg", true},
		{"/a.jpeg", true},
		{"/a.png", true},
		{"/a.webp", true},
		{"/a.gif", false},
		{"/a.svg", false},
		{"/a.PNG", false},
		{"/a", false},
	}

	for _, tt := range tests {
		if got := hasImageSuffix(tt.path); got != tt.want {
			t.Errorf("hasImageSuffix(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
