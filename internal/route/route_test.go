package route

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"///", "/"},
		{"/blog/", "/blog"},
		{"/blog///", "/blog"},
		{"blog", "/blog"},
		{"/a/b", "/a/b"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{"", "/", "//", "a", "a/", "/a//", "/blog/x/", "/%20/", "x/y/z///"}
	for _, in := range inputs {
		once := Normalize(in)
		if twice := Normalize(once); twice != once {
			t.Errorf("Normalize(Normalize(%q)) = %q, want %q", in, twice, once)
		}
	}
}

func TestItemKey(t *testing.T) {
	c := New(WithListRoute("/list"))

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"/list/abc", "abc", true},
		{"/list/abc/", "abc", true},
		{"/list/hello%20world", "hello world", true},
		{"/list/abc/def", "", false},
		{"/list", "", false},
		{"/list/", "", false},
		{"/other/abc", "", false},
		{"/listing/abc", "", false},
		{"/list/a%2Fb", "", false},
		{"/list/%zz", "", false},
	}
	for _, tt := range tests {
		got, ok := c.ItemKey(tt.path)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ItemKey(%q) = (%q, %v), want (%q, %v)", tt.path, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestClassify(t *testing.T) {
	c := New()

	tests := []struct {
		path string
		want Strategy
	}{
		{"/", StrategyStatic},
		{"/about/", StrategyStatic},
		{"/privacy", StrategyStatic},
		{"/blog", StrategySSR},
		{"/blog/", StrategySSR},
		{"/blog/first-post", StrategySSR},
		{"/blog/a/b", StrategyClientOnly},
		{"/some/unrelated/path", StrategyClientOnly},
	}
	for _, tt := range tests {
		if got := c.Classify(tt.path); got != tt.want {
			t.Errorf("Classify(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestIsSSREligible(t *testing.T) {
	c := New()
	if !c.IsSSREligible("/blog") || !c.IsSSREligible("/blog/x") {
		t.Fatal("list and item paths should be SSR eligible")
	}
	if c.IsSSREligible("/about") {
		t.Fatal("/about should not be SSR eligible")
	}
}

func TestStaticRoutesDeduplicated(t *testing.T) {
	c := New(WithStaticRoutes("/", "/about/", "/about", "pricing"))
	want := []string{"/", "/about", "/pricing"}
	if got := c.StaticRoutes(); !slices.Equal(got, want) {
		t.Fatalf("StaticRoutes() = %v, want %v", got, want)
	}
}

func TestPrerenderFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/", "index.html"},
		{"", "index.html"},
		{"/about", "about.html"},
		{"/a/b", "a__b.html"},
		{"/a/b/", "a__b.html"},
	}
	for _, tt := range tests {
		if got := PrerenderFileName(tt.in); got != tt.want {
			t.Errorf("PrerenderFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
