package lang

import (
	"errors"
	"strconv"
	"strings"
	"sync"
	"testing"
	"testing/iotest"
)

func TestEngine_ParseCache(t *testing.T) {
	e := newEngine(t)
	src := "{% print 1; %}"

	a, err := e.Parse(t.Context(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	b, err := e.Parse(t.Context(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if a != b {
		t.Error("expected the cached template")
	}

	c, _ := e.Parse(t.Context(), src+" ")
	if c == a {
		t.Error("expected a distinct template for distinct source")
	}

	e.ClearCache()

	d, err := e.Parse(t.Context(), src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if d == a {
		t.Error("expected a new template after clearing the cache")
	}
}

func TestEngine_ParseCacheErrors(t *testing.T) {
	e := newEngine(t)

	_, err1 := e.Parse(t.Context(), "{% print ; %}")
	_, err2 := e.Parse(t.Context(), "{% print ; %}")

	if !errors.Is(err1, ErrSyntax) || err1 != err2 { //nolint:errorlint
		t.Errorf("expected the same cached syntax error, got %v and %v", err1, err2)
	}
}

func TestEngine_NoCache(t *testing.T) {
	e := newEngine(t, WithCache(false))
	src := "{% print 1; %}"

	a, _ := e.Parse(t.Context(), src)
	b, _ := e.Parse(t.Context(), src)

	if a == b {
		t.Error("expected distinct templates without a cache")
	}

	e.ClearCache()
}

func TestEngine_ParseCacheConcurrent(t *testing.T) {
	e := newEngine(t)
	src := "{% for i in range(3): print i; endfor; %}"

	var (
		wg    sync.WaitGroup
		tmpls = make([]*Template, 16)
	)

	for i := range tmpls {
		wg.Add(1)

		go func() {
			defer wg.Done()

			tmpls[i], _ = e.Parse(t.Context(), src)
		}()
	}

	wg.Wait()

	for i, tmpl := range tmpls {
		if tmpl == nil || tmpl != tmpls[0] {
			t.Fatalf("template %d: expected one shared template", i)
		}
	}
}

func TestEngine_ParseReader(t *testing.T) {
	e := newEngine(t)

	tmpl, err := e.ParseReader(t.Context(), strings.NewReader("a{% print 1 + 1; %}b"))
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	if tmpl.Source() != "a{% print 1 + 1; %}b" {
		t.Errorf("unexpected source %q", tmpl.Source())
	}

	out, err := e.RenderString(t.Context(), tmpl, nil)
	if err != nil {
		t.Fatalf("render error: %v", err)
	}

	if out != "a2b" {
		t.Errorf("expected a2b, got %s", out)
	}

	_, err = e.ParseReader(t.Context(), iotest.ErrReader(errors.New("broken")))
	if !errors.Is(err, ErrReadInput) {
		t.Errorf("expected read error, got %v", err)
	}
}

func TestEngine_RenderConcurrent(t *testing.T) {
	e := newEngine(t, WithGlobals(map[string]any{"g": "G"}))

	tmpl, err := e.Parse(t.Context(), "{% x = n * 2; for i in range(x): print g; endfor; print x; %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	var wg sync.WaitGroup

	for n := range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			out, err := e.RenderString(t.Context(), tmpl, map[string]any{"n": n})
			if err != nil {
				t.Errorf("render error: %v", err)

				return
			}

			want := strings.Repeat("G", n*2) + strconv.Itoa(n*2)
			if out != want {
				t.Errorf("expected %s, got %s", want, out)
			}
		}()
	}

	wg.Wait()
}
