package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/RobinCoderZhao/solana-news/internal/news"
	"github.com/RobinCoderZhao/solana-news/pkg/llm"
)

type fakeSource struct {
	name    string
	records []news.Record
	err     error
	calls   int
}

func (f *fakeSource) Name() string { return f.name }
func (f *fakeSource) Fetch(ctx context.Context) ([]news.Record, error) {
	f.calls++
	return f.records, f.err
}

type mockLLM struct {
	generateFn func(ctx context.Context, req *llm.Request) (*llm.Response, error)
	calls      int
}

func (m *mockLLM) Generate(ctx context.Context, req *llm.Request) (*llm.Response, error) {
	m.calls++
	return m.generateFn(ctx, req)
}
func (m *mockLLM) Provider() llm.Provider { return llm.Gemini }
func (m *mockLLM) Close() error           { return nil }

type recordingObserver struct {
	calls []string
	cost  float64
}

func (o *recordingObserver) ProviderCall(provider string, records int, err error, elapsed time.Duration) {
	o.calls = append(o.calls, provider)
}
func (o *recordingObserver) LLMUsage(model string, in, out int, cost float64) { o.cost += cost }

func TestChain_FallbackStopsAtFirstNonEmpty(t *testing.T) {
	a := &fakeSource{name: "a", err: errors.New("boom")}
	b := &fakeSource{name: "b", records: []news.Record{{Title: "from b"}}}
	c := &fakeSource{name: "c", records: []news.Record{{Title: "from c"}}}

	obs := &recordingObserver{}
	chain := NewChain(a, b, c)
	chain.SetObserver(obs)

	res, err := chain.Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Provider != "b" || !reflect.DeepEqual(res.Records, b.records) {
		t.Fatalf("expected b's records, got %+v", res)
	}
	if c.calls != 0 {
		t.Fatalf("provider after the winner was called %d times", c.calls)
	}
	if !reflect.DeepEqual(obs.calls, []string{"a", "b"}) {
		t.Fatalf("unexpected observed calls: %v", obs.calls)
	}
}

func TestChain_EmptyResultFallsThrough(t *testing.T) {
	a := &fakeSource{name: "a", records: []news.Record{}}
	b := &fakeSource{name: "b", records: []news.Record{{Title: "x"}}}
	res, err := NewChain(a, b).Fetch(context.Background())
	if err != nil || res.Provider != "b" {
		t.Fatalf("expected b, got %+v err=%v", res, err)
	}
}

func TestChain_AllFail(t *testing.T) {
	chain := NewChain(
		&fakeSource{name: "a", err: errors.New("down")},
		&fakeSource{name: "b"},
	)
	res, err := chain.Fetch(context.Background())
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
	if res.Records == nil || len(res.Records) != 0 {
		t.Fatalf("expected empty non-nil records, got %#v", res.Records)
	}
	if !strings.Contains(err.Error(), "a: down") || !strings.Contains(err.Error(), "b: empty result") {
		t.Fatalf("error should describe each provider: %v", err)
	}
}

func TestChain_CanceledContext(t *testing.T) {
	a := &fakeSource{name: "a", records: []news.Record{{Title: "x"}}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewChain(a).Fetch(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if a.calls != 0 {
		t.Fatal("source called after cancellation")
	}
}

type queryFunc func(ctx context.Context, q string) ([]news.Record, error)

func (f queryFunc) Query(ctx context.Context, q string) ([]news.Record, error) { return f(ctx, q) }

func TestMultiQuery_ConcatenatesInOrder(t *testing.T) {
	q := queryFunc(func(ctx context.Context, query string) ([]news.Record, error) {
		if query == "broken" {
			return nil, errors.New("timeout")
		}
		return []news.Record{{Title: query + "-1"}, {Title: query + "-2"}}, nil
	})
	m := NewMultiQuery("multi", []string{"one", "broken", "two"}, q)
	got, err := m.Fetch(context.Background())
	if err != nil {
		t.Fatalf("partial failure should not be an error: %v", err)
	}
	want := []news.Record{{Title: "one-1"}, {Title: "one-2"}, {Title: "two-1"}, {Title: "two-2"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestMultiQuery_AllFail(t *testing.T) {
	q := queryFunc(func(ctx context.Context, query string) ([]news.Record, error) {
		return nil, errors.New("nope")
	})
	got, err := NewMultiQuery("multi", []string{"a", "b"}, q).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected error when every query fails")
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %d", len(got))
	}
}

func newSerpServer(t *testing.T, handler http.HandlerFunc) (*SerpClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := NewSerpClient(SearchOptions{APIKey: "serp-key", BaseURL: srv.URL, Engine: "google", Recency: "d", Num: 5})
	if err != nil {
		t.Fatal(err)
	}
	return client, srv
}

func TestSerpClient_Search(t *testing.T) {
	client, _ := newSerpServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if q.Get("q") != "solana airdrop" || q.Get("engine") != "google" || q.Get("api_key") != "serp-key" {
			t.Errorf("unexpected query %v", q)
		}
		if q.Get("tbs") != "qdr:d" || q.Get("num") != "5" {
			t.Errorf("filters not applied: %v", q)
		}
		w.Write([]byte(`{"organic_results":[{"title":"A","snippet":"s","link":"https://a","date":"Jun 8, 2024"}],"news_results":[{"title":"B","link":"https://b"}]}`))
	})

	resp, err := client.Search(context.Background(), "solana airdrop")
	if err != nil {
		t.Fatal(err)
	}
	items := resp.Items()
	if len(items) != 2 || items[0].Title != "A" || items[1].Title != "B" {
		t.Fatalf("unexpected items: %+v", items)
	}
}

func TestSerpClient_TransportErrorOmitsKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	base := srv.URL
	srv.Close()

	client, err := NewSerpClient(SearchOptions{APIKey: "TOPSECRETKEY", BaseURL: base})
	if err != nil {
		t.Fatal(err)
	}
	chain := NewChain(NewMultiQuery("serpapi", []string{"q"}, NewSearchSource(client)))
	_, err = chain.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !errors.Is(err, ErrNoResults) {
		t.Fatalf("expected ErrNoResults, got %v", err)
	}
	if strings.Contains(err.Error(), "TOPSECRETKEY") || strings.Contains(err.Error(), "api_key") {
		t.Fatalf("error leaks the API key: %v", err)
	}
}

func TestSerpClient_NoResultsIsEmpty(t *testing.T) {
	client, _ := newSerpServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error":"Google hasn't returned any results for this query."}`))
	})
	resp, err := client.Search(context.Background(), "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Items()) != 0 {
		t.Fatal("expected no items")
	}
}

func TestSerpClient_StatusError(t *testing.T) {
	client, _ := newSerpServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"Invalid API key."}`))
	})
	_, err := client.Search(context.Background(), "x")
	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %v", err)
	}
	if statusErr.StatusCode != http.StatusUnauthorized || statusErr.Body != "Invalid API key." {
		t.Fatalf("unexpected status error: %+v", statusErr)
	}
}

func TestSerpClient_BadJSON(t *testing.T) {
	client, _ := newSerpServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})
	if _, err := client.Search(context.Background(), "x"); err == nil {
		t.Fatal("expected error for non-JSON body")
	}
}

func TestNewSerpClient_RequiresKey(t *testing.T) {
	if _, err := NewSerpClient(SearchOptions{}); err == nil {
		t.Fatal("expected error without API key")
	}
}

func TestSearchSource_AppliesDefaults(t *testing.T) {
	client, _ := newSerpServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"organic_results":[{"title":"No snippet","link":"https://a"}]}`))
	})
	src := NewSearchSource(client)
	src.now = func() time.Time { return time.Date(2024, 6, 10, 8, 0, 0, 0, time.UTC) }

	got, err := src.Query(context.Background(), "q")
	if err != nil {
		t.Fatal(err)
	}
	want := []news.Record{{Title: "No snippet", SourceURL: "https://a", EventDate: "2024-06-10"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestGenerativeSource_ParsesFencedOutput(t *testing.T) {
	var gotReq *llm.Request
	client := &mockLLM{generateFn: func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		gotReq = req
		return &llm.Response{Content: "```json\n[{\"title\":\"Firedancer live\",\"content\":\"c\",\"source_url\":\"u\",\"event_date\":\"2024-06-10\"}]\n```", Cost: 0.01}, nil
	}}
	obs := &recordingObserver{}
	src := NewGenerativeSource(client, 0, WithObserver(obs))

	got, err := src.Fetch(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Firedancer live" {
		t.Fatalf("unexpected records: %+v", got)
	}
	if src.Name() != "gemini" {
		t.Fatalf("unexpected name %q", src.Name())
	}
	if gotReq.Temperature != nil {
		t.Fatalf("generation should use the client temperature, got %v", *gotReq.Temperature)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || !strings.Contains(gotReq.Messages[1].Content, "Generate 3 latest Solana news") {
		t.Fatalf("unexpected prompt: %+v", gotReq.Messages)
	}
	if obs.cost != 0.01 {
		t.Fatalf("usage not observed, cost=%f", obs.cost)
	}
}

func TestGenerativeSource_MalformedOutput(t *testing.T) {
	client := &mockLLM{generateFn: func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		return &llm.Response{Content: "Sorry, I cannot browse the web."}, nil
	}}
	got, err := NewGenerativeSource(client, 3).Fetch(context.Background())
	if err == nil {
		t.Fatal("expected normalize error")
	}
	if len(got) != 0 {
		t.Fatalf("expected no records, got %+v", got)
	}
}

func TestExtractSource_Query(t *testing.T) {
	client, _ := newSerpServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "empty" {
			w.Write([]byte(`{"organic_results":[]}`))
			return
		}
		w.Write([]byte(`{"organic_results":[{"title":"JUP airdrop","snippet":"Jupiter confirms","link":"https://jup"}]}`))
	})
	llmClient := &mockLLM{generateFn: func(ctx context.Context, req *llm.Request) (*llm.Response, error) {
		if !strings.Contains(req.Messages[0].Content, "https://jup") {
			t.Errorf("search results missing from prompt: %s", req.Messages[0].Content)
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Errorf("extraction should request temperature 0, got %v", req.Temperature)
		}
		return &llm.Response{Content: `[{"project_name":"Jupiter","token_symbol":"JUP","event_type":"Airdrop","source_url":"https://jup","short_description":"d","event_date":"2024-06-10"}]`}, nil
	}}
	src := NewExtractSource(client, llmClient)

	got, err := src.Query(context.Background(), "solana airdrop confirmed today")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Title != "Jupiter" || got[0].EventType != news.EventAirdrop {
		t.Fatalf("unexpected records: %+v", got)
	}

	got, err = src.Query(context.Background(), "empty")
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result without error, got %+v err=%v", got, err)
	}
	if llmClient.calls != 1 {
		t.Fatalf("LLM should not be called for empty search results, calls=%d", llmClient.calls)
	}
}

func TestBuildChain(t *testing.T) {
	client := &mockLLM{}
	withKey := DefaultOptions()
	withKey.Search.APIKey = "k"

	tests := []struct {
		name    string
		mode    Mode
		search  bool
		client  llm.Client
		want    []string
		wantErr bool
	}{
		{"generative", ModeGenerative, false, client, []string{"gemini"}, false},
		{"search", ModeSearch, true, nil, []string{"serpapi"}, false},
		{"fallback", ModeFallback, true, client, []string{"serpapi", "gemini"}, false},
		{"extract", ModeExtract, true, client, []string{"serpapi+gemini"}, false},
		{"search without key", ModeSearch, false, nil, nil, true},
		{"generative without llm", ModeGenerative, false, nil, nil, true},
		{"unknown", "weird", false, client, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			if tt.search {
				opts = withKey
			}
			opts.Mode = tt.mode
			chain, err := BuildChain(opts, tt.client, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !reflect.DeepEqual(chain.Names(), tt.want) {
				t.Fatalf("names = %v, want %v", chain.Names(), tt.want)
			}
		})
	}
}
