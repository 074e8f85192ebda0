package sources

import (
	"fmt"

	"github.com/RobinCoderZhao/solana-news/pkg/llm"
)

// Mode selects which providers feed the cache and in what order.
type Mode string

const (
	// ModeGenerative asks the LLM for news directly.
	ModeGenerative Mode = "generative"
	// ModeSearch serves SerpAPI results for each query.
	ModeSearch Mode = "search"
	// ModeFallback tries search first and the LLM second.
	ModeFallback Mode = "fallback"
	// ModeExtract searches each query and has the LLM extract opportunities.
	ModeExtract Mode = "extract"
)

// DefaultQueries are the opportunity searches run in search, fallback and extract modes.
var DefaultQueries = []string{
	"new solana token launch today",
	"solana airdrop confirmed today",
	"binance listing solana token",
}

// Options configures the provider chain.
type Options struct {
	Mode      Mode          `yaml:"mode" env:"NEWS_MODE"`
	Queries   []string      `yaml:"queries" env:"NEWS_QUERIES"`
	NewsCount int           `yaml:"news_count" env:"NEWS_COUNT"`
	Search    SearchOptions `yaml:"search"`
}

// DefaultOptions returns the generative setup of the main server.
func DefaultOptions() Options {
	return Options{
		Mode:      ModeGenerative,
		Queries:   append([]string(nil), DefaultQueries...),
		NewsCount: 3,
		Search:    DefaultSearchOptions(),
	}
}

// BuildChain assembles the chain for opts.Mode. The LLM client may be nil
// in search mode; every other mode needs it.
func BuildChain(opts Options, client llm.Client, observer Observer) (*Chain, error) {
	queries := opts.Queries
	if len(queries) == 0 {
		queries = DefaultQueries
	}

	needSearch := opts.Mode == ModeSearch || opts.Mode == ModeFallback || opts.Mode == ModeExtract
	needLLM := opts.Mode != ModeSearch

	var serp *SerpClient
	if needSearch {
		var err error
		if serp, err = NewSerpClient(opts.Search); err != nil {
			return nil, fmt.Errorf("%s mode: %w", opts.Mode, err)
		}
	}
	if needLLM && client == nil {
		return nil, fmt.Errorf("%s mode: LLM client is required", opts.Mode)
	}

	chain := NewChain()
	chain.SetObserver(observer)
	switch opts.Mode {
	case ModeGenerative, "":
		chain.Register(NewGenerativeSource(client, opts.NewsCount, WithObserver(observer)))
	case ModeSearch:
		chain.Register(NewMultiQuery("serpapi", queries, NewSearchSource(serp)))
	case ModeFallback:
		chain.Register(NewMultiQuery("serpapi", queries, NewSearchSource(serp)))
		chain.Register(NewGenerativeSource(client, opts.NewsCount, WithObserver(observer)))
	case ModeExtract:
		name := "serpapi+" + string(client.Provider())
		chain.Register(NewMultiQuery(name, queries, NewExtractSource(serp, client, WithObserver(observer))))
	default:
		return nil, fmt.Errorf("unknown news mode: %q", opts.Mode)
	}
	return chain, nil
}
