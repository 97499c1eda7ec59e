package chat

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fentz26/sitechat/internal/api"
	"github.com/fentz26/sitechat/internal/notify"
)

type fakeGateway struct {
	crawlFn     func(target string) (*api.CrawlResponse, error)
	queryFn     func(target, query string) (*api.QueryResponse, error)
	knowledgeFn func() (*api.KnowledgeResponse, error)

	crawlCalls atomic.Int32
	queryCalls atomic.Int32
}

func (f *fakeGateway) Crawl(_ context.Context, target string) (*api.CrawlResponse, error) {
	f.crawlCalls.Add(1)
	return f.crawlFn(target)
}

func (f *fakeGateway) Query(_ context.Context, target, query string) (*api.QueryResponse, error) {
	f.queryCalls.Add(1)
	return f.queryFn(target, query)
}

func (f *fakeGateway) Knowledge(_ context.Context) (*api.KnowledgeResponse, error) {
	return f.knowledgeFn()
}

type published struct {
	kind    notify.Kind
	title   string
	message string
}

type recordingNotifier struct {
	mu    sync.Mutex
	items []published
}

func (r *recordingNotifier) Publish(kind notify.Kind, title, message string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, published{kind, title, message})
	return ""
}

func (r *recordingNotifier) all() []published {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]published, len(r.items))
	copy(out, r.items)
	return out
}

func newOrchestrator(gw *fakeGateway) (*Orchestrator, *recordingNotifier) {
	n := &recordingNotifier{}
	return New(gw, n, zerolog.Nop()), n
}

func TestCrawlEmptyURLWarnsWithoutNetworkCall(t *testing.T) {
	gw := &fakeGateway{}
	o, n := newOrchestrator(gw)

	o.Crawl(context.Background(), "  ")

	require.Len(t, n.all(), 1)
	assert.Equal(t, notify.KindWarning, n.all()[0].kind)
	assert.Zero(t, gw.crawlCalls.Load())
}

func TestCrawlSuccessSetsTargetAndNotifies(t *testing.T) {
	gw := &fakeGateway{
		crawlFn: func(target string) (*api.CrawlResponse, error) {
			return &api.CrawlResponse{Message: "Website crawled successfully", URL: target}, nil
		},
	}
	o, n := newOrchestrator(gw)

	o.Crawl(context.Background(), "https://x.com")

	assert.Equal(t, "https://x.com", o.TargetURL())
	assert.False(t, o.Crawling())

	items := n.all()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindSuccess, items[0].kind)
	assert.Equal(t, "Website crawled successfully", items[0].message)
}

func TestCrawlFailureNotifiesError(t *testing.T) {
	gw := &fakeGateway{
		crawlFn: func(string) (*api.CrawlResponse, error) {
			return nil, &api.Error{Status: 400, Message: "URL is not reachable"}
		},
	}
	o, n := newOrchestrator(gw)

	o.Crawl(context.Background(), "https://x.com")

	assert.False(t, o.Crawling(), "busy flag must clear on failure")
	assert.Empty(t, o.TargetURL(), "failed crawl must not set the target")

	items := n.all()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindError, items[0].kind)
	assert.Equal(t, "URL is not reachable", items[0].message)
}

func TestAskWithoutTargetWarnsAndAppendsNothing(t *testing.T) {
	gw := &fakeGateway{}
	o, n := newOrchestrator(gw)

	id := o.Ask(context.Background(), "What is x?")

	assert.Empty(t, id)
	assert.Empty(t, o.Entries())
	assert.Zero(t, gw.queryCalls.Load())

	items := n.all()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindWarning, items[0].kind)
}

func TestAskAppendsPairAndResolvesAgentEntry(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(target, query string) (*api.QueryResponse, error) {
			return &api.QueryResponse{Response: "42", URL: target}, nil
		},
	}
	o, n := newOrchestrator(gw)
	o.SetTargetURL("https://x.com")

	agentID := o.Ask(context.Background(), "What is x?")
	require.NotEmpty(t, agentID)

	entries := o.Entries()
	require.Len(t, entries, 2)

	assert.Equal(t, RoleUser, entries[0].Role)
	assert.Equal(t, "What is x?", entries[0].Content)
	assert.Equal(t, StateResolved, entries[0].State)

	assert.Equal(t, agentID, entries[1].ID)
	assert.Equal(t, RoleAgent, entries[1].Role)
	assert.Equal(t, StateResolved, entries[1].State)
	assert.Equal(t, "42", entries[1].Content)

	assert.False(t, o.Asking())
	assert.Empty(t, n.all(), "success reports through the entry, not a notification")
}

func TestAskFailureFailsEntryAndNotifies(t *testing.T) {
	gw := &fakeGateway{
		queryFn: func(string, string) (*api.QueryResponse, error) {
			return nil, &api.Error{Message: "Failed to query content"}
		},
	}
	o, n := newOrchestrator(gw)
	o.SetTargetURL("https://x.com")

	agentID := o.Ask(context.Background(), "q")

	entries := o.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, agentID, entries[1].ID)
	assert.Equal(t, StateFailed, entries[1].State)
	assert.Equal(t, "Error: Failed to query content", entries[1].Content)

	items := n.all()
	require.Len(t, items, 1)
	assert.Equal(t, notify.KindError, items[0].kind)
}

func TestOverlappingAsksResolveIndependently(t *testing.T) {
	release := make(chan struct{})
	gw := &fakeGateway{
		queryFn: func(_, query string) (*api.QueryResponse, error) {
			if query == "q1" {
				<-release
				return &api.QueryResponse{Response: "a1"}, nil
			}
			return &api.QueryResponse{Response: "a2"}, nil
		},
	}
	o, _ := newOrchestrator(gw)
	o.SetTargetURL("https://x.com")

	// First question blocks inside the gateway.
	done := make(chan struct{})
	go func() {
		defer close(done)
		o.Ask(context.Background(), "q1")
	}()

	require.Eventually(t, func() bool { return len(o.Entries()) == 2 }, time.Second, time.Millisecond)

	// Second question is asked before the first resolves, and its answer
	// arrives first.
	o.Ask(context.Background(), "q2")

	entries := o.Entries()
	require.Len(t, entries, 4)
	assert.Equal(t, StatePending, entries[1].State, "first answer still outstanding")
	assert.Equal(t, StateResolved, entries[3].State)
	assert.Equal(t, "a2", entries[3].Content)
	assert.True(t, o.Asking(), "first ask still in flight")

	// Now let the first answer land; it must resolve its own entry and leave
	// the second untouched.
	close(release)
	<-done

	entries = o.Entries()
	assert.Equal(t, StateResolved, entries[1].State)
	assert.Equal(t, "a1", entries[1].Content)
	assert.Equal(t, "a2", entries[3].Content)
	assert.False(t, o.Asking())

	// Insertion order reflects submission order regardless of resolution order.
	assert.Equal(t, "q1", entries[0].Content)
	assert.Equal(t, "q2", entries[2].Content)
}

func TestLoadKnowledgeAdoptsURLWhenUnset(t *testing.T) {
	gw := &fakeGateway{
		knowledgeFn: func() (*api.KnowledgeResponse, error) {
			resp := &api.KnowledgeResponse{}
			resp.KnowledgeBase.URL = "https://known.com"
			return resp, nil
		},
	}
	o, _ := newOrchestrator(gw)

	url, err := o.LoadKnowledge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://known.com", url)
	assert.Equal(t, "https://known.com", o.TargetURL())

	// An explicitly chosen target is not overwritten.
	o.SetTargetURL("https://mine.com")
	_, err = o.LoadKnowledge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://mine.com", o.TargetURL())
}
