// Package chat owns the conversation: the ordered list of question/answer
// entries, the crawl target, and the crawl/ask workflow.
package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fentz26/sitechat/internal/api"
	"github.com/fentz26/sitechat/internal/notify"
)

// Role says who authored an entry.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// EntryState tracks an entry's lifecycle. User entries are born resolved;
// an agent entry is born pending and transitions exactly once.
type EntryState string

const (
	StatePending  EntryState = "pending"
	StateResolved EntryState = "resolved"
	StateFailed   EntryState = "failed"
)

// Entry is one message in the conversation.
type Entry struct {
	ID        string
	Role      Role
	Content   string
	CreatedAt time.Time
	State     EntryState
}

// Gateway is the slice of the request gateway the orchestrator needs.
type Gateway interface {
	Crawl(ctx context.Context, target string) (*api.CrawlResponse, error)
	Query(ctx context.Context, target, query string) (*api.QueryResponse, error)
	Knowledge(ctx context.Context) (*api.KnowledgeResponse, error)
}

// Notifier receives outcome reports. *notify.Queue satisfies it.
type Notifier interface {
	Publish(kind notify.Kind, title, message string) string
}

// Orchestrator manages the conversation. Entries are kept in insertion order
// and additionally indexed by id: an in-flight answer is applied to its own
// entry no matter how many questions were asked after it.
type Orchestrator struct {
	gw       Gateway
	notifier Notifier
	log      zerolog.Logger

	mu        sync.Mutex
	entries   []*Entry
	byID      map[string]*Entry
	targetURL string
	crawls    int
	asks      int
	changed   chan struct{}
}

// New creates an orchestrator with an empty conversation.
func New(gw Gateway, notifier Notifier, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		gw:       gw,
		notifier: notifier,
		log:      log,
		byID:     make(map[string]*Entry),
		changed:  make(chan struct{}, 1),
	}
}

// SetTargetURL updates the website questions are asked about.
func (o *Orchestrator) SetTargetURL(url string) {
	o.mu.Lock()
	o.targetURL = strings.TrimSpace(url)
	o.mu.Unlock()
	o.signal()
}

// TargetURL returns the current crawl target.
func (o *Orchestrator) TargetURL() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.targetURL
}

// Entries returns a snapshot of the conversation in insertion order.
func (o *Orchestrator) Entries() []Entry {
	o.mu.Lock()
	defer o.mu.Unlock()

	out := make([]Entry, len(o.entries))
	for i, e := range o.entries {
		out[i] = *e
	}
	return out
}

// Crawling reports whether a crawl is in flight.
func (o *Orchestrator) Crawling() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.crawls > 0
}

// Asking reports whether a question is in flight. This gates only the submit
// affordance; overlapping asks are safe.
func (o *Orchestrator) Asking() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.asks > 0
}

// Changed is signalled whenever the conversation or the busy flags change.
func (o *Orchestrator) Changed() <-chan struct{} {
	return o.changed
}

// Crawl asks the service to index url and reports the outcome as a
// notification. An empty url produces a warning and no network call. On
// success the url becomes the current target.
func (o *Orchestrator) Crawl(ctx context.Context, url string) {
	url = strings.TrimSpace(url)
	if url == "" {
		o.notifier.Publish(notify.KindWarning, "", "Please enter a URL first")
		return
	}

	o.mu.Lock()
	o.crawls++
	o.mu.Unlock()
	o.signal()

	resp, err := o.gw.Crawl(ctx, url)

	o.mu.Lock()
	o.crawls--
	if err == nil {
		o.targetURL = url
	}
	o.mu.Unlock()
	o.signal()

	if err != nil {
		o.log.Warn().Str("url", url).Err(err).Msg("crawl failed")
		o.notifier.Publish(notify.KindError, "Crawl failed", err.Error())
		return
	}
	o.notifier.Publish(notify.KindSuccess, "", resp.Message)
}

// Ask appends a resolved user entry and a pending agent entry before the
// network call starts, so the question and a loading indicator are visible
// immediately. The agent entry is then resolved or failed by id, never by
// position: a later question's answer arriving first cannot touch it.
// It returns the agent entry's id, or "" when no call was made.
func (o *Orchestrator) Ask(ctx context.Context, question string) string {
	question = strings.TrimSpace(question)
	if question == "" {
		return ""
	}

	o.mu.Lock()
	target := o.targetURL
	if target == "" {
		o.mu.Unlock()
		o.notifier.Publish(notify.KindWarning, "", "Please enter a URL first")
		return ""
	}

	now := time.Now()
	user := &Entry{
		ID:        uuid.New().String(),
		Role:      RoleUser,
		Content:   question,
		CreatedAt: now,
		State:     StateResolved,
	}
	agent := &Entry{
		ID:        uuid.New().String(),
		Role:      RoleAgent,
		CreatedAt: now,
		State:     StatePending,
	}
	o.entries = append(o.entries, user, agent)
	o.byID[user.ID] = user
	o.byID[agent.ID] = agent
	o.asks++
	o.mu.Unlock()
	o.signal()

	resp, err := o.gw.Query(ctx, target, question)

	o.mu.Lock()
	o.asks--
	if e, ok := o.byID[agent.ID]; ok && e.State == StatePending {
		if err != nil {
			e.State = StateFailed
			e.Content = "Error: " + err.Error()
		} else {
			e.State = StateResolved
			e.Content = resp.Response
		}
	}
	o.mu.Unlock()
	o.signal()

	if err != nil {
		o.log.Warn().Str("entry", agent.ID).Err(err).Msg("query failed")
		o.notifier.Publish(notify.KindError, "", err.Error())
	}
	return agent.ID
}

// LoadKnowledge fetches the previously indexed website and, when the target
// is still unset, adopts it. Returns the indexed url, which may be empty.
func (o *Orchestrator) LoadKnowledge(ctx context.Context) (string, error) {
	resp, err := o.gw.Knowledge(ctx)
	if err != nil {
		return "", err
	}

	url := strings.TrimSpace(resp.KnowledgeBase.URL)
	o.mu.Lock()
	if o.targetURL == "" && url != "" {
		o.targetURL = url
	}
	o.mu.Unlock()
	o.signal()

	return url, nil
}

func (o *Orchestrator) signal() {
	select {
	case o.changed <- struct{}{}:
	default:
	}
}
