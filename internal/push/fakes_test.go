package push

import (
	"context"
	"sort"
	"sync"

	"portfolio-site-go/internal/models"
	"portfolio-site-go/internal/store"
)

// memStore is an in-memory store.Store with failure injection.
type memStore struct {
	mu      sync.Mutex
	records map[string]models.PushSubscription
	users   map[string]map[string]bool
	writes  int

	upsertErr error
	listErr   error
	deleteErr map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		records:   make(map[string]models.PushSubscription),
		users:     make(map[string]map[string]bool),
		deleteErr: make(map[string]error),
	}
}

func (m *memStore) UpsertToken(_ context.Context, uid string, sub models.PushSubscription) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return false, m.upsertErr
	}
	m.writes++

	existing, ok := m.records[sub.Token]
	if ok {
		sub.Topics = models.MergeTopics(existing.Topics, sub.Topics)
		sub.CreatedAt = existing.CreatedAt
	} else {
		sub.Topics = models.MergeTopics(nil, sub.Topics)
	}
	m.records[sub.Token] = sub
	if uid != "" {
		if m.users[uid] == nil {
			m.users[uid] = make(map[string]bool)
		}
		m.users[uid][sub.Token] = true
	}
	return !ok, nil
}

func (m *memStore) GetToken(_ context.Context, token string) (models.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.records[token]
	if !ok {
		return models.PushSubscription{}, store.ErrNotFound
	}
	return sub, nil
}

func (m *memStore) ListUserTokens(_ context.Context, uid string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	var tokens []string
	for t := range m.users[uid] {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return tokens, nil
}

func (m *memStore) DeleteUserToken(_ context.Context, uid, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.deleteErr[token]; err != nil {
		return err
	}
	delete(m.users[uid], token)
	delete(m.records, token)
	return nil
}

func (m *memStore) DeleteToken(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tokens := range m.users {
		delete(tokens, token)
	}
	delete(m.records, token)
	return nil
}

func (m *memStore) TokensByTopics(_ context.Context, topics ...string) ([]models.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.PushSubscription
	for _, sub := range m.records {
		all := true
		for _, t := range topics {
			if !sub.HasTopic(t) {
				all = false
				break
			}
		}
		if all {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Token < out[j].Token })
	return out, nil
}

func (m *memStore) CreateMeta(_ context.Context, meta models.MetaPost) (models.MetaPost, bool, error) {
	return meta, true, nil
}

func (m *memStore) GetMeta(context.Context, string, string) (models.MetaPost, error) {
	return models.MetaPost{}, store.ErrNotFound
}

func (m *memStore) Close() error { return nil }

// stubBrowser hands out a fixed token.
type stubBrowser struct {
	noWorker  bool
	denied    bool
	token     string
	deleted   bool
	deleteErr error
}

func (b *stubBrowser) GetRegistration(_ context.Context, scriptURL string) (*Registration, error) {
	if b.noWorker {
		return nil, ErrNoServiceWorker
	}
	return &Registration{ScriptURL: scriptURL}, nil
}

func (b *stubBrowser) GetToken(context.Context, *Registration) (models.PushToken, error) {
	if b.denied {
		return models.PushToken{}, ErrPermissionDenied
	}
	return models.PushToken{Value: b.token, Endpoint: "https://push.example.com/" + b.token}, nil
}

func (b *stubBrowser) DeleteToken(context.Context) error {
	b.deleted = true
	return b.deleteErr
}

type memFlag struct {
	value, known bool
	writes       int
}

func (f *memFlag) Subscribed() (bool, bool) { return f.value, f.known }

func (f *memFlag) SetSubscribed(v bool) error {
	f.value, f.known = v, true
	f.writes++
	return nil
}

type recordingSurface struct {
	mu      sync.Mutex
	last    *models.Notice
	uid     string
	showCnt int
}

func (s *recordingSurface) Show(_ context.Context, uid string, n *models.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last, s.uid = n, uid
	s.showCnt++
}

type event struct {
	name   string
	params map[string]any
}

type recordingAnalytics struct {
	events []event
}

func (a *recordingAnalytics) LogEvent(_ context.Context, name string, params map[string]any) {
	a.events = append(a.events, event{name: name, params: params})
}

type fakeMessaging struct {
	mu   sync.Mutex
	sent []string
	errs map[string]error
}

func (f *fakeMessaging) PublicKey() string { return "public" }

func (f *fakeMessaging) Send(_ context.Context, sub models.PushSubscription, _ []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errs[sub.Token]; err != nil {
		return err
	}
	f.sent = append(f.sent, sub.Token)
	return nil
}
