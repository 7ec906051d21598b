package attendance

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/formationpro/fichepresence/core"
)

var errRemote = errors.New("remote unavailable")

type testLogger struct {
	mu     sync.Mutex
	errors []string
}

func (l *testLogger) Debug(string, ...interface{}) {}
func (l *testLogger) Info(string, ...interface{})  {}
func (l *testLogger) Warn(string, ...interface{})  {}
func (l *testLogger) Fatal(string, ...interface{}) {}
func (l *testLogger) Error(msg string, _ ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, msg)
}

type notifications struct {
	mu   sync.Mutex
	list []core.Notification
}

func (n *notifications) Notify(notif core.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notif)
}

func (n *notifications) count(level core.NotificationLevel) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	var cnt int
	for _, notif := range n.list {
		if notif.Level == level {
			cnt++
		}
	}
	return cnt
}

type fakeRemote struct {
	mu        sync.Mutex
	calls     []string
	record    SessionRecord
	fetchErr  error
	uploadErr []error // consumed in order; nil once exhausted
	uploads   []Upload
	sheets    []StoredSheet
	listErr   error
	listHook  func() // runs before ListSheets returns
	deleteErr error
	deleted   []int
}

func (f *fakeRemote) call(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
}

func (f *fakeRemote) FetchSessionSheet(_ context.Context, sessionID string) (SessionRecord, error) {
	f.call("fetch:" + sessionID)
	if f.fetchErr != nil {
		return SessionRecord{}, f.fetchErr
	}
	return f.record, nil
}

func (f *fakeRemote) UploadSheet(_ context.Context, up Upload) error {
	f.call("upload")
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, up)
	if len(f.uploadErr) > 0 {
		err := f.uploadErr[0]
		f.uploadErr = f.uploadErr[1:]
		return err
	}
	return nil
}

func (f *fakeRemote) ListSheets(context.Context) ([]StoredSheet, error) {
	f.call("list")
	if f.listHook != nil {
		f.listHook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	sheets := make([]StoredSheet, len(f.sheets))
	copy(sheets, f.sheets)
	return sheets, nil
}

func (f *fakeRemote) DeleteSheet(_ context.Context, id int) error {
	f.call("delete")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.sheets[:0:0]
	for _, s := range f.sheets {
		if s.ID != id {
			kept = append(kept, s)
		}
	}
	f.sheets = kept
	return nil
}

type fakeRenderer struct {
	remote *fakeRemote
	err    error
	sheets []Sheet
}

func (r *fakeRenderer) Render(sheet Sheet, _ time.Time) ([]byte, error) {
	if r.remote != nil {
		r.remote.call("render")
	}
	r.sheets = append(r.sheets, sheet)
	if r.err != nil {
		return nil, r.err
	}
	return []byte("%PDF-1.3 fake"), nil
}

type fakeDrafts struct {
	mu     sync.Mutex
	drafts map[string]Draft
}

func newFakeDrafts() *fakeDrafts {
	return &fakeDrafts{drafts: make(map[string]Draft)}
}

func (f *fakeDrafts) CreateDraft(_ context.Context, d Draft) (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[d.ID] = d
	return d, nil
}

func (f *fakeDrafts) GetDraft(_ context.Context, id string) (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drafts[id]
	if !ok {
		return Draft{}, ErrDraftNotFound
	}
	return d, nil
}

func (f *fakeDrafts) UpdateDraft(_ context.Context, d Draft) (Draft, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.drafts[d.ID]; !ok {
		return Draft{}, ErrDraftNotFound
	}
	f.drafts[d.ID] = d
	return d, nil
}

func (f *fakeDrafts) DeleteDraft(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.drafts, id)
	return nil
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []*core.EmailMessage
}

func (m *fakeMailer) SendMessages(messages ...*core.EmailMessage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, messages...)
}
