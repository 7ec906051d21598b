package attendance

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/formationpro/fichepresence/core"
)

// PageSize is the number of stored sheets per registry page.
const PageSize = 10

var (
	msgDeleteSucceeded = "Document supprimé avec succès."
	msgDeleteFailed    = "Erreur lors de la suppression du document."

	maxConcurrentDeletes = 4
)

// Document is a stored sheet as listed in the registry.
type Document struct {
	ID          int       `json:"id"`
	SessionID   string    `json:"session_id"`
	Path        string    `json:"path"`
	Title       string    `json:"title"`
	Extension   string    `json:"extension"`
	Description string    `json:"description"`
	GeneratedAt time.Time `json:"generated_at"`
	DisplayDate string    `json:"display_date"`
}

// NewDocument derives the registry fields of a stored sheet.
// A malformed generation date falls back to FallbackGeneratedAt.
func NewDocument(rec StoredSheet) Document {
	p := strings.ReplaceAll(strings.TrimSpace(rec.Path), "\\", "/")
	title := path.Base(p)
	if title == "." || title == "/" {
		title = ""
	}
	generatedAt, _ := ParseGeneratedAt(rec.GeneratedAt)
	return Document{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Path:        p,
		Title:       title,
		Extension:   strings.ToLower(strings.TrimPrefix(path.Ext(title), ".")),
		Description: rec.SessionTitle,
		GeneratedAt: generatedAt,
		DisplayDate: FormatDisplayDate(generatedAt),
	}
}

// URL is the direct link to the stored file.
func (d Document) URL(baseURL string) string {
	if strings.HasPrefix(d.Path, "http://") || strings.HasPrefix(d.Path, "https://") {
		return d.Path
	}
	segments := strings.Split(strings.TrimPrefix(d.Path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.Join(segments, "/")
}

func (d Document) matches(term string) bool {
	return strings.Contains(strings.ToLower(d.Title), term) ||
		strings.Contains(strings.ToLower(d.Description), term)
}

// Page is one page of the registry's visible documents.
type Page struct {
	Items      []Document `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int        `json:"total"`
	Search     string     `json:"search"`
}

// Registry lists the sheets stored remotely, with search, pagination and deletion.
//
// Every fetch is numbered: a fetch that completes after a newer one was applied is dropped,
// and documents deleted while a fetch was in flight are never put back by it.
type Registry struct {
	remote RemoteStore
	logger core.Logger

	mu       sync.Mutex
	docs     []Document
	visible  []Document
	search   string
	page     int
	loaded   bool
	fetchSeq uint64
	applied  uint64
	delSeq   uint64
	deleted  map[int]uint64 // document ID -> delSeq at deletion
}

func NewRegistry(remote RemoteStore, logger core.Logger) *Registry {
	return &Registry{
		remote:  remote,
		logger:  logger,
		page:    1,
		deleted: make(map[int]uint64),
	}
}

// Loaded reports whether a fetch has been applied yet.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// Refresh replaces the documents with the remote list.
// On failure the error is logged and the current list is kept.
func (r *Registry) Refresh(ctx context.Context) error {
	r.mu.Lock()
	r.fetchSeq++
	seq, delSeq := r.fetchSeq, r.delSeq
	r.mu.Unlock()

	records, err := r.remote.ListSheets(ctx)
	if err != nil {
		r.logger.Error(fmt.Sprintf("fetching stored sheets: %v", err), errors.Wrap(err, "fetching stored sheets"))
		return errors.Wrap(err, "fetching stored sheets")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if seq < r.applied {
		return nil // a newer fetch won
	}
	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		if at, ok := r.deleted[rec.ID]; ok && at > delSeq {
			continue
		}
		docs = append(docs, NewDocument(rec))
	}
	r.docs = docs
	r.applied = seq
	r.loaded = true
	r.filter()
	r.clampPage()
	return nil
}

// Documents returns a copy of every fetched document.
func (r *Registry) Documents() []Document {
	r.mu.Lock()
	defer r.mu.Unlock()
	docs := make([]Document, len(r.docs))
	copy(docs, r.docs)
	return docs
}

// Search filters the visible documents on their title or description, case-insensitively.
// Changing the search term goes back to the first page. Nothing is re-fetched.
func (r *Registry) Search(term string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	term = core.CleanString(term)
	if term != r.search {
		r.search = term
		r.page = 1
	}
	r.filter()
}

// GoTo moves to the 1-based page p. Pages out of range are a no-op and return false.
func (r *Registry) GoTo(p int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p < 1 || p > r.totalPages() {
		return false
	}
	r.page = p
	return true
}

func (r *Registry) Next() bool {
	r.mu.Lock()
	p := r.page + 1
	r.mu.Unlock()
	return r.GoTo(p)
}

func (r *Registry) Prev() bool {
	r.mu.Lock()
	p := r.page - 1
	r.mu.Unlock()
	return r.GoTo(p)
}

// Current returns the visible page.
func (r *Registry) Current() Page {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := (r.page - 1) * PageSize
	end := start + PageSize
	if end > len(r.visible) {
		end = len(r.visible)
	}
	items := make([]Document, 0, end-start)
	if start < end {
		items = append(items, r.visible[start:end]...)
	}
	return Page{
		Items:      items,
		Page:       r.page,
		TotalPages: r.totalPages(),
		Total:      len(r.visible),
		Search:     r.search,
	}
}

// Delete removes a stored sheet remotely, then locally.
// On failure the list is left untouched and an error is notified.
func (r *Registry) Delete(ctx context.Context, id int, notifier core.Notifier) error {
	if err := r.remote.DeleteSheet(ctx, id); err != nil {
		r.logger.Error(
			fmt.Sprintf("deleting stored sheet %d: %v", id, err),
			errors.Wrap(err, "deleting stored sheet"),
			core.Fields{"id": id},
		)
		notify(notifier, core.NotifyError, msgDeleteFailed)
		return errors.Wrap(err, "deleting stored sheet")
	}

	r.mu.Lock()
	r.delSeq++
	r.deleted[id] = r.delSeq
	docs := r.docs[:0:0]
	for _, d := range r.docs {
		if d.ID != id {
			docs = append(docs, d)
		}
	}
	r.docs = docs
	r.filter()
	r.clampPage()
	r.mu.Unlock()

	notify(notifier, core.NotifySuccess, msgDeleteSucceeded)
	return nil
}

// DeleteMany deletes several stored sheets concurrently; it returns the first error met.
func (r *Registry) DeleteMany(ctx context.Context, ids []int, notifier core.Notifier) error {
	var g errgroup.Group
	g.SetLimit(maxConcurrentDeletes)
	for _, id := range ids {
		id := id
		g.Go(func() error { return r.Delete(ctx, id, notifier) })
	}
	return g.Wait()
}

// filter recomputes the visible documents. r.mu must be held.
func (r *Registry) filter() {
	if r.search == "" {
		r.visible = r.docs
		return
	}
	term := strings.ToLower(r.search)
	visible := make([]Document, 0, len(r.docs))
	for _, d := range r.docs {
		if d.matches(term) {
			visible = append(visible, d)
		}
	}
	r.visible = visible
}

func (r *Registry) totalPages() int {
	n := (len(r.visible) + PageSize - 1) / PageSize
	if n < 1 {
		return 1
	}
	return n
}

func (r *Registry) clampPage() {
	if tp := r.totalPages(); r.page > tp {
		r.page = tp
	}
}
