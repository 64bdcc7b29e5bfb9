package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"instagram-backend/internal/repository"
)

// fakeAuth is an in-memory Auth with injectable errors
type fakeAuth struct {
	mu        sync.Mutex
	accountID string
	uid       string
	createErr error
	signInErr error
	creates   int
	signIns   int
	signOuts  int
}

func (a *fakeAuth) CreateAccount(ctx context.Context, email, password string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.creates++
	if a.createErr != nil {
		return "", a.createErr
	}
	a.uid = a.accountID
	return a.uid, nil
}

func (a *fakeAuth) SignIn(ctx context.Context, email, password string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signIns++
	if a.signInErr != nil {
		return "", a.signInErr
	}
	a.uid = a.accountID
	return a.uid, nil
}

func (a *fakeAuth) SignOut() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.signOuts++
	a.uid = ""
}

func (a *fakeAuth) CurrentUserID() (string, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.uid, a.uid != ""
}

func (a *fakeAuth) dropUser() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.uid = ""
}

// fakeDocs is a map-backed DocumentStore
type fakeDocs struct {
	mu        sync.Mutex
	data      map[string]map[string]json.RawMessage
	queryErr  error
	getErr    error
	setErr    error
	updateErr error

	queries    int
	gets       int
	sets       map[string]int
	updates    int
	lastUpdate map[string]any
	onSet      func(collection, id string)
}

func newFakeDocs() *fakeDocs {
	return &fakeDocs{
		data: make(map[string]map[string]json.RawMessage),
		sets: make(map[string]int),
	}
}

func (f *fakeDocs) put(collection, id string, record any) {
	raw, err := json.Marshal(record)
	if err != nil {
		panic(err)
	}
	if f.data[collection] == nil {
		f.data[collection] = make(map[string]json.RawMessage)
	}
	f.data[collection][id] = raw
}

func (f *fakeDocs) fields(collection, id string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.data[collection][id]
	if !ok {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		panic(err)
	}
	return m
}

func (f *fakeDocs) QueryByField(ctx context.Context, collection, field, value string) ([]repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries++
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	var docs []repository.Document
	for id, raw := range f.data[collection] {
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, err
		}
		if v, ok := m[field]; ok && fmt.Sprint(v) == value {
			docs = append(docs, repository.Document{ID: id, Data: raw})
		}
	}
	return docs, nil
}

func (f *fakeDocs) Get(ctx context.Context, collection, id string) (*repository.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	raw, ok := f.data[collection][id]
	if !ok {
		return nil, nil
	}
	return &repository.Document{ID: id, Data: raw}, nil
}

func (f *fakeDocs) Set(ctx context.Context, collection, id string, record any) error {
	f.mu.Lock()
	f.sets[collection]++
	hook := f.onSet
	if f.setErr != nil {
		err := f.setErr
		f.mu.Unlock()
		return err
	}
	f.put(collection, id, record)
	f.mu.Unlock()

	if hook != nil {
		hook(collection, id)
	}
	return nil
}

func (f *fakeDocs) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	f.lastUpdate = fields
	if f.updateErr != nil {
		return f.updateErr
	}
	raw, ok := f.data[collection][id]
	if !ok {
		return repository.ErrDocumentNotFound
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	for k, v := range fields {
		m[k] = v
	}
	f.put(collection, id, m)
	return nil
}

// fakeBlobs stores uploads in memory and serves them from a fake host
type fakeBlobs struct {
	mu        sync.Mutex
	objects   map[string][]byte
	uploadErr error
	urlErr    error
}

func newFakeBlobs() *fakeBlobs {
	return &fakeBlobs{objects: make(map[string][]byte)}
}

func (b *fakeBlobs) Upload(ctx context.Context, key string, body io.Reader, contentType string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.uploadErr != nil {
		return b.uploadErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	b.objects[key] = data
	return nil
}

func (b *fakeBlobs) DownloadURL(ctx context.Context, key string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.urlErr != nil {
		return "", b.urlErr
	}
	if _, ok := b.objects[key]; !ok {
		return "", errors.New("object not found")
	}
	return "https://blobs.test/" + key, nil
}
