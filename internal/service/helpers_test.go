package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"PulseLoop/internal/pkg"
)

type pushed struct {
	userID uint64
	event  string
}

type recordPusher struct {
	mu     sync.Mutex
	pushes []pushed
}

func (p *recordPusher) Push(_ context.Context, userID uint64, event string, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pushes = append(p.pushes, pushed{userID: userID, event: event})
	return nil
}

func (p *recordPusher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pushes)
}

// memStore 内存文件存储，记录存取以便断言补偿删除
type memStore struct {
	mu      sync.Mutex
	files   map[string]string
	deleted []string
	fail    bool
}

func newMemStore() *memStore { return &memStore{files: map[string]string{}} }

func (m *memStore) Store(_ context.Context, r io.Reader, filename, folder string) (string, error) {
	if m.fail {
		return "", errors.New("store failed")
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "/uploads/" + folder + "/" + filename
	m.files[url] = string(b)
	return url, nil
}

func (m *memStore) Delete(_ context.Context, url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, url)
	m.deleted = append(m.deleted, url)
	return nil
}

type fakeMailer struct {
	enabled bool
	sent    []string
	err     error
}

func (f *fakeMailer) Enabled() bool { return f.enabled }

func (f *fakeMailer) Send(to, _, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, to)
	return nil
}

func kindOf(err error) pkg.ErrorKind { return pkg.KindOf(err) }
