package configsync

import (
	"context"
	"fmt"
	"sync"

	"github.com/flemzord/sclaw-console/internal/confdoc"
)

// fakeRemote is an in-memory gateway with CAS semantics.
type fakeRemote struct {
	mu         sync.Mutex
	doc        confdoc.Document
	version    int
	getCalls   int
	setCalls   int
	applyCalls int
	patchCalls int
	lastPatch  confdoc.Document
	lastApply  ApplyOptions
	writeErr   error
	getErr     error

	// When block is set, writes signal entered and wait for block.
	entered chan struct{}
	block   chan struct{}

	// When getBlock is set, reads signal getEntered and wait for getBlock
	// or their context.
	getEntered chan struct{}
	getBlock   chan struct{}
}

func newFakeRemote(doc confdoc.Document) *fakeRemote {
	return &fakeRemote{doc: confdoc.Clone(doc), version: 1}
}

func (f *fakeRemote) hashLocked() string { return fmt.Sprintf("hash-%d", f.version) }

func (f *fakeRemote) wait() {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
}

func (f *fakeRemote) document() confdoc.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return confdoc.Clone(f.doc)
}

func (f *fakeRemote) GetConfig(ctx context.Context) (RemoteConfig, error) {
	if f.getEntered != nil {
		f.getEntered <- struct{}{}
	}
	if f.getBlock != nil {
		select {
		case <-f.getBlock:
		case <-ctx.Done():
			return RemoteConfig{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	if f.getErr != nil {
		return RemoteConfig{}, f.getErr
	}
	raw, err := confdoc.Marshal(f.doc)
	if err != nil {
		return RemoteConfig{}, err
	}
	return RemoteConfig{Path: "/etc/sclaw/config.json", Exists: true, Raw: string(raw), Hash: f.hashLocked(), Valid: true}, nil
}

func (f *fakeRemote) write(raw, baseHash string) (string, error) {
	if f.writeErr != nil {
		return "", f.writeErr
	}
	if baseHash != f.hashLocked() {
		return "", ErrStaleHash
	}
	doc, err := confdoc.Parse([]byte(raw))
	if err != nil {
		return "", err
	}
	f.doc = doc
	f.version++
	return f.hashLocked(), nil
}

func (f *fakeRemote) SetConfig(_ context.Context, raw, baseHash string) (string, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls++
	return f.write(raw, baseHash)
}

func (f *fakeRemote) ApplyConfig(_ context.Context, raw, baseHash string, opts ApplyOptions) error {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applyCalls++
	f.lastApply = opts
	_, err := f.write(raw, baseHash)
	return err
}

func (f *fakeRemote) PatchConfig(_ context.Context, raw, baseHash string) (string, error) {
	f.wait()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patchCalls++
	if f.writeErr != nil {
		return "", f.writeErr
	}
	if baseHash != f.hashLocked() {
		return "", ErrStaleHash
	}
	patch, err := confdoc.Parse([]byte(raw))
	if err != nil {
		return "", err
	}
	f.lastPatch = patch
	f.doc = confdoc.AsMap(confdoc.ApplyMergePatch(f.doc, patch))
	f.version++
	return f.hashLocked(), nil
}
