package libhook

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/pboyd/malloc"
)

// allocator hands out buffers that live as long as the hook that owns
// them. Buffers are only writable between BeginMutate and EndMutate.
type allocator interface {
	BeginMutate() error
	EndMutate() error
	Allocate(size int) ([]byte, error)
	Free(buf []byte)
	Close() error
}

// arena is an executable allocator backed by private mmap pages.
type arena struct {
	*malloc.Arena
	backend *trackedBackend
	mu      sync.Mutex
	mutable bool
}

func newArena(startSize int) (*arena, error) {
	be := newTrackedBackend(malloc.MmapBackend(malloc.MmapProt(mprotectExec)))

	a := &arena{backend: be}
	a.Arena = malloc.NewArena(uint64(startSize), malloc.Backend(be))
	if a.Arena == nil {
		// NewArena may have mapped pages before giving up.
		return nil, errors.Join(errors.New("unable to initialize arena"), be.release())
	}

	// New pages are writable until the first EndMutate.
	a.mutable = true
	return a, nil
}

func (a *arena) BeginMutate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Arena == nil {
		return ErrArenaClosed
	}
	if a.mutable {
		return nil
	}

	err := a.backend.Protect(mprotectRWX)
	if err == nil {
		a.mutable = true
	}
	return err
}

func (a *arena) EndMutate() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Arena == nil || !a.mutable {
		return nil
	}

	err := a.backend.Protect(mprotectRX)
	if err == nil {
		a.mutable = false
	}
	return err
}

func (a *arena) Allocate(size int) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Arena == nil {
		return nil, ErrArenaClosed
	}
	if !a.mutable {
		return nil, errors.New("Allocate called in immutable state")
	}

	buf, err := malloc.MallocSlice[byte](a.Arena, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAllocation, err)
	}
	return buf, nil
}

// Free returns buf to the arena. The arena must be mutable, otherwise
// writing the block header would fault, so buf is leaked instead.
func (a *arena) Free(buf []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Arena == nil || buf == nil || !a.mutable {
		return
	}

	malloc.FreeSlice(a.Arena, buf)
}

// Close unmaps every page the arena obtained. Buffers allocated from it
// must not be used afterwards.
func (a *arena) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.Arena == nil {
		return nil
	}

	a.Arena = nil
	a.mutable = false
	return a.backend.release()
}

// trackedBackend records every buffer the wrapped backend hands out, so
// they can all be released when the arena is closed. malloc itself only
// frees a buffer when it has been replaced by a larger one.
type trackedBackend struct {
	malloc.ArenaBackend

	mu   sync.Mutex
	bufs map[*byte][]byte
}

func newTrackedBackend(be malloc.ArenaBackend) *trackedBackend {
	return &trackedBackend{
		ArenaBackend: be,
		bufs:         map[*byte][]byte{},
	}
}

func (b *trackedBackend) Grow(buf []byte, size uintptr) ([]byte, error) {
	newBuf, err := b.ArenaBackend.Grow(buf, size)
	if err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.bufs[unsafe.SliceData(newBuf)] = newBuf
	return newBuf, nil
}

func (b *trackedBackend) Free(buf []byte) error {
	freeable, ok := b.ArenaBackend.(malloc.FreeableArenaBackend)
	if !ok {
		return nil
	}

	err := freeable.Free(buf)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.bufs, unsafe.SliceData(buf))
	return nil
}

func (b *trackedBackend) Protect(prot int) error {
	protected, ok := b.ArenaBackend.(malloc.ProtectedArenaBackend)
	if !ok {
		return nil
	}
	return protected.Protect(prot)
}

// release frees every buffer still held.
func (b *trackedBackend) release() error {
	b.mu.Lock()
	bufs := make([][]byte, 0, len(b.bufs))
	for _, buf := range b.bufs {
		bufs = append(bufs, buf)
	}
	b.mu.Unlock()

	var errs []error
	for _, buf := range bufs {
		if err := b.Free(buf); err != nil {
			errs = append(errs, fmt.Errorf("unable to free arena memory: %w", err))
		}
	}
	return errors.Join(errs...)
}
