package usecase

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/domain/repository"
	"cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"golang.org/x/sync/errgroup"
)

// UploadFile is one user-selected file queued for storage.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// UploadUsecase stores media files and tracks which upload scopes are busy.
// A scope is an opaque caller-chosen key, typically "{sessionID}/{field}",
// so a draft can refuse submission while any of its fields still uploads.
type UploadUsecase interface {
	// Store uploads a single file and returns its stable URL.
	Store(ctx context.Context, scope string, kind model.MediaKind, file UploadFile) (string, error)

	// StoreAll uploads a batch concurrently. On success the returned URL
	// order equals the input file order. If any file fails the whole batch
	// is discarded and ErrBatchUploadFailed is returned.
	StoreAll(ctx context.Context, scope string, kind model.MediaKind, files []UploadFile) ([]string, error)

	// Busy reports whether the exact scope has uploads in flight.
	Busy(scope string) bool

	// AnyBusy reports whether any scope with the given prefix has uploads in
	// flight.
	AnyBusy(prefix string) bool
}

type uploadUsecase struct {
	blobs repository.BlobStore
	log   logger.Logger

	mu       sync.Mutex
	inflight map[string]int
}

// NewUploadUsecase creates the batch upload orchestrator.
func NewUploadUsecase(blobs repository.BlobStore, log logger.Logger) UploadUsecase {
	return &uploadUsecase{
		blobs:    blobs,
		log:      log.WithComponent("upload"),
		inflight: make(map[string]int),
	}
}

func (uc *uploadUsecase) Store(ctx context.Context, scope string, kind model.MediaKind, file UploadFile) (string, error) {
	refs, err := uc.StoreAll(ctx, scope, kind, []UploadFile{file})
	if err != nil {
		return "", err
	}
	return refs[0], nil
}

func (uc *uploadUsecase) StoreAll(ctx context.Context, scope string, kind model.MediaKind, files []UploadFile) ([]string, error) {
	if len(files) == 0 {
		return nil, errors.ErrEmptyUploadBatch
	}

	uc.enter(scope)
	defer uc.leave(scope)

	g, ctx := errgroup.WithContext(ctx)

	// Results are written by input position so the output order matches the
	// selection order regardless of completion order.
	refs := make([]string, len(files))
	for i, f := range files {
		g.Go(func() error {
			url, err := uc.blobs.Put(ctx, kind, f.Name, f.ContentType, bytes.NewReader(f.Data))
			if err != nil {
				uc.log.Warnf("upload of %s failed: %v", f.Name, err)
				return err
			}
			refs[i] = url
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		// All-or-nothing per batch: a partial-failure batch contributes zero
		// references.
		return nil, errors.NewInfrastructureError("batch upload failed").
			WithCause(errors.ErrBatchUploadFailed).
			WithDetail("fileCount", len(files)).
			WithDetail("firstFailure", err.Error()).
			WithComponent("upload")
	}

	uc.log.Infof("stored %d %s file(s) in scope %s", len(files), kind, scope)
	return refs, nil
}

func (uc *uploadUsecase) Busy(scope string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	return uc.inflight[scope] > 0
}

func (uc *uploadUsecase) AnyBusy(prefix string) bool {
	uc.mu.Lock()
	defer uc.mu.Unlock()
	for scope, n := range uc.inflight {
		if n > 0 && strings.HasPrefix(scope, prefix) {
			return true
		}
	}
	return false
}

func (uc *uploadUsecase) enter(scope string) {
	uc.mu.Lock()
	uc.inflight[scope]++
	uc.mu.Unlock()
}

func (uc *uploadUsecase) leave(scope string) {
	uc.mu.Lock()
	if uc.inflight[scope] <= 1 {
		delete(uc.inflight, scope)
	} else {
		uc.inflight[scope]--
	}
	uc.mu.Unlock()
}
