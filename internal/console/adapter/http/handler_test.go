package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	nethttp "net/http"
	"net/http/httptest"
	"testing"
	"time"

	consolehttp "cowork-console/internal/console/adapter/http"
	"cowork-console/internal/console/domain/model"
	"cowork-console/internal/console/usecase"
	apperrors "cowork-console/internal/shared/errors"
	"cowork-console/internal/shared/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-session-secret"

type fakeSync struct {
	items       map[string][]model.Item
	snapshotErr error
	upsertErr   error
	removeErr   error
	upserted    []model.Item
	removedIDs  []string
}

func (f *fakeSync) Subscribe(ctx context.Context, collection string, fn usecase.SnapshotFunc) (usecase.CancelFunc, error) {
	items, ok := f.items[collection]
	if !ok {
		return nil, apperrors.ErrCollectionUnknown
	}
	fn(items)
	return func() {}, nil
}

func (f *fakeSync) Snapshot(ctx context.Context, collection string) ([]model.Item, error) {
	if f.snapshotErr != nil {
		return nil, f.snapshotErr
	}
	items, ok := f.items[collection]
	if !ok {
		return nil, apperrors.ErrCollectionUnknown
	}
	return items, nil
}

func (f *fakeSync) Upsert(ctx context.Context, collection string, item model.Item) (string, error) {
	if f.upsertErr != nil {
		return "", f.upsertErr
	}
	if _, ok := f.items[collection]; !ok {
		return "", apperrors.ErrCollectionUnknown
	}
	if item.ID == "" {
		item.ID = "generated-id"
	}
	f.upserted = append(f.upserted, item)
	return item.ID, nil
}

func (f *fakeSync) Remove(ctx context.Context, collection string, id string) error {
	if f.removeErr != nil {
		return f.removeErr
	}
	if _, ok := f.items[collection]; !ok {
		return apperrors.ErrCollectionUnknown
	}
	f.removedIDs = append(f.removedIDs, id)
	return nil
}

func (f *fakeSync) EventsSince(ctx context.Context, collection string, afterSequence int64) ([]model.ChangeEvent, error) {
	return nil, nil
}

type fakeUploads struct {
	err    error
	busy   bool
	scope  string
	kind   model.MediaKind
	stored []usecase.UploadFile
}

func (f *fakeUploads) Store(ctx context.Context, scope string, kind model.MediaKind, file usecase.UploadFile) (string, error) {
	urls, err := f.StoreAll(ctx, scope, kind, []usecase.UploadFile{file})
	if err != nil {
		return "", err
	}
	return urls[0], nil
}

func (f *fakeUploads) StoreAll(ctx context.Context, scope string, kind model.MediaKind, files []usecase.UploadFile) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.scope = scope
	f.kind = kind
	f.stored = append(f.stored, files...)
	urls := make([]string, 0, len(files))
	for _, file := range files {
		urls = append(urls, kind.Namespace()+"/1700000000000_"+file.Name)
	}
	return urls, nil
}

func (f *fakeUploads) Busy(scope string) bool     { return f.busy }
func (f *fakeUploads) AnyBusy(prefix string) bool { return f.busy }

func newTestApp(t *testing.T, syncUC usecase.SyncUsecase, uploads usecase.UploadUsecase) *fiber.App {
	t.Helper()

	log := logger.NewLoggerWithConfig("error", "text")
	auth := consolehttp.NewAuthMiddleware(testSecret, log)
	items := consolehttp.NewItemHandler(syncUC, log)
	uploadHandler := consolehttp.NewUploadHandler(uploads, log)
	drafts := consolehttp.NewDraftHandler(usecase.NewDraftManager(usecase.DefaultSchemas(), uploads, syncUC, log), log)
	ws := consolehttp.NewWebSocketHandler(syncUC, 10, log)

	app := fiber.New()
	consolehttp.NewRouter(auth, items, uploadHandler, drafts, ws, log).Register(app)
	return app
}

func adminToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return token
}

func authedRequest(t *testing.T, method, target string, body io.Reader) *nethttp.Request {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken(t, jwt.MapClaims{
		"sub":   "admin-1",
		"admin": true,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}))
	return req
}

func decodeBody(t *testing.T, resp *nethttp.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func TestRequireAdminRejectsMissingToken(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, &fakeUploads{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/api/v1/collections/partners/items", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAdminRejectsBadSignature(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, &fakeUploads{})

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"admin": true}).
		SignedString([]byte("not-the-secret"))
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/collections/partners/items", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+forged)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestRequireAdminRejectsNonAdminClaims(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, &fakeUploads{})

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/collections/partners/items", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+adminToken(t, jwt.MapClaims{
		"sub":  "member-1",
		"role": "member",
	}))

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRequireAdminAcceptsSessionCookie(t *testing.T) {
	sync := &fakeSync{items: map[string][]model.Item{"partners": {}}}
	app := newTestApp(t, sync, &fakeUploads{})

	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/collections/partners/items", nil)
	req.AddCookie(&nethttp.Cookie{Name: "session", Value: adminToken(t, jwt.MapClaims{
		"sub":   "admin-1",
		"admin": true,
	})})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestListItems(t *testing.T) {
	sync := &fakeSync{items: map[string][]model.Item{
		"partners": {
			{ID: "p1", Fields: map[string]any{"name": "雲端數位科技"}},
			{ID: "p2", Fields: map[string]any{"name": "匯流法律事務所"}},
		},
	}}
	app := newTestApp(t, sync, &fakeUploads{})

	resp, err := app.Test(authedRequest(t, fiber.MethodGet, "/api/v1/collections/partners/items", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Collection string       `json:"collection"`
		Items      []model.Item `json:"items"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "partners", body.Collection)
	require.Len(t, body.Items, 2)
	assert.Equal(t, "p1", body.Items[0].ID)
}

func TestListMapsWrappedSentinel(t *testing.T) {
	sync := &fakeSync{
		items:       map[string][]model.Item{"partners": {}},
		snapshotErr: fmt.Errorf("resolving collection: %w", apperrors.ErrCollectionUnknown),
	}
	app := newTestApp(t, sync, &fakeUploads{})

	resp, err := app.Test(authedRequest(t, fiber.MethodGet, "/api/v1/collections/partners/items", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestListUnknownCollection(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, &fakeUploads{})

	resp, err := app.Test(authedRequest(t, fiber.MethodGet, "/api/v1/collections/nonsense/items", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestUpsertItem(t *testing.T) {
	sync := &fakeSync{items: map[string][]model.Item{"partners": {}}}
	app := newTestApp(t, sync, &fakeUploads{})

	payload := `{"id":"","fields":{"name":"雲端數位科技","category":"加值商務"}}`
	req := authedRequest(t, fiber.MethodPut, "/api/v1/collections/partners/items", bytes.NewBufferString(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		ID string `json:"id"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "generated-id", body.ID)
	require.Len(t, sync.upserted, 1)
	assert.Equal(t, "雲端數位科技", sync.upserted[0].Fields["name"])
}

func TestUpsertRejectsEmptyFields(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{"partners": {}}}, &fakeUploads{})

	req := authedRequest(t, fiber.MethodPut, "/api/v1/collections/partners/items", bytes.NewBufferString(`{"id":"p1"}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUpsertReadOnlyCollection(t *testing.T) {
	sync := &fakeSync{
		items:     map[string][]model.Item{"branches": {}},
		upsertErr: apperrors.ErrReadOnlyCollection,
	}
	app := newTestApp(t, sync, &fakeUploads{})

	req := authedRequest(t, fiber.MethodPut, "/api/v1/collections/branches/items", bytes.NewBufferString(`{"fields":{"name":"x"}}`))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestDeleteItem(t *testing.T) {
	sync := &fakeSync{items: map[string][]model.Item{"partners": {}}}
	app := newTestApp(t, sync, &fakeUploads{})

	resp, err := app.Test(authedRequest(t, fiber.MethodDelete, "/api/v1/collections/partners/items/p1", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
	assert.Equal(t, []string{"p1"}, sync.removedIDs)
}

func multipartBody(t *testing.T, filenames ...string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for _, name := range filenames {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content of " + name))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestUploadBatch(t *testing.T) {
	uploads := &fakeUploads{}
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, uploads)

	body, contentType := multipartBody(t, "a.png", "b.png")
	req := authedRequest(t, fiber.MethodPost, "/api/v1/uploads?kind=image", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var out struct {
		URLs []string `json:"urls"`
	}
	decodeBody(t, resp, &out)
	assert.Equal(t, []string{
		"uploads/1700000000000_a.png",
		"uploads/1700000000000_b.png",
	}, out.URLs)
	assert.Equal(t, model.MediaKindImage, uploads.kind)
	assert.True(t, len(uploads.scope) > len("http/"))
}

func TestUploadVideoKind(t *testing.T) {
	uploads := &fakeUploads{}
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, uploads)

	body, contentType := multipartBody(t, "tour.mp4")
	req := authedRequest(t, fiber.MethodPost, "/api/v1/uploads?kind=video", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	assert.Equal(t, model.MediaKindVideo, uploads.kind)
}

func TestUploadRejectsUnknownKind(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, &fakeUploads{})

	body, contentType := multipartBody(t, "a.png")
	req := authedRequest(t, fiber.MethodPost, "/api/v1/uploads?kind=audio", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUploadRejectsEmptyBatch(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, &fakeUploads{})

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.Close())

	req := authedRequest(t, fiber.MethodPost, "/api/v1/uploads", body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUploadBatchFailure(t *testing.T) {
	uploads := &fakeUploads{
		err: apperrors.NewInfrastructureError("batch upload failed").WithCause(apperrors.ErrBatchUploadFailed),
	}
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, uploads)

	body, contentType := multipartBody(t, "a.png")
	req := authedRequest(t, fiber.MethodPost, "/api/v1/uploads?kind=image", body)
	req.Header.Set(fiber.HeaderContentType, contentType)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
}

func TestHealthIsPublic(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{}}, &fakeUploads{})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestListenRequiresUpgrade(t *testing.T) {
	app := newTestApp(t, &fakeSync{items: map[string][]model.Item{"partners": {}}}, &fakeUploads{})

	resp, err := app.Test(authedRequest(t, fiber.MethodGet, "/ws/v1/listen?collection=partners", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
