package intake

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/MeKo-Tech/cardscan/internal/card"
	"github.com/MeKo-Tech/cardscan/internal/notify"
	"github.com/MeKo-Tech/cardscan/internal/ocr"
	"github.com/MeKo-Tech/cardscan/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cardFragments = `[
	[[[0, 10], [90, 10], [90, 20], [0, 20]], "Jane Doe", 96],
	[[[0, 30], [90, 30], [90, 40], [0, 40]], "jane.doe@acme.in", 92],
	[[[0, 50], [90, 50], [90, 60], [0, 60]], "Tel: 555-123-4567", 90],
	[[[0, 70], [90, 70], [90, 80], [0, 80]], "12/4 MG Road", 88]
]`

type stubEngine struct {
	frags []card.Fragment
	err   error
	paths []string
}

func (e *stubEngine) Recognize(_ context.Context, path string) ([]card.Fragment, error) {
	e.paths = append(e.paths, path)
	return e.frags, e.err
}
func (e *stubEngine) Name() string { return "stub" }
func (e *stubEngine) Close() error { return nil }

type failingStore struct {
	store.Store
	err error
}

func (s *failingStore) Save(context.Context, card.Record, string) (uint, error) {
	return 0, s.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	phones []string
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if message != notify.ProcessedMessage {
		return errors.New("unexpected message")
	}
	n.phones = append(n.phones, phone)
	return n.err
}

func newTestService(t *testing.T, engine ocr.Engine, opts ...Option) (*Service, string) {
	t.Helper()
	dir := t.TempDir()
	svc, err := NewService(Config{UploadDir: filepath.Join(dir, "uploads")}, engine, card.NewExtractor(), opts...)
	require.NoError(t, err)
	return svc, dir
}

func TestNewService_Validation(t *testing.T) {
	_, err := NewService(Config{}, nil, card.NewExtractor())
	require.Error(t, err)
	_, err = NewService(Config{}, ocr.NewFragmentFileEngine(), nil)
	require.Error(t, err)

	svc, err := NewService(Config{}, ocr.NewFragmentFileEngine(), card.NewExtractor())
	require.NoError(t, err)
	assert.Equal(t, DefaultUploadDir, svc.cfg.UploadDir)
	assert.Nil(t, svc.preprocessor)
}

func TestService_ProcessStoresRenamesAndNotifies(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(store.Config{DSN: filepath.Join(dir, "cards.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	notifier := &recordingNotifier{}
	svc, _ := newTestService(t, ocr.NewFragmentFileEngine(), WithStore(st), WithNotifier(notifier))

	res, err := svc.Process(context.Background(), Upload{Filename: "my card.json", Body: strings.NewReader(cardFragments)})
	require.NoError(t, err)

	assert.NotZero(t, res.ID)
	assert.Equal(t, "my card.json", res.File)
	assert.Equal(t, 4, res.Fragments)
	assert.Equal(t, card.Record{
		Name:    "Jane Doe",
		Email:   "jane.doe@acme.in",
		Phone:   "555-123-4567",
		Address: "Tel: 555-123-4567, 12/4 MG Road",
	}, res.Record)
	assert.Equal(t, "Jane_Doe.json", filepath.Base(res.StoredPath))
	_, err = os.Stat(res.StoredPath)
	require.NoError(t, err)

	saved, err := st.Get(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane_Doe.json", saved.ImageName)
	assert.Equal(t, []string{"555-123-4567"}, notifier.phones)

	// Same person again: the file name collides and takes the id suffix.
	res2, err := svc.Process(context.Background(), Upload{Filename: "again.json", Body: strings.NewReader(cardFragments)})
	require.NoError(t, err)
	assert.NotEqual(t, res.ID, res2.ID)
	assert.Equal(t, "Jane_Doe_"+strconv.FormatUint(uint64(res2.ID), 10)+".json", filepath.Base(res2.StoredPath))
}

func TestService_ProcessWithoutPhoneSkipsNotification(t *testing.T) {
	notifier := &recordingNotifier{}
	engine := &stubEngine{frags: []card.Fragment{{Text: "Jane Doe"}, {Text: "jane@acme.com", Box: card.BoundingBox{{Y: 20}}}}}
	svc, _ := newTestService(t, engine, WithNotifier(notifier))

	res, err := svc.Process(context.Background(), Upload{Filename: "card.png", Body: strings.NewReader("png bytes")})
	require.NoError(t, err)
	assert.Zero(t, res.ID)
	assert.Empty(t, res.Record.Phone)
	assert.Empty(t, notifier.phones)
	assert.Equal(t, "Jane_Doe.png", filepath.Base(res.StoredPath))
	require.Len(t, engine.paths, 1)
}

func TestService_NotificationFailureIsNotFatal(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("sms gateway down")}
	svc, _ := newTestService(t, ocr.NewFragmentFileEngine(), WithNotifier(notifier))

	res, err := svc.Process(context.Background(), Upload{Filename: "card.json", Body: strings.NewReader(cardFragments)})
	require.NoError(t, err)
	assert.Equal(t, "555-123-4567", res.Record.Phone)
	assert.Len(t, notifier.phones, 1)
}

func TestService_ProcessRejectsUnsupportedFiles(t *testing.T) {
	svc, _ := newTestService(t, &stubEngine{})
	_, err := svc.Process(context.Background(), Upload{Filename: "notes.txt", Body: strings.NewReader("x")})
	require.ErrorIs(t, err, ErrUnsupportedFile)

	// JSON is only accepted by the fragments engine.
	_, err = svc.Process(context.Background(), Upload{Filename: "card.json", Body: strings.NewReader("[]")})
	require.ErrorIs(t, err, ErrUnsupportedFile)
}

func TestService_OCRFailureRemovesUpload(t *testing.T) {
	engine := &stubEngine{err: errors.New("engine crashed")}
	svc, _ := newTestService(t, engine)

	_, err := svc.Process(context.Background(), Upload{Filename: "card.png", Body: strings.NewReader("png")})
	require.Error(t, err)
	require.Len(t, engine.paths, 1)
	_, statErr := os.Stat(engine.paths[0])
	assert.True(t, os.IsNotExist(statErr))
}

func TestService_StoreFailureRemovesUpload(t *testing.T) {
	notifier := &recordingNotifier{}
	st := &failingStore{err: errors.New("database is closed")}
	svc, dir := newTestService(t, ocr.NewFragmentFileEngine(), WithStore(st), WithNotifier(notifier))

	_, err := svc.Process(context.Background(), Upload{Filename: "card.json", Body: strings.NewReader(cardFragments)})
	require.ErrorIs(t, err, st.err)

	entries, err := os.ReadDir(filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Empty(t, notifier.phones)
}

func TestService_InvalidFragmentsSurfaceAsInputError(t *testing.T) {
	svc, _ := newTestService(t, ocr.NewFragmentFileEngine())
	_, err := svc.Process(context.Background(), Upload{Filename: "card.json", Body: strings.NewReader(`[1, 2]`)})
	var invalid *card.InvalidInputError
	require.ErrorAs(t, err, &invalid)
}

func TestService_Analyze(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.json")
	require.NoError(t, os.WriteFile(path, []byte(cardFragments), 0o600))

	svc, _ := newTestService(t, ocr.NewFragmentFileEngine())
	res, err := svc.Analyze(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, res.File)
	assert.Equal(t, ocr.KindFragments, res.Engine)
	assert.Equal(t, "Jane Doe", res.Record.Name)
	assert.GreaterOrEqual(t, res.Timing.TotalMs, res.Timing.OCRMs)
}

func TestUniquePath(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, filepath.Join(dir, "a.png"), uniquePath(dir, "a.png", 7))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), nil, 0o600))
	assert.Equal(t, filepath.Join(dir, "a_7.png"), uniquePath(dir, "a.png", 7))
	assert.Equal(t, filepath.Join(dir, "a_2.png"), uniquePath(dir, "a.png", 0))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a_7.png"), nil, 0o600))
	assert.Equal(t, filepath.Join(dir, "a_2.png"), uniquePath(dir, "a.png", 7))
}
