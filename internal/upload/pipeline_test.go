package upload

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/matheus3301/gchat/internal/bus"
	"github.com/matheus3301/gchat/internal/groupchat"
	"github.com/matheus3301/gchat/internal/notify"
	"github.com/matheus3301/gchat/internal/rest"
	"github.com/matheus3301/gchat/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRequester struct {
	mock.Mock
}

func (m *mockRequester) RequestUploadURL(ctx context.Context, r rest.UploadURLRequest) (*rest.UploadTarget, error) {
	args := m.Called(ctx, r)
	target, _ := args.Get(0).(*rest.UploadTarget)
	return target, args.Error(1)
}

func forFile(name string) any {
	return mock.MatchedBy(func(r rest.UploadURLRequest) bool { return r.FileName == name })
}

type fakeUploader struct {
	mu        sync.Mutex
	active    int
	maxActive int
	files     []string
	delay     time.Duration
	url       string
	err       error
}

func (u *fakeUploader) Upload(ctx context.Context, target *rest.UploadTarget, f File, body io.ReadSeeker, report func(int64)) (string, error) {
	u.mu.Lock()
	u.active++
	if u.active > u.maxActive {
		u.maxActive = u.active
	}
	u.files = append(u.files, f.Name)
	u.mu.Unlock()

	data, _ := io.ReadAll(body)
	report(int64(len(data)) / 2)
	time.Sleep(u.delay)
	report(int64(len(data)))

	u.mu.Lock()
	u.active--
	u.mu.Unlock()
	return u.url, u.err
}

func (u *fakeUploader) stats() (int, []string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.maxActive, append([]string(nil), u.files...)
}

func testDB(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

var me = &groupchat.User{ID: 7, Username: "me"}

func TestAddMediaFilesDispatchesByType(t *testing.T) {
	req := &mockRequester{}
	req.On("RequestUploadURL", mock.Anything, forFile("a.jpg")).Return(&rest.UploadTarget{UploadURL: "u1", Type: rest.MediaImage, MediaID: "img1"}, nil)
	req.On("RequestUploadURL", mock.Anything, forFile("b.mp4")).Return(&rest.UploadTarget{UploadURL: "u2", Type: rest.MediaVideo, MediaID: "vid1"}, nil)
	image := &fakeUploader{url: "https://cdn/a.jpg"}
	video := &fakeUploader{}
	db := testDB(t)

	p := NewPipeline(Options{Requester: req, Image: image, Video: video, DB: db})
	results, err := p.AddMediaFiles(context.Background(), []File{
		FromBytes("a.jpg", []byte("jpegdata")),
		FromBytes("b.mp4", []byte("videodata")),
	}, me)
	require.NoError(t, err)
	req.AssertExpectations(t)

	require.Len(t, results, 2)
	for _, r := range results {
		require.NoError(t, r.Err)
	}
	assert.Equal(t, &groupchat.Attachment{URL: "https://cdn/a.jpg", Type: "image", Name: "a.jpg", Size: 8, MediaID: "img1"}, results[0].Attachment)
	assert.Equal(t, "video", results[1].Attachment.Type)
	assert.Equal(t, "vid1", results[1].Attachment.MediaID)

	_, imageFiles := image.stats()
	_, videoFiles := video.stats()
	assert.Equal(t, []string{"a.jpg"}, imageFiles)
	assert.Equal(t, []string{"b.mp4"}, videoFiles)

	for _, r := range results {
		fp, ok := p.Tracker().Get(r.ID)
		require.True(t, ok)
		assert.Equal(t, StatusDone, fp.Status)
		assert.Equal(t, 100, fp.Percent)
	}

	uploads, err := db.ListUploads(10)
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	for _, u := range uploads {
		assert.Equal(t, store.UploadDone, u.Status)
		assert.Equal(t, int64(7), u.UserID)
	}
}

func TestAddMediaFilesIsSequential(t *testing.T) {
	req := &mockRequester{}
	req.On("RequestUploadURL", mock.Anything, mock.Anything).Return(&rest.UploadTarget{UploadURL: "u", Type: rest.MediaImage}, nil)
	image := &fakeUploader{delay: 20 * time.Millisecond}
	p := NewPipeline(Options{Requester: req, Image: image})

	batch := func(prefix string) []File {
		return []File{
			FromBytes(prefix+"1.jpg", []byte("x")),
			FromBytes(prefix+"2.jpg", []byte("x")),
			FromBytes(prefix+"3.jpg", []byte("x")),
		}
	}

	var wg sync.WaitGroup
	for _, prefix := range []string{"a", "b"} {
		prefix := prefix
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.AddMediaFiles(context.Background(), batch(prefix), me)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	maxActive, files := image.stats()
	assert.Equal(t, 1, maxActive, "uploads overlapped")
	require.Len(t, files, 6)

	// Each batch keeps its own order.
	var a, b []string
	for _, f := range files {
		if f[0] == 'a' {
			a = append(a, f)
		} else {
			b = append(b, f)
		}
	}
	assert.Equal(t, []string{"a1.jpg", "a2.jpg", "a3.jpg"}, a)
	assert.Equal(t, []string{"b1.jpg", "b2.jpg", "b3.jpg"}, b)
}

func TestAddMediaFilesFailureDoesNotAbortQueue(t *testing.T) {
	b := bus.New()
	toasts, unsub := b.Subscribe(notify.KindToast, 4)
	defer unsub()

	req := &mockRequester{}
	req.On("RequestUploadURL", mock.Anything, forFile("bad.jpg")).Return(nil, errors.New("quota exceeded"))
	req.On("RequestUploadURL", mock.Anything, forFile("good.jpg")).Return(&rest.UploadTarget{UploadURL: "u", Type: rest.MediaImage}, nil)
	image := &fakeUploader{}
	db := testDB(t)
	p := NewPipeline(Options{Requester: req, Image: image, DB: db, Bus: b})

	results, err := p.AddMediaFiles(context.Background(), []File{
		FromBytes("bad.jpg", []byte("x")),
		FromBytes("good.jpg", []byte("y")),
	}, me)
	require.NoError(t, err)

	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "quota exceeded")
	assert.Nil(t, results[0].Attachment)
	require.NoError(t, results[1].Err)
	assert.NotNil(t, results[1].Attachment)

	fp, _ := p.Tracker().Get(results[0].ID)
	assert.Equal(t, StatusFailed, fp.Status)
	assert.Contains(t, fp.Error, "quota exceeded")

	select {
	case evt := <-toasts:
		toast := evt.Payload.(notify.Toast)
		assert.Equal(t, notify.LevelError, toast.Level)
		assert.Contains(t, toast.Message, "bad.jpg")
	case <-time.After(time.Second):
		t.Fatal("no toast for failed upload")
	}

	uploads, _ := db.ListUploads(10)
	statuses := map[string]string{}
	for _, u := range uploads {
		statuses[u.FileName] = u.Status
	}
	assert.Equal(t, map[string]string{"bad.jpg": store.UploadFailed, "good.jpg": store.UploadDone}, statuses)
}

func TestAddMediaFilesUploaderError(t *testing.T) {
	req := &mockRequester{}
	req.On("RequestUploadURL", mock.Anything, mock.Anything).Return(&rest.UploadTarget{UploadURL: "u", Type: rest.MediaVideo}, nil)
	video := &fakeUploader{err: errors.New("connection reset")}
	p := NewPipeline(Options{Requester: req, Video: video})

	results, err := p.AddMediaFiles(context.Background(), []File{FromBytes("c.mp4", []byte("z"))}, me)
	require.NoError(t, err)
	assert.ErrorContains(t, results[0].Err, "connection reset")
}

func TestAddMediaFilesUnsupportedType(t *testing.T) {
	req := &mockRequester{}
	req.On("RequestUploadURL", mock.Anything, mock.Anything).Return(&rest.UploadTarget{UploadURL: "u", Type: "audio"}, nil)
	p := NewPipeline(Options{Requester: req, Image: &fakeUploader{}, Video: &fakeUploader{}})

	results, err := p.AddMediaFiles(context.Background(), []File{FromBytes("s.mp3", []byte("z"))}, me)
	require.NoError(t, err)
	assert.ErrorContains(t, results[0].Err, "unsupported media type")
}

func TestAddMediaFilesRequiresUser(t *testing.T) {
	p := NewPipeline(Options{Requester: &mockRequester{}})
	_, err := p.AddMediaFiles(context.Background(), []File{FromBytes("a.jpg", nil)}, nil)
	assert.ErrorIs(t, err, groupchat.ErrNoUser)
}

func TestAddMediaFilesCancelled(t *testing.T) {
	req := &mockRequester{}
	p := NewPipeline(Options{Requester: req, Image: &fakeUploader{}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := p.AddMediaFiles(ctx, []File{FromBytes("a.jpg", []byte("x"))}, me)
	require.NoError(t, err)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
	req.AssertNotCalled(t, "RequestUploadURL", mock.Anything, mock.Anything)
}

func TestTrackerSnapshotOrderAndClamp(t *testing.T) {
	tr := NewTracker(nil)
	tr.Add("x", "first")
	tr.Add("y", "second")
	tr.Update("x", func(fp *FileProgress) { fp.Percent = 150 })
	tr.Update("missing", func(fp *FileProgress) { fp.Percent = 1 })

	snap := tr.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "first", snap[0].FileName)
	assert.Equal(t, 100, snap[0].Percent)

	tr.Update("x", func(fp *FileProgress) { fp.Status = StatusDone })
	assert.Equal(t, 1, tr.ClearFinished())
	assert.Len(t, tr.Snapshot(), 1)
	assert.Equal(t, 0, tr.ClearFinished())
}

func TestFromPath(t *testing.T) {
	_, err := FromPath(t.TempDir())
	assert.Error(t, err)

	_, err = FromPath(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}
