package action

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyprconnect/hyprconnect/internal/failure"
	"github.com/hyprconnect/hyprconnect/internal/kdeconnect"
	"github.com/hyprconnect/hyprconnect/internal/state"
)

type fakeBackend struct {
	mu         sync.Mutex
	calls      []kdeconnect.Command
	media      []string
	mountPoint string
	errs       map[string]error
	// hang makes media calls block until the context ends.
	hang bool
}

func (f *fakeBackend) Invoke(_ context.Context, cmd kdeconnect.Command) (kdeconnect.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if err := f.errs[cmd.Name]; err != nil {
		return kdeconnect.Result{ExitCode: 1}, err
	}
	if cmd.Name == kdeconnect.CmdMountPoint {
		return kdeconnect.Result{Stdout: f.mountPoint + "\n"}, nil
	}
	return kdeconnect.Result{}, nil
}

func (f *fakeBackend) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.media = append(f.media, s)
}

func (f *fakeBackend) MediaStatus(ctx context.Context, _ string) (kdeconnect.MediaStatus, error) {
	f.record("status")
	if f.hang {
		<-ctx.Done()
		return kdeconnect.MediaStatus{}, ctx.Err()
	}
	return kdeconnect.MediaStatus{Player: "spotify", Title: "Song", Artist: "Band", Playing: true, Volume: 40}, nil
}

func (f *fakeBackend) MediaPlayers(context.Context, string) ([]string, error) {
	f.record("players")
	return []string{"spotify", "vlc"}, nil
}

func (f *fakeBackend) MediaAction(ctx context.Context, _ string, action string) error {
	f.record("action:" + action)
	if f.hang {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (f *fakeBackend) MediaSeek(context.Context, string, int32) error {
	f.record("seek")
	return nil
}

func (f *fakeBackend) SetMediaVolume(context.Context, string, int32) error {
	f.record("volume")
	return nil
}

func (f *fakeBackend) SetMediaPlayer(_ context.Context, _ string, name string) error {
	f.record("player:" + name)
	return nil
}

func (f *fakeBackend) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Name)
	}
	return out
}

type countingTrigger struct {
	mu      sync.Mutex
	sources []string
}

func (c *countingTrigger) Request(source string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sources = append(c.sources, source)
	return true
}

func (c *countingTrigger) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sources)
}

func newCache(devices ...state.Device) *state.Store {
	store := state.NewStore(2)
	store.Reconcile(devices)
	return store
}

func device(id string, reachable, paired bool) state.Device {
	return state.Device{ID: id, Name: "Phone " + id, Reachable: reachable, Paired: paired}
}

func newDispatcher(t *testing.T, cache Cache, backend *fakeBackend, opts Options) *Dispatcher {
	t.Helper()
	if opts.IsMounted == nil {
		opts.IsMounted = func(string) bool { return true }
	}
	if opts.MountPoll == 0 {
		opts.MountPoll = time.Millisecond
	}
	return New(cache, backend, opts)
}

func TestUnknownDeviceIsNotFoundWithoutBackendCall(t *testing.T) {
	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})

	for _, cmd := range []string{CmdPing, CmdFind, CmdUnpair, CmdPair, CmdMount, CmdToggleMount, CmdShareURL} {
		_, err := d.Execute(context.Background(), Request{Command: cmd, Device: "Z", URL: "https://example.org"})
		require.Error(t, err, cmd)
		assert.True(t, failure.Is(err, failure.DeviceNotFound), "%s: got %v", cmd, err)
	}
	assert.Empty(t, backend.names())
}

func TestUnreachableDeviceIsRejected(t *testing.T) {
	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(device("a", false, true)), backend, Options{})

	_, err := d.Execute(context.Background(), Request{Command: CmdFind, Device: "a"})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.DeviceUnreachable))
	assert.Empty(t, backend.names())
}

func TestUnpairOnlyNeedsExistence(t *testing.T) {
	backend := &fakeBackend{}
	trig := &countingTrigger{}
	d := newDispatcher(t, newCache(device("a", false, true)), backend, Options{Trigger: trig})

	res, err := d.Execute(context.Background(), Request{Command: CmdUnpair, Device: "a"})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Device)
	assert.Equal(t, []string{kdeconnect.CmdUnpair}, backend.names())
	assert.Equal(t, 1, trig.count())
}

func TestPairRequiresExplicitDevice(t *testing.T) {
	d := newDispatcher(t, newCache(device("a", true, false)), &fakeBackend{}, Options{})
	_, err := d.Execute(context.Background(), Request{Command: CmdPair})
	assert.True(t, failure.Is(err, failure.InvalidArgument))
}

func TestResolve(t *testing.T) {
	cache := newCache(
		device("c", true, true),
		device("b", true, true),
		device("a", true, false),
		device("d", false, true),
	)

	tests := []struct {
		name       string
		defaultDev string
		id         string
		want       string
		wantKind   failure.Kind
	}{
		{name: "explicit id", id: "d", want: "d"},
		{name: "default device", defaultDev: "c", want: "c"},
		{name: "unusable default falls back", defaultDev: "d", want: "b"},
		{name: "first usable by id", want: "b"},
		{name: "unknown id", id: "zz", wantKind: failure.DeviceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newDispatcher(t, cache, &fakeBackend{}, Options{DefaultDevice: tt.defaultDev})
			got, err := d.Resolve(tt.id)
			if tt.wantKind != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, failure.KindOf(err, ""))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.ID)
		})
	}
}

func TestResolveWithoutUsableDevice(t *testing.T) {
	d := newDispatcher(t, newCache(device("a", false, true)), &fakeBackend{}, Options{})
	_, err := d.Resolve("")
	assert.True(t, failure.Is(err, failure.DeviceNotFound))
}

func TestPingDefaultMessage(t *testing.T) {
	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})

	res, err := d.Execute(context.Background(), Request{Command: CmdPing})
	require.NoError(t, err)
	assert.Equal(t, "a", res.Device)
	require.Len(t, backend.calls, 1)
	assert.Equal(t, []string{DefaultPingMessage}, backend.calls[0].Args)
}

func TestShareClipboard(t *testing.T) {
	cache := newCache(device("a", true, true))

	t.Run("empty clipboard", func(t *testing.T) {
		backend := &fakeBackend{}
		d := newDispatcher(t, cache, backend, Options{Clipboard: func() (string, error) { return "  \n", nil }})
		_, err := d.Execute(context.Background(), Request{Command: CmdShareClipboard})
		assert.True(t, failure.Is(err, failure.InvalidArgument))
		assert.Empty(t, backend.names())
	})

	t.Run("clipboard text", func(t *testing.T) {
		backend := &fakeBackend{}
		d := newDispatcher(t, cache, backend, Options{Clipboard: func() (string, error) { return "https://example.org", nil }})
		_, err := d.Execute(context.Background(), Request{Command: CmdShareClipboard})
		require.NoError(t, err)
		require.Len(t, backend.calls, 1)
		assert.Equal(t, kdeconnect.CmdShare, backend.calls[0].Name)
		assert.Equal(t, []string{"https://example.org"}, backend.calls[0].Args)
	})

	t.Run("clipboard error", func(t *testing.T) {
		d := newDispatcher(t, cache, &fakeBackend{}, Options{Clipboard: func() (string, error) { return "", errors.New("no wayland") }})
		_, err := d.Execute(context.Background(), Request{Command: CmdShareClipboard})
		assert.True(t, failure.Is(err, failure.ActionFailed))
	})
}

func TestShareFileResolvesAbsolutePath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "photo.jpg")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})
	_, err := d.Execute(context.Background(), Request{Command: CmdShareFile, Path: file})
	require.NoError(t, err)
	assert.Equal(t, []string{file}, backend.calls[0].Args)

	_, err = d.Execute(context.Background(), Request{Command: CmdShareFile, Path: filepath.Join(dir, "missing")})
	assert.True(t, failure.Is(err, failure.InvalidArgument))
}

func TestToggleMountWhenMountedOnlyUnmounts(t *testing.T) {
	dev := device("a", true, true)
	dev.Mounted = true
	dev.Mountpoint = "/run/user/1000/a"
	backend := &fakeBackend{}
	trig := &countingTrigger{}
	d := newDispatcher(t, newCache(dev), backend, Options{Trigger: trig})

	_, err := d.Execute(context.Background(), Request{Command: CmdToggleMount})
	require.NoError(t, err)
	assert.Equal(t, []string{kdeconnect.CmdUnmount}, backend.names())
	assert.Equal(t, []string{"/run/user/1000/a"}, backend.calls[0].Args)
	assert.Equal(t, 1, trig.count())
}

func TestToggleMountWhenUnmountedMountsThenOpens(t *testing.T) {
	mount := t.TempDir()
	storage := filepath.Join(mount, "storage", "emulated", "0")
	require.NoError(t, os.MkdirAll(storage, 0o755))

	backend := &fakeBackend{mountPoint: mount}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})

	res, err := d.Execute(context.Background(), Request{Command: CmdToggleMount})
	require.NoError(t, err)
	assert.Equal(t, []string{kdeconnect.CmdMount, kdeconnect.CmdMountPoint, kdeconnect.CmdOpen}, backend.names())
	assert.Equal(t, []string{storage}, backend.calls[2].Args)
	assert.Equal(t, mount, res.Mountpoint)
	assert.NotContains(t, backend.names(), kdeconnect.CmdUnmount)
}

func TestToggleMountTrustsCachedMount(t *testing.T) {
	dev := device("a", true, true)
	dev.Mounted = true
	dev.Mountpoint = "/run/user/1000/a"
	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(dev), backend, Options{
		IsMounted: func(string) bool { return false },
	})

	res, err := d.Execute(context.Background(), Request{Command: CmdToggleMount})
	require.NoError(t, err)
	assert.Equal(t, []string{kdeconnect.CmdUnmount}, backend.names())
	assert.Contains(t, res.Message, "Unmounted")
}

func TestMountTimesOutWithoutMountPoint(t *testing.T) {
	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{MountWait: 20 * time.Millisecond})

	_, err := d.Execute(context.Background(), Request{Command: CmdMount})
	assert.True(t, failure.Is(err, failure.ActionTimeout), "got %v", err)
}

func TestOpenMountFallsBackToMountRoot(t *testing.T) {
	mount := t.TempDir()
	backend := &fakeBackend{mountPoint: mount}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})

	_, err := d.Execute(context.Background(), Request{Command: CmdOpenMount})
	require.NoError(t, err)
	last := backend.calls[len(backend.calls)-1]
	assert.Equal(t, kdeconnect.CmdOpen, last.Name)
	assert.Equal(t, []string{mount}, last.Args)
}

func TestBackendFailureIsSurfacedNotRetried(t *testing.T) {
	backend := &fakeBackend{errs: map[string]error{
		kdeconnect.CmdRing: failure.New(failure.ActionFailed, "device said no"),
	}}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})

	_, err := d.Execute(context.Background(), Request{Command: CmdFind})
	assert.True(t, failure.Is(err, failure.ActionFailed))
	assert.Len(t, backend.calls, 1)
}

func TestMediaVolumeOutOfRangeRejectedBeforeDispatch(t *testing.T) {
	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})

	vol := 150
	_, err := d.Execute(context.Background(), Request{Command: CmdMedia, Media: MediaArgs{Op: MediaVolume, Volume: &vol}})
	require.Error(t, err)
	assert.True(t, failure.Is(err, failure.InvalidArgument))
	assert.Empty(t, backend.media)
}

func TestMediaOperations(t *testing.T) {
	vol := 55
	tests := []struct {
		args  MediaArgs
		calls []string
	}{
		{MediaArgs{Op: MediaPlayPause}, []string{"action:PlayPause"}},
		{MediaArgs{Op: MediaNext}, []string{"action:Next"}},
		{MediaArgs{Op: MediaPrevious}, []string{"action:Previous"}},
		{MediaArgs{Op: MediaStop}, []string{"action:Stop"}},
		{MediaArgs{Op: MediaSeek, DeltaMS: -5000}, []string{"seek"}},
		{MediaArgs{Op: MediaVolume, Volume: &vol}, []string{"volume"}},
		{MediaArgs{Op: MediaPlayerSet, Name: "vlc"}, []string{"player:vlc"}},
	}
	for _, tt := range tests {
		t.Run(tt.args.Op, func(t *testing.T) {
			backend := &fakeBackend{}
			d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})
			_, err := d.Execute(context.Background(), Request{Command: CmdMedia, Media: tt.args})
			require.NoError(t, err)
			assert.Equal(t, tt.calls, backend.media)
		})
	}
}

func TestMediaCallsAreBoundedByActionTimeout(t *testing.T) {
	for _, args := range []MediaArgs{{Op: MediaStatus}, {Op: MediaPlayPause}} {
		t.Run(args.Op, func(t *testing.T) {
			backend := &fakeBackend{hang: true}
			d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{ActionTimeout: 30 * time.Millisecond})

			done := make(chan error, 1)
			go func() {
				_, err := d.Execute(context.Background(), Request{Command: CmdMedia, Media: args})
				done <- err
			}()
			select {
			case err := <-done:
				assert.True(t, failure.Is(err, failure.ActionTimeout), "got %v", err)
			case <-time.After(5 * time.Second):
				t.Fatal("media call not bounded")
			}
		})
	}
}

func TestMediaReads(t *testing.T) {
	backend := &fakeBackend{}
	d := newDispatcher(t, newCache(device("a", true, true)), backend, Options{})

	res, err := d.Execute(context.Background(), Request{Command: CmdMedia, Media: MediaArgs{Op: MediaStatus}})
	require.NoError(t, err)
	require.NotNil(t, res.Media)
	assert.Equal(t, "spotify", res.Media.Player)

	res, err = d.Execute(context.Background(), Request{Command: CmdMedia, Media: MediaArgs{Op: MediaPlayerList}})
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify", "vlc"}, res.Players)
}

func TestValidateMedia(t *testing.T) {
	neg := -1
	bad := []MediaArgs{
		{},
		{Op: "rewind"},
		{Op: MediaSeek},
		{Op: MediaVolume},
		{Op: MediaVolume, Volume: &neg},
		{Op: MediaPlayerSet},
	}
	for _, args := range bad {
		err := validateMedia(args)
		assert.True(t, failure.Is(err, failure.InvalidArgument), "%+v: %v", args, err)
	}
}

func TestUnknownCommand(t *testing.T) {
	d := newDispatcher(t, newCache(), &fakeBackend{}, Options{})
	_, err := d.Execute(context.Background(), Request{Command: "explode"})
	assert.True(t, failure.Is(err, failure.InvalidArgument))
}

func TestRefreshTriggersReconcile(t *testing.T) {
	backend := &fakeBackend{}
	trig := &countingTrigger{}
	d := newDispatcher(t, newCache(), backend, Options{Trigger: trig})

	_, err := d.Execute(context.Background(), Request{Command: CmdRefresh})
	require.NoError(t, err)
	assert.Equal(t, []string{kdeconnect.CmdRefresh}, backend.names())
	assert.Equal(t, 1, trig.count())
}
