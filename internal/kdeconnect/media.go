package kdeconnect

import (
	"context"
	"strings"
)

// MediaStatus reads the now-playing state of the device's active player.
func (b *Bus) MediaStatus(ctx context.Context, device string) (MediaStatus, error) {
	path := devicePath(device, "mprisremote")
	status := MediaStatus{Player: "Unknown", Title: "--", Artist: "--"}

	read := func(prop string) (any, error) {
		v, err := b.getProp(ctx, path, mprisIface, prop)
		return v, classify(ctx, err, "read media "+prop)
	}

	v, err := read("player")
	if err != nil {
		return MediaStatus{}, err
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		status.Player = s
	}
	if v, err = read("title"); err != nil {
		return MediaStatus{}, err
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		status.Title = s
	}
	if v, err = read("artist"); err != nil {
		return MediaStatus{}, err
	}
	if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
		status.Artist = s
	}
	if v, err = read("isPlaying"); err != nil {
		return MediaStatus{}, err
	}
	status.Playing, _ = v.(bool)
	if v, err = read("volume"); err != nil {
		return MediaStatus{}, err
	}
	status.Volume, _ = toInt(v)
	return status, nil
}

// MediaPlayers lists the players the device reports.
func (b *Bus) MediaPlayers(ctx context.Context, device string) ([]string, error) {
	v, err := b.getProp(ctx, devicePath(device, "mprisremote"), mprisIface, "playerList")
	if err != nil {
		return nil, classify(ctx, err, "read media players")
	}
	list, _ := v.([]string)
	out := make([]string, 0, len(list))
	for _, p := range list {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, nil
}

// MediaAction sends a transport action such as "PlayPause" or "Next".
func (b *Bus) MediaAction(ctx context.Context, device, action string) error {
	err := b.call(ctx, devicePath(device, "mprisremote"), mprisIface+".sendAction", nil, action)
	return classify(ctx, err, "media "+action)
}

// MediaSeek moves the playback position by deltaMS milliseconds.
func (b *Bus) MediaSeek(ctx context.Context, device string, deltaMS int32) error {
	err := b.call(ctx, devicePath(device, "mprisremote"), mprisIface+".seek", nil, deltaMS)
	return classify(ctx, err, "media seek")
}

// SetMediaVolume sets the player volume (0-100).
func (b *Bus) SetMediaVolume(ctx context.Context, device string, volume int32) error {
	err := b.setProp(ctx, devicePath(device, "mprisremote"), mprisIface, "volume", volume)
	return classify(ctx, err, "set media volume")
}

// SetMediaPlayer selects the active player by name.
func (b *Bus) SetMediaPlayer(ctx context.Context, device, name string) error {
	err := b.setProp(ctx, devicePath(device, "mprisremote"), mprisIface, "player", name)
	return classify(ctx, err, "set media player")
}
