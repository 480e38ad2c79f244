package action

import (
	"context"
	"errors"
	"math"

	"github.com/hyprconnect/hyprconnect/internal/failure"
)

// Media operations.
const (
	MediaStatus     = "status"
	MediaPlayPause  = "play_pause"
	MediaNext       = "next"
	MediaPrevious   = "previous"
	MediaStop       = "stop"
	MediaSeek       = "seek"
	MediaVolume     = "volume"
	MediaPlayerList = "player_list"
	MediaPlayerSet  = "player_set"
)

var transportActions = map[string]string{
	MediaPlayPause: "PlayPause",
	MediaNext:      "Next",
	MediaPrevious:  "Previous",
	MediaStop:      "Stop",
}

// validateMedia rejects malformed media arguments before any device lookup.
func validateMedia(args MediaArgs) error {
	switch args.Op {
	case MediaStatus, MediaPlayerList, MediaPlayPause, MediaNext, MediaPrevious, MediaStop:
		return nil
	case MediaSeek:
		if args.DeltaMS == 0 {
			return failure.New(failure.InvalidArgument, "seek requires a non-zero delta")
		}
		if args.DeltaMS > math.MaxInt32 || args.DeltaMS < math.MinInt32 {
			return failure.New(failure.InvalidArgument, "seek delta %d out of range", args.DeltaMS)
		}
		return nil
	case MediaVolume:
		if args.Volume == nil {
			return failure.New(failure.InvalidArgument, "volume requires a value")
		}
		if v := *args.Volume; v < 0 || v > 100 {
			return failure.New(failure.InvalidArgument, "volume %d out of range 0-100", v)
		}
		return nil
	case MediaPlayerSet:
		if args.Name == "" {
			return failure.New(failure.InvalidArgument, "player_set requires a player name")
		}
		return nil
	case "":
		return failure.New(failure.InvalidArgument, "media operation is required")
	}
	return failure.New(failure.InvalidArgument, "unknown media operation %q", args.Op)
}

func (d *Dispatcher) media(ctx context.Context, req Request) (Result, error) {
	args := req.Media
	if err := validateMedia(args); err != nil {
		return Result{}, err
	}
	dev, err := d.target(req.Device)
	if err != nil {
		return Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, d.opts.ActionTimeout)
	defer cancel()
	res, err := d.mediaCall(ctx, dev.ID, args)
	if err != nil && !failure.Is(err, failure.ActionTimeout) && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Result{}, failure.Wrap(failure.ActionTimeout, err, "media %s timed out", args.Op)
	}
	return res, err
}

func (d *Dispatcher) mediaCall(ctx context.Context, device string, args MediaArgs) (Result, error) {
	res := Result{Device: device}

	switch args.Op {
	case MediaStatus:
		status, err := d.backend.MediaStatus(ctx, device)
		if err != nil {
			return Result{}, err
		}
		res.Media = &status
	case MediaPlayerList:
		players, err := d.backend.MediaPlayers(ctx, device)
		if err != nil {
			return Result{}, err
		}
		res.Players = players
	case MediaSeek:
		if err := d.backend.MediaSeek(ctx, device, int32(args.DeltaMS)); err != nil {
			return Result{}, err
		}
		res.Message = "Seeked"
	case MediaVolume:
		if err := d.backend.SetMediaVolume(ctx, device, int32(*args.Volume)); err != nil {
			return Result{}, err
		}
		res.Message = "Volume set"
	case MediaPlayerSet:
		if err := d.backend.SetMediaPlayer(ctx, device, args.Name); err != nil {
			return Result{}, err
		}
		res.Message = "Player set to " + args.Name
	default:
		action := transportActions[args.Op]
		if err := d.backend.MediaAction(ctx, device, action); err != nil {
			return Result{}, err
		}
		res.Message = "Sent " + action
	}
	return res, nil
}
