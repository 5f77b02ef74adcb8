package controller

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/playbind/server/internal/player"
)

func (c controller) unmarshalAndValidate(payload json.RawMessage, input any) error {
	if err := json.Unmarshal(payload, input); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		return fmt.Errorf("invalid payload: %s", validationErrors[0].Message)
	}

	return nil
}

func (c controller) handleAlive(context.Context, *websocket.Conn, json.RawMessage) error {
	return nil
}

type UpdateSourceInput struct {
	URL string `json:"url" validate:"required"`
}

func (c controller) handleUpdateSource(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdateSourceInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SetSource(input.URL)

	return nil
}

type UpdatePlaybackInput struct {
	IsPlaying bool `json:"is_playing"`
}

func (c controller) handleUpdatePlayback(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdatePlaybackInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SetPlaying(input.IsPlaying)

	return nil
}

type UpdateMuteInput struct {
	IsMuted bool `json:"is_muted"`
}

func (c controller) handleUpdateMute(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdateMuteInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SetMuted(input.IsMuted)

	return nil
}

type UpdateLoopInput struct {
	LoopEnabled bool `json:"loop_enabled"`
}

func (c controller) handleUpdateLoop(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdateLoopInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SetLoop(input.LoopEnabled)

	return nil
}

type SeekInput struct {
	Seconds float64 `json:"seconds" validate:"required,gt=0"`
}

func (c controller) handleSeekBack(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input SeekInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SeekBack(input.Seconds)

	return nil
}

func (c controller) handleSeekForward(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input SeekInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SeekForward(input.Seconds)

	return nil
}

type StartAtInput struct {
	Seconds float64 `json:"seconds" validate:"gte=0"`
}

func (c controller) handleStartAt(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input StartAtInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SetStartAt(input.Seconds)

	return nil
}

type UpdateResizeModeInput struct {
	Mode string `json:"mode" validate:"required,oneof=aspect-fit stretch aspect-fill"`
}

func (c controller) handleUpdateResizeMode(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdateResizeModeInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	mode, err := player.ParseResizeMode(input.Mode)
	if err != nil {
		return err
	}
	c.playerHost.SetResizeMode(mode)

	return nil
}

type UpdateControlsInput struct {
	ShowControls bool `json:"show_controls"`
}

func (c controller) handleUpdateControls(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdateControlsInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SetControlsVisible(input.ShowControls)

	return nil
}

type UpdatePipInput struct {
	Allowed bool `json:"allowed"`
}

func (c controller) handleUpdatePip(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdatePipInput
	if err := c.unmarshalAndValidate(payload, &input); err != nil {
		return err
	}

	c.playerHost.SetPictureInPictureAllowed(input.Allowed)

	return nil
}
