package sparkai

import (
	"context"
	"encoding/json"
	"io"
)

// VoicesService handles voice catalog and cloning calls
type VoicesService struct {
	client *Client
}

// VoiceCloneParams represents parameters for cloning a voice
type VoiceCloneParams struct {
	Name        string
	Description string
	Filename    string
	Sample      io.Reader
}

// voiceList accepts a bare array or {"voices": [...]}
type voiceList []Voice

func (l *voiceList) UnmarshalJSON(data []byte) error {
	var bare []Voice
	if err := json.Unmarshal(data, &bare); err == nil {
		*l = bare
		return nil
	}
	var wrapped struct {
		Voices []Voice `json:"voices"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	*l = wrapped.Voices
	return nil
}

// List returns the voices available to the user
func (s *VoicesService) List(ctx context.Context) ([]Voice, error) {
	var result voiceList
	err := s.client.Request(ctx, RequestOptions{
		Method: "GET",
		Path:   "/api/voices",
	}, &result)
	return result, err
}

// Clone creates a voice clone from an audio sample
func (s *VoicesService) Clone(ctx context.Context, params VoiceCloneParams) (*Voice, error) {
	var result Voice
	form := map[string]string{"name": params.Name}
	if params.Description != "" {
		form["description"] = params.Description
	}
	err := s.client.Request(ctx, RequestOptions{
		Method: "POST",
		Path:   "/api/clone-voice",
		Form:   form,
		Files:  []FilePart{{Field: "audio", Filename: params.Filename, Content: params.Sample}},
	}, &result)
	if result.Name == "" {
		result.Name = params.Name
	}
	return &result, err
}
