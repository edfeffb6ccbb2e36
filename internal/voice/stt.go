/**
* Name: 			stt.go
* Description: 		Google STT 연결
* Workflow: 		짧은 녹음(WAV/FLAC)을 텍스트로 변환, 튜터 주제 음성 입력용
 */

package voice

import (
	"context"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

var ErrNoSpeech = errors.New("voice: no speech recognized")

type STTClient struct {
	client       *speech.Client
	languageCode string
}

func NewSTTClient(ctx context.Context, credentialsFile, languageCode string) (*STTClient, error) {
	client, err := speech.NewClient(ctx, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("NewSTTClient(): failed to create speech client: %w", err)
	}
	return &STTClient{client: client, languageCode: languageCode}, nil
}

// Transcribe recognizes a short WAV or FLAC clip; the encoding is read from
// the file header.
func (s *STTClient) Transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := s.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:     speechpb.RecognitionConfig_ENCODING_UNSPECIFIED,
			LanguageCode: s.languageCode,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("STTClient.Transcribe(): %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) == 0 {
			continue
		}
		parts = append(parts, strings.TrimSpace(result.Alternatives[0].Transcript))
	}
	text := strings.TrimSpace(strings.Join(parts, " "))
	if text == "" {
		return "", ErrNoSpeech
	}
	return text, nil
}

func (s *STTClient) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
