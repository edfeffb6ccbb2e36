/**
* Name: 			tts.go
* Description: 		Google TTS 연결
* Workflow: 		튜터 설명 텍스트를 MP3 오디오로 변환 (청각형 학습자용 읽어주기)
 */

package voice

import (
	"context"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// Google TTS 요청 한 번에 허용되는 입력 크기
const maxTTSInputBytes = 5000

type TTSClient struct {
	client       *texttospeech.Client
	languageCode string
}

func NewTTSClient(ctx context.Context, credentialsFile, languageCode string) (*TTSClient, error) {
	client, err := texttospeech.NewClient(ctx, clientOptions(credentialsFile)...)
	if err != nil {
		return nil, fmt.Errorf("NewTTSClient(): failed to create TTS client: %w", err)
	}
	return &TTSClient{client: client, languageCode: languageCode}, nil
}

// Synthesize converts text to MP3 audio. Text longer than the API limit is cut.
func (t *TTSClient) Synthesize(ctx context.Context, text string) ([]byte, error) {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: truncateUTF8(text, maxTTSInputBytes)},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: t.languageCode,
			SsmlGender:   texttospeechpb.SsmlVoiceGender_FEMALE,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	resp, err := t.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("TTSClient.Synthesize(): %w", err)
	}
	return resp.AudioContent, nil
}

func (t *TTSClient) Close() error {
	if t.client != nil {
		return t.client.Close()
	}
	return nil
}

func clientOptions(credentialsFile string) []option.ClientOption {
	if credentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(credentialsFile)}
}

// 멀티바이트 문자가 잘리지 않도록 rune 경계에서 자름
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := 0
	for i := range s {
		if i > limit {
			break
		}
		cut = i
	}
	return s[:cut]
}
