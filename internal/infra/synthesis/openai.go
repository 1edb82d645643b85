package synthesis

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/sashabaranov/go-openai"

	"github.com/profjobell/studio-sub000/internal/domain/reports"
)

// The speech endpoint rejects inputs beyond this length; longer assemblies
// are truncated rather than failed.
const maxSpeechInput = 4096

// Synthesizer renders assembled report text to audio via the OpenAI speech
// endpoint and stores the result in the artifact store.
type Synthesizer struct {
	client *openai.Client
	store  reports.ArtifactStore
	model  string
	voice  string
}

func New(apiKey, model, voice string, store reports.ArtifactStore) *Synthesizer {
	return &Synthesizer{
		client: openai.NewClient(apiKey),
		store:  store,
		model:  model,
		voice:  voice,
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, text string, treatment reports.PodcastTreatment) (string, error) {
	if len(text) == 0 {
		return "", fmt.Errorf("no text to synthesize")
	}
	if len(text) > maxSpeechInput {
		text = text[:maxSpeechInput]
	}

	model := openai.SpeechModel(s.model)
	if model == "" {
		model = openai.TTSModel1
		if treatment == reports.TreatmentDeep {
			model = openai.TTSModel1HD
		}
	}
	voice := openai.SpeechVoice(s.voice)
	if voice == "" {
		voice = openai.VoiceAlloy
	}

	resp, err := s.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          model,
		Input:          text,
		Voice:          voice,
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create speech: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return "", fmt.Errorf("failed to read speech response: %w", err)
	}

	key := fmt.Sprintf("podcasts/%s.mp3", uuid.New().String())
	return s.store.Upload(ctx, key, bytes.NewReader(audio), int64(len(audio)), "audio/mpeg")
}
