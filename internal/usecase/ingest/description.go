package ingest

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// maxDescriptionWords bounds every short description tier.
const maxDescriptionWords = 50

const summaryPrompt = `Summarize the track interpretation below in at most 50 words,
as a single engaging sentence or two for a music discovery app. Respond with
only the summary text.

Interpretation:
%s`

// describe builds the short description through a three-tier fallback keyed
// on available signal: summarize the interpretation, describe the audio
// features, or fall back to plain metadata. Failures are logged and yield
// nil; this step never aborts the pipeline.
func (w *Workflow) describe(
	ctx context.Context, log *zap.Logger,
	req domain.IngestionRequest, interp *domain.Interpretation, features *domain.AudioFeatures,
) *domain.ShortDescription {
	if interp != nil {
		desc, err := w.summarize(ctx, interp)
		if err != nil {
			log.Warn("Short description generation failed, storing null",
				zap.String("step", StepShortDescription),
				zap.Error(err))
			return nil
		}
		return desc
	}

	if features.HasAny() {
		return &domain.ShortDescription{Text: describeFeatures(req, features)}
	}

	return &domain.ShortDescription{Text: clipWords(fmt.Sprintf(
		"%s by %s, from the album %s.", req.Title, req.Artist, req.Album), maxDescriptionWords)}
}

func (w *Workflow) summarize(ctx context.Context, interp *domain.Interpretation) (*domain.ShortDescription, error) {
	sctx := ctx
	if w.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, w.cfg.StepTimeout)
		defer cancel()
	}

	res, err := w.generator.Generate(sctx, fmt.Sprintf(summaryPrompt, interp.Text), w.cfg.MaxOutputTokens)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return nil, fmt.Errorf("empty summary")
	}
	return &domain.ShortDescription{
		Text:         clipWords(text, maxDescriptionWords),
		Model:        res.Model,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}, nil
}

// describeFeatures renders a qualitative description from whatever feature
// values are present. Purely local, cannot fail.
func describeFeatures(req domain.IngestionRequest, f *domain.AudioFeatures) string {
	var qualities []string

	if f.Energy != nil {
		switch {
		case *f.Energy >= 0.7:
			qualities = append(qualities, "high-energy")
		case *f.Energy <= 0.3:
			qualities = append(qualities, "calm")
		}
	}
	if f.Valence != nil {
		switch {
		case *f.Valence >= 0.7:
			qualities = append(qualities, "upbeat")
		case *f.Valence <= 0.3:
			qualities = append(qualities, "melancholic")
		}
	}
	if f.Acousticness != nil && *f.Acousticness >= 0.7 {
		qualities = append(qualities, "acoustic")
	}
	if f.Instrumentalness != nil && *f.Instrumentalness >= 0.7 {
		qualities = append(qualities, "instrumental")
	}
	if f.Danceability != nil && *f.Danceability >= 0.7 {
		qualities = append(qualities, "danceable")
	}

	adjectives := "A"
	if len(qualities) > 0 {
		adjectives = "A " + strings.Join(qualities, ", ")
	}

	text := fmt.Sprintf("%s track by %s", adjectives, req.Artist)
	if req.Title != "" {
		text = fmt.Sprintf("%s: %q", text, req.Title)
	}
	if f.Tempo != nil {
		text = fmt.Sprintf("%s at %.0f BPM", text, *f.Tempo)
	}
	return clipWords(text+".", maxDescriptionWords)
}

func clipWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:max], " ")
}
