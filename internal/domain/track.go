package domain

// AudioFeatures holds the per-track audio analysis signal. Every field is
// independently nullable: a provider may know the tempo of a track but not
// its valence.
type AudioFeatures struct {
	Energy           *float64 `json:"energy,omitempty"`           // 0..1
	Valence          *float64 `json:"valence,omitempty"`          // 0..1
	Danceability     *float64 `json:"danceability,omitempty"`     // 0..1
	Acousticness     *float64 `json:"acousticness,omitempty"`     // 0..1
	Instrumentalness *float64 `json:"instrumentalness,omitempty"` // 0..1
	Liveness         *float64 `json:"liveness,omitempty"`         // 0..1
	Speechiness      *float64 `json:"speechiness,omitempty"`      // 0..1
	Tempo            *float64 `json:"tempo,omitempty"`            // 0..250 BPM
	Loudness         *float64 `json:"loudness,omitempty"`         // -60..0 dB
	Key              *int     `json:"key,omitempty"`              // -1..11, -1 = unknown
	Mode             *int     `json:"mode,omitempty"`             // 0 minor, 1 major
}

// HasAny reports whether at least one feature value is present.
func (f *AudioFeatures) HasAny() bool {
	if f == nil {
		return false
	}
	return f.Energy != nil || f.Valence != nil || f.Danceability != nil ||
		f.Acousticness != nil || f.Instrumentalness != nil || f.Liveness != nil ||
		f.Speechiness != nil || f.Tempo != nil || f.Loudness != nil ||
		f.Key != nil || f.Mode != nil
}

// Lyrics is the per-track lyrics signal. Absence means instrumental.
type Lyrics struct {
	Body string `json:"body"`
}

// Interpretation is the LLM reading of a track's lyrics.
type Interpretation struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// ShortDescription is a compact (≈50 word) track summary, generated
// best-effort: a nil value never blocks ingestion.
type ShortDescription struct {
	Text         string `json:"text"`
	Model        string `json:"model"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// TrackDocument is the composite unit stored in the index. Identifiers are
// always present; every enrichment field is nullable.
type TrackDocument struct {
	ID               string            `json:"id"`
	ISRC             ISRC              `json:"isrc"`
	Title            string            `json:"title"`
	Artist           string            `json:"artist"`
	Album            string            `json:"album"`
	ArtworkURL       string            `json:"artwork_url,omitempty"`
	Lyrics           *Lyrics           `json:"lyrics,omitempty"`
	Interpretation   *Interpretation   `json:"interpretation,omitempty"`
	ShortDescription *ShortDescription `json:"short_description,omitempty"`
	AudioFeatures    *AudioFeatures    `json:"audio_features,omitempty"`
}

// SearchableText assembles the lexical side of the document: whatever
// textual signal is available, joined for term indexing.
func (d *TrackDocument) SearchableText() string {
	text := d.Title + " " + d.Artist + " " + d.Album
	if d.Interpretation != nil {
		text += " " + d.Interpretation.Text
	}
	if d.ShortDescription != nil {
		text += " " + d.ShortDescription.Text
	}
	return text
}

// IngestionRequest asks for one track to be ingested. Requests are keyed and
// deduplicated by ISRC; Force bypasses the idempotency window.
type IngestionRequest struct {
	ISRC       ISRC   `json:"isrc"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	ArtworkURL string `json:"artwork_url,omitempty"`
	Priority   int    `json:"priority,omitempty"`
	Force      bool   `json:"force,omitempty"`
}

// IngestionCompletion is the summary signal published after a successful
// pipeline run, for downstream consumers and telemetry.
type IngestionCompletion struct {
	ISRC                ISRC `json:"isrc"`
	HasLyrics           bool `json:"has_lyrics"`
	HasAudioFeatures    bool `json:"has_audio_features"`
	HasInterpretation   bool `json:"has_interpretation"`
	HasShortDescription bool `json:"has_short_description"`
	EmbeddingDimension  int  `json:"embedding_dimension"`
}

// IngestionFailure reports a pipeline step whose retry budget is exhausted.
// Never silently dropped.
type IngestionFailure struct {
	ISRC    ISRC   `json:"isrc"`
	Step    string `json:"step"`
	Message string `json:"message"`
	Retries int    `json:"retries"`
}
