package domain

// Mood selects a tone-announcing prefix for the spoken text.
type Mood string

const (
	MoodNone    Mood = ""
	MoodCalm    Mood = "calm"
	MoodJolly   Mood = "jolly"
	MoodSerious Mood = "serious"
)

// NarrationStyle selects how much of the text is spoken and in what shape.
type NarrationStyle string

const (
	NarrationNone        NarrationStyle = ""
	NarrationShort       NarrationStyle = "short"
	NarrationBullet      NarrationStyle = "bullet"
	NarrationDescriptive NarrationStyle = "descriptive"
)

// SpeechPolicy names the speech output strategy in use.
type SpeechPolicy string

const (
	SpeechPolicyRemote   SpeechPolicy = "remote"
	SpeechPolicyOnDevice SpeechPolicy = "ondevice"
)

// PlaybackState models the speech output lifecycle as seen by the page.
type PlaybackState string

const (
	PlaybackStateIdle     PlaybackState = "idle"
	PlaybackStateSpeaking PlaybackState = "speaking"
	PlaybackStatePaused   PlaybackState = "paused"
)

// ListeningState models the microphone transcription lifecycle.
type ListeningState string

const (
	ListeningStateIdle      ListeningState = "idle"
	ListeningStateListening ListeningState = "listening"
)

// NoticeCode identifies user-visible notices that block until acknowledged.
type NoticeCode string

const (
	NoticeInvalidFile      NoticeCode = "invalid_file"
	NoticeNoDocument       NoticeCode = "no_document"
	NoticeDocumentLoaded   NoticeCode = "document_loaded"
	NoticeExtractionFailed NoticeCode = "extraction_failed"
	NoticeUnsupported      NoticeCode = "unsupported"
	NoticeStartup          NoticeCode = "startup"
)

// Recognition error codes reported in the mic transcript.
const (
	RecognitionErrorNetwork      = "network"
	RecognitionErrorAudioCapture = "audio-capture"
	RecognitionErrorNotAllowed   = "not-allowed"
	RecognitionErrorService      = "service"
	RecognitionErrorAborted      = "aborted"
)

// Display texts written into the two transcript regions.
const (
	TextSpeakingBegins     = "[Speaking begins...]"
	TextSpeakingRemote     = "[Speaking...]"
	TextDoneSpeaking       = "\n\n[Done speaking]"
	TextSpeechStopped      = "[Speech stopped]"
	TextNoAudioGenerated   = "Error: No audio generated."
	TextSynthesisFailed    = "Error connecting to speech service."
	TextPlaybackFailed     = "Error: playback failed."
	TextListening          = "[Listening...]"
	TextStoppedListening   = "\n\n[Stopped Listening]"
	TextRecognitionMissing = "Speech recognition is not supported on this system."
)

// Document is the text extracted from the most recent successful upload.
type Document struct {
	Name  string `json:"name"`
	Pages int    `json:"pages"`
	Text  string `json:"text"`
}

// Upload is a file handed over by the page or the native file dialog.
type Upload struct {
	Name      string
	MediaType string
	Data      []byte
}

// SpeechRequest is one playback request after transformation.
type SpeechRequest struct {
	Text     string
	Language string
	Rate     float64
}

// BoundaryEvent marks the span of text the on-device synthesizer just spoke.
// Offsets count UTF-16 code units.
type BoundaryEvent struct {
	CharIndex  int `json:"charIndex"`
	CharLength int `json:"charLength"`
}

// RecognitionResult is one recognition hypothesis slot.
type RecognitionResult struct {
	Transcript string `json:"transcript"`
	Final      bool   `json:"final"`
}

// RecognitionEvent carries the results changed since ResultIndex.
// Results[0] belongs at ResultIndex, Results[1] at ResultIndex+1, and so on.
type RecognitionEvent struct {
	ResultIndex int                 `json:"resultIndex"`
	Results     []RecognitionResult `json:"results"`
}

// Status summarizes the current runtime status.
type Status struct {
	Playback             PlaybackState  `json:"playback"`
	Listening            ListeningState `json:"listening"`
	Policy               SpeechPolicy   `json:"policy"`
	DocumentLoaded       bool           `json:"documentLoaded"`
	RecognitionSupported bool           `json:"recognitionSupported"`
	Speed                float64        `json:"speed"`
	Language             string         `json:"language"`
	Message              string         `json:"message,omitempty"`
}
