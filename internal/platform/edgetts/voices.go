package edgetts

import "github.com/phrazzld/edumind-api/internal/domain"

type voiceKey struct {
	accent, gender, style string
}

// voiceTable maps narration preferences to Edge neural voices. Accents with
// a single voice per gender ignore the style.
var voiceTable = map[voiceKey]string{
	{"american", "female", "neutral"}:        "en-US-AriaNeural",
	{"american", "female", "enthusiastic"}:   "en-US-JennyNeural",
	{"american", "female", "formal"}:         "en-US-SaraNeural",
	{"american", "female", "conversational"}: "en-US-AriaNeural",
	{"american", "male", "neutral"}:          "en-US-GuyNeural",
	{"american", "male", "enthusiastic"}:     "en-US-BrianNeural",
	{"american", "male", "formal"}:           "en-US-DavisNeural",
	{"american", "male", "conversational"}:   "en-US-GuyNeural",

	{"british", "female", "neutral"}:        "en-GB-SoniaNeural",
	{"british", "female", "enthusiastic"}:   "en-GB-LibbyNeural",
	{"british", "female", "formal"}:         "en-GB-SoniaNeural",
	{"british", "female", "conversational"}: "en-GB-MaisieNeural",
	{"british", "male", "neutral"}:          "en-GB-RyanNeural",
	{"british", "male", "enthusiastic"}:     "en-GB-ThomasNeural",
	{"british", "male", "formal"}:           "en-GB-RyanNeural",
	{"british", "male", "conversational"}:   "en-GB-AlfieNeural",
}

var accentVoices = map[voiceKey]string{
	{"indian", "female", ""}:     "en-IN-NeerjaNeural",
	{"indian", "male", ""}:       "en-IN-PrabhatNeural",
	{"australian", "female", ""}: "en-AU-NatashaNeural",
	{"australian", "male", ""}:   "en-AU-WilliamNeural",
	{"canadian", "female", ""}:   "en-CA-ClaraNeural",
	{"canadian", "male", ""}:     "en-CA-LiamNeural",
}

// VoiceFor returns the Edge voice for opts, or fallback when no voice matches.
func VoiceFor(opts domain.VoiceOptions, fallback string) string {
	if v, ok := voiceTable[voiceKey{opts.VoiceAccent, opts.VoiceGender, opts.VoiceStyle}]; ok {
		return v
	}
	if v, ok := accentVoices[voiceKey{opts.VoiceAccent, opts.VoiceGender, ""}]; ok {
		return v
	}
	return fallback
}
