package language

// Auto asks the transcription provider to detect the language itself.
const Auto = "auto"

// Language pairs an ISO 639-1 code with its English name.
type Language struct {
	Code string
	Name string
}

// languages is the allowlist of transcription languages, derived from
// the set OpenAI Whisper supports.
var languages = []Language{
	{Code: "af", Name: "Afrikaans"},
	{Code: "ar", Name: "Arabic"},
	{Code: "bg", Name: "Bulgarian"},
	{Code: "ca", Name: "Catalan"},
	{Code: "cs", Name: "Czech"},
	{Code: "da", Name: "Danish"},
	{Code: "de", Name: "German"},
	{Code: "el", Name: "Greek"},
	{Code: "en", Name: "English"},
	{Code: "es", Name: "Spanish"},
	{Code: "et", Name: "Estonian"},
	{Code: "fa", Name: "Persian"},
	{Code: "fi", Name: "Finnish"},
	{Code: "fr", Name: "French"},
	{Code: "he", Name: "Hebrew"},
	{Code: "hi", Name: "Hindi"},
	{Code: "hr", Name: "Croatian"},
	{Code: "hu", Name: "Hungarian"},
	{Code: "id", Name: "Indonesian"},
	{Code: "is", Name: "Icelandic"},
	{Code: "it", Name: "Italian"},
	{Code: "ja", Name: "Japanese"},
	{Code: "ko", Name: "Korean"},
	{Code: "lt", Name: "Lithuanian"},
	{Code: "lv", Name: "Latvian"},
	{Code: "ms", Name: "Malay"},
	{Code: "nl", Name: "Dutch"},
	{Code: "no", Name: "Norwegian"},
	{Code: "pl", Name: "Polish"},
	{Code: "pt", Name: "Portuguese"},
	{Code: "ro", Name: "Romanian"},
	{Code: "ru", Name: "Russian"},
	{Code: "sk", Name: "Slovak"},
	{Code: "sl", Name: "Slovenian"},
	{Code: "sv", Name: "Swedish"},
	{Code: "th", Name: "Thai"},
	{Code: "tr", Name: "Turkish"},
	{Code: "uk", Name: "Ukrainian"},
	{Code: "ur", Name: "Urdu"},
	{Code: "vi", Name: "Vietnamese"},
	{Code: "zh", Name: "Chinese"},
}

var byCode = func() map[string]Language {
	m := make(map[string]Language, len(languages))
	for _, l := range languages {
		m[l.Code] = l
	}
	return m
}()

// Valid reports whether code is a supported ISO 639-1 language code.
// Auto is not a code; callers decide whether to accept it.
func Valid(code string) bool {
	_, ok := byCode[code]
	return ok
}

// Name returns the English name for a code, or the code itself when
// unknown.
func Name(code string) string {
	if l, ok := byCode[code]; ok {
		return l.Name
	}
	return code
}

// All returns the supported languages in a stable order.
func All() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}
