// Package speech maps browser speech-engine error codes to the guidance
// messages shown in the conversation. Audio never reaches the server; clients
// report only the error code and continue in text mode.
package speech

// ErrorCode is the code reported by a browser speech recognition or
// synthesis engine.
type ErrorCode string

const (
	CodeNotAllowed           ErrorCode = "not-allowed"
	CodeServiceNotAllowed    ErrorCode = "service-not-allowed"
	CodeLanguageNotSupported ErrorCode = "language-not-supported"
	CodeNetwork              ErrorCode = "network"
	CodeNoSpeech             ErrorCode = "no-speech"
	CodeAudioCapture         ErrorCode = "audio-capture"
	CodeAborted              ErrorCode = "aborted"
	CodeRecognitionMissing   ErrorCode = "recognition-not-supported"
	CodeSynthesisMissing     ErrorCode = "synthesis-not-supported"
	CodeSynthesisLanguage    ErrorCode = "synthesis-language-not-supported"
)

const (
	micDeniedMessage      = "Microphone access was denied. Please enable it in your browser settings to use voice input."
	sttLanguageMessage    = "Speech recognition for the selected language is not supported by your browser."
	networkMessage        = "A network error occurred during speech recognition. Please check your internet connection and try again."
	noSpeechMessage       = "No speech was detected. Please make sure your microphone is unmuted and try speaking again."
	audioCaptureMessage   = "Audio capture failed. Please ensure your microphone is selected, unmuted, and working correctly."
	abortedMessage        = "Speech recognition was aborted. Please try again."
	sttUnsupportedMessage = "Speech recognition is not supported by your browser. Please type your responses."
	ttsUnsupportedMessage = "Speech synthesis is not supported by your browser. AI responses will be text-only."
	ttsLanguageMessage    = "Your browser does not support speech synthesis for the selected language. Displaying text only."
	unknownTemplatePrefix = "An unknown speech recognition error occurred: "
)

// Notice returns the user-facing message for a reported error code. Unknown
// codes get a generic message that includes the code.
func Notice(code ErrorCode) string {
	switch code {
	case CodeNotAllowed, CodeServiceNotAllowed:
		return micDeniedMessage
	case CodeLanguageNotSupported:
		return sttLanguageMessage
	case CodeNetwork:
		return networkMessage
	case CodeNoSpeech:
		return noSpeechMessage
	case CodeAudioCapture:
		return audioCaptureMessage
	case CodeAborted:
		return abortedMessage
	case CodeRecognitionMissing:
		return sttUnsupportedMessage
	case CodeSynthesisMissing:
		return ttsUnsupportedMessage
	case CodeSynthesisLanguage:
		return ttsLanguageMessage
	}
	return unknownTemplatePrefix + string(code) + "."
}
