package model

import (
	"fmt"
	"strings"
)

// Emotion identifies one of the seven scored emotions.
type Emotion int

const (
	Anger Emotion = iota
	Joy
	Fear
	Contempt
	Sadness
	Disgust
	Surprise

	NumEmotions
)

var emotionNames = [NumEmotions]string{
	"anger", "joy", "fear", "contempt", "sadness", "disgust", "surprise",
}

// Emotions lists every emotion in canonical order.
func Emotions() []Emotion {
	out := make([]Emotion, NumEmotions)
	for i := range out {
		out[i] = Emotion(i)
	}
	return out
}

// String returns the lowercase emotion name.
func (e Emotion) String() string {
	if e < 0 || e >= NumEmotions {
		return "unknown"
	}
	return emotionNames[e]
}

// Valid reports whether e is one of the seven emotions.
func (e Emotion) Valid() bool {
	return e >= 0 && e < NumEmotions
}

// ParseEmotion resolves a case-insensitive emotion name.
func ParseEmotion(s string) (Emotion, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, n := range emotionNames {
		if n == s {
			return Emotion(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEmotion, s)
}

// MarshalText implements encoding.TextMarshaler so emotions serialise by name,
// including as JSON map keys.
func (e Emotion) MarshalText() ([]byte, error) {
	if !e.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEmotion, int(e))
	}
	return []byte(e.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (e *Emotion) UnmarshalText(b []byte) error {
	v, err := ParseEmotion(string(b))
	if err != nil {
		return err
	}
	*e = v
	return nil
}
