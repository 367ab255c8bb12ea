package redis

import (
	"encoding/json"
	"fmt"

	"geoquiz-service/internal/domain"
)

// Codec converts one entity to and from its stored form.
type Codec[T any] interface {
	Encode(v T) ([]byte, error)
	Decode(data []byte) (T, error)
}

// JSONCodec stores entities as JSON documents.
type JSONCodec[T any] struct{}

func (JSONCodec[T]) Encode(v T) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec[T]) Decode(data []byte) (T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decode %T: %w", v, err)
	}
	return v, nil
}

var (
	sessionCodec Codec[domain.QuizSession] = JSONCodec[domain.QuizSession]{}
	stateCodec   Codec[domain.QuizState]   = JSONCodec[domain.QuizState]{}
	quizCodec    Codec[domain.Quiz]        = JSONCodec[domain.Quiz]{}
)
