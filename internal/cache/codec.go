package cache

import (
	"encoding/json"
	"fmt"

	"github.com/vietddude/profilecache/internal/core/domain"
)

func encode[T any](e *domain.Entry[T]) (string, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return "", fmt.Errorf("failed to marshal entry: %w", err)
	}
	return string(data), nil
}

func decode[T any](blob string) (*domain.Entry[T], error) {
	var e domain.Entry[T]
	if err := json.Unmarshal([]byte(blob), &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}
