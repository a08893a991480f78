package business

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/phone"
	"salesbot_backend/platform/validator"
)

// FileSource serves snapshots parsed from a YAML document holding a
// "businesses" list. It is used to seed Postgres and in tests.
type FileSource struct {
	byChannel map[string]Business
	order     []string
}

type fileDocument struct {
	Businesses []Business `yaml:"businesses"`
}

// LoadFile parses and validates a YAML business file.
func LoadFile(path string) (*FileSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read business file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML builds a FileSource from YAML bytes.
func ParseYAML(data []byte) (*FileSource, error) {
	var doc fileDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse business file: %w", err)
	}

	v := validator.New()
	src := &FileSource{byChannel: make(map[string]Business, len(doc.Businesses))}
	for i, b := range doc.Businesses {
		if err := v.Check(b); err != nil {
			return nil, fmt.Errorf("business #%d: %w", i+1, err)
		}
		b.ChannelID = phone.CanonicalID(b.ChannelID)
		if _, dup := src.byChannel[b.ChannelID]; dup {
			return nil, fmt.Errorf("business #%d: duplicate channel %s", i+1, b.ChannelID)
		}
		src.byChannel[b.ChannelID] = b
		src.order = append(src.order, b.ChannelID)
	}
	return src, nil
}

// Get implements Source.
func (s *FileSource) Get(_ context.Context, channelID string) (Business, error) {
	b, ok := s.byChannel[phone.CanonicalID(channelID)]
	if !ok {
		return Business{}, apperr.NotFound(businessNotFoundMessage)
	}
	return b, nil
}

// All returns the snapshots in file order.
func (s *FileSource) All() []Business {
	out := make([]Business, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.byChannel[id])
	}
	return out
}

// Upserter persists a snapshot.
type Upserter interface {
	Upsert(ctx context.Context, b Business) error
}

// Seed writes every snapshot of src into dst.
func Seed(ctx context.Context, src *FileSource, dst Upserter) (int, error) {
	for i, b := range src.All() {
		if err := dst.Upsert(ctx, b); err != nil {
			return i, err
		}
	}
	return len(src.order), nil
}

// Compile-time check that FileSource implements Source.
var _ Source = (*FileSource)(nil)
