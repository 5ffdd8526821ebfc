package profile

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/haivivi/callbridge/pkg/storage"
)

const docExt = ".yaml"

// FileStore keeps one YAML document per agent under dir in a
// storage.FileStore.
type FileStore struct {
	fs  storage.FileStore
	dir string
}

// NewFileStore returns a profile store over fs rooted at dir.
func NewFileStore(fs storage.FileStore, dir string) *FileStore {
	return &FileStore{fs: fs, dir: strings.Trim(dir, "/")}
}

func (s *FileStore) path(id string) string {
	return path.Join(s.dir, id+docExt)
}

// Get reads and decodes the profile of agentID.
func (s *FileStore) Get(ctx context.Context, agentID string) (*Profile, error) {
	if err := ValidateID(agentID); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	data, err := s.fs.Read(ctx, s.path(agentID))
	if storage.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, agentID)
	}
	if err != nil {
		return nil, fmt.Errorf("profile: read %s: %w", agentID, err)
	}
	return Decode(agentID, data)
}

// Decode parses a YAML profile document. A missing id is taken from
// agentID; a conflicting one is an error.
func Decode(agentID string, data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("profile: decode %s: %w", agentID, err)
	}
	if p.ID == "" {
		p.ID = agentID
	}
	if agentID != "" && p.ID != agentID {
		return nil, fmt.Errorf("%w: document id %q stored as %q", ErrInvalid, p.ID, agentID)
	}
	return &p, nil
}

// Put validates and writes p, replacing any existing profile.
func (s *FileStore) Put(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("profile: encode %s: %w", p.ID, err)
	}
	if err := s.fs.Write(ctx, s.path(p.ID), data); err != nil {
		return fmt.Errorf("profile: write %s: %w", p.ID, err)
	}
	return nil
}

// Delete removes the profile of agentID. Deleting a missing profile
// returns an error wrapping ErrNotFound.
func (s *FileStore) Delete(ctx context.Context, agentID string) error {
	if _, err := s.Get(ctx, agentID); err != nil {
		return err
	}
	return s.fs.Delete(ctx, s.path(agentID))
}

// List returns all profiles sorted by ID.
func (s *FileStore) List(ctx context.Context) ([]*Profile, error) {
	names, err := s.fs.List(ctx, s.dir)
	if err != nil {
		return nil, fmt.Errorf("profile: list: %w", err)
	}
	var out []*Profile
	for _, name := range names {
		id, ok := strings.CutSuffix(name, docExt)
		if !ok {
			continue
		}
		p, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

var _ Manager = (*FileStore)(nil)
