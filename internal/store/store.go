// Package store loads the scene catalog from disk and serves lookups by
// episode, scene id, and character.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"linecoach/internal/script"
)

// ErrNotFound reports a lookup miss. Callers distinguish it from IO and
// decode failures with errors.Is.
var ErrNotFound = errors.New("scene not found")

// FileStore is an in-memory catalog read once from a JSON document. All
// lookups after construction are read-only, so it is safe for concurrent use.
type FileStore struct {
	scenes []script.Scene
	byID   map[string]int
}

type catalogDocument struct {
	Scenes []script.Scene `json:"scenes"`
}

// Open reads and indexes the catalog file.
func Open(path string) (*FileStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scene catalog: %w", err)
	}

	var doc catalogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse scene catalog: %w", err)
	}
	return New(doc.Scenes)
}

// New builds a store from already-decoded scenes, deriving missing scene ids
// and rejecting duplicates.
func New(scenes []script.Scene) (*FileStore, error) {
	s := &FileStore{
		scenes: make([]script.Scene, 0, len(scenes)),
		byID:   make(map[string]int, len(scenes)),
	}
	for i, scene := range scenes {
		if strings.TrimSpace(scene.EpisodeID) == "" {
			return nil, fmt.Errorf("scene[%d]: episode_id is required", i)
		}
		if scene.SceneNumber <= 0 {
			return nil, fmt.Errorf("scene[%d]: scene_number must be >= 1", i)
		}
		if scene.SceneID == "" {
			scene.SceneID = script.SceneID(scene.EpisodeID, scene.SceneNumber)
		}
		if _, exists := s.byID[scene.SceneID]; exists {
			return nil, fmt.Errorf("duplicate scene id: %s", scene.SceneID)
		}
		s.byID[scene.SceneID] = len(s.scenes)
		s.scenes = append(s.scenes, scene)
	}
	return s, nil
}

// SceneByID returns the scene with the given canonical id.
func (s *FileStore) SceneByID(id string) (script.Scene, error) {
	if i, ok := s.byID[id]; ok {
		return s.scenes[i], nil
	}
	return script.Scene{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// SceneByNumber returns a scene addressed by episode and ordinal.
func (s *FileStore) SceneByNumber(episodeID string, sceneNumber int) (script.Scene, error) {
	return s.SceneByID(script.SceneID(episodeID, sceneNumber))
}

// ScenesByEpisodeAndCharacter returns the episode's scenes featuring the
// character, ordered by scene number.
func (s *FileStore) ScenesByEpisodeAndCharacter(episodeID, character string) ([]script.Scene, error) {
	var out []script.Scene
	for _, scene := range s.scenes {
		if !strings.EqualFold(scene.EpisodeID, episodeID) {
			continue
		}
		if !scene.HasCharacter(character) {
			continue
		}
		out = append(out, scene)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: episode %s with %s", ErrNotFound, episodeID, character)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SceneNumber < out[j].SceneNumber })
	return out, nil
}

// Episodes lists the distinct episode ids in the catalog, sorted.
func (s *FileStore) Episodes() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, scene := range s.scenes {
		if _, ok := seen[scene.EpisodeID]; ok {
			continue
		}
		seen[scene.EpisodeID] = struct{}{}
		out = append(out, scene.EpisodeID)
	}
	sort.Strings(out)
	return out
}
