package alert

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"polybin/internal/models"
)

const (
	DefaultPlayer    = "mpg123"
	PleaseEmptySound = "please_empty.mp3"
	RemoveSound      = "remove.mp3"
)

var categorySounds = map[models.WasteCategory]string{
	models.Biodegradable:    "biodegradable.mp3",
	models.NonBiodegradable: "non_biodegradable.mp3",
	models.Recyclable:       "recyclable.mp3",
	models.Hazardous:        "hazardous.mp3",
}

// Backend plays one sound file to completion
type Backend interface {
	Init(ctx context.Context) error
	Play(ctx context.Context, file string) error
}

// SoundLibrary resolves cue files under a directory
type SoundLibrary struct {
	Dir string
}

// Category returns the path of the category announcement
func (l SoundLibrary) Category(c models.WasteCategory) (string, error) {
	name, ok := categorySounds[c]
	if !ok {
		return "", fmt.Errorf("no sound for category %d", int(c))
	}
	return filepath.Join(l.Dir, name), nil
}

// File returns the path of a named cue
func (l SoundLibrary) File(name string) string {
	return filepath.Join(l.Dir, name)
}

// Missing lists the expected cue files that are not on disk
func (l SoundLibrary) Missing() []string {
	var missing []string
	names := []string{PleaseEmptySound, RemoveSound}
	for _, c := range models.AllCategories {
		names = append(names, categorySounds[c])
	}
	for _, n := range names {
		if _, err := os.Stat(l.File(n)); err != nil {
			missing = append(missing, n)
		}
	}
	return missing
}

// CommandBackend plays files with an external command line player
type CommandBackend struct {
	Command string
	Args    []string

	path string
}

// NewCommandBackend creates a backend for the given player, mpg123 if empty
func NewCommandBackend(command string) *CommandBackend {
	if command == "" {
		command = DefaultPlayer
	}
	return &CommandBackend{Command: command, Args: []string{"-q"}}
}

// Init locates the player binary
func (b *CommandBackend) Init(ctx context.Context) error {
	path, err := exec.LookPath(b.Command)
	if err != nil {
		return fmt.Errorf("failed to find audio player %q: %w", b.Command, err)
	}
	b.path = path
	return nil
}

// Play runs the player and waits for it to finish
func (b *CommandBackend) Play(ctx context.Context, file string) error {
	if b.path == "" {
		return fmt.Errorf("audio player not initialized")
	}
	args := append(append([]string{}, b.Args...), file)
	out, err := exec.CommandContext(ctx, b.path, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("failed to play %s: %w (%s)", filepath.Base(file), err, out)
	}
	return nil
}
