package objectkey

import (
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// Generator defines the interface for pdf unique name generation strategies.
// Every call must return a key that no other call returns.
type Generator interface {
	// GenerateKey creates an object store key for an uploaded file
	GenerateKey(originalName string) string
}

// UUIDGenerator produces flat keys of a random UUID followed by the original
// file extension, e.g. 3f2b...e1.pdf
type UUIDGenerator struct {
	NewID func() uuid.UUID
}

func NewUUIDGenerator() *UUIDGenerator {
	return &UUIDGenerator{NewID: uuid.New}
}

func (g *UUIDGenerator) GenerateKey(originalName string) string {
	id := g.NewID().String()
	if ext := extension(originalName); ext != "" {
		return id + "." + ext
	}
	return id
}

// GitLikeGenerator provides Git-style sharded keys
// pdfs/ab/cd1234ef5678..._original_name.pdf
type GitLikeGenerator struct {
	// ShardLength controls how many characters to use for sharding (default: 2)
	ShardLength int
	NewID       func() uuid.UUID
}

func NewGitLikeGenerator() *GitLikeGenerator {
	return &GitLikeGenerator{
		ShardLength: 2,
		NewID:       uuid.New,
	}
}

func (g *GitLikeGenerator) GenerateKey(originalName string) string {
	id := strings.ReplaceAll(g.NewID().String(), "-", "")

	shardLength := g.ShardLength
	if shardLength <= 0 || shardLength > len(id) {
		shardLength = 2
	}

	shardDir := id[:shardLength]
	filename := id[shardLength:]
	if name := sanitizeFilename(path.Base(originalName)); originalName != "" && name != "" {
		filename = fmt.Sprintf("%s_%s", filename, name)
	}

	return fmt.Sprintf("pdfs/%s/%s", shardDir, filename)
}

// PrefixGenerator places keys of another generator under a fixed prefix,
// e.g. a per-deployment folder inside a shared bucket
type PrefixGenerator struct {
	Prefix        string
	BaseGenerator Generator
}

func NewPrefixGenerator(prefix string, base Generator) *PrefixGenerator {
	return &PrefixGenerator{
		Prefix:        strings.Trim(sanitizePathComponent(prefix), "/"),
		BaseGenerator: base,
	}
}

func (g *PrefixGenerator) GenerateKey(originalName string) string {
	key := g.BaseGenerator.GenerateKey(originalName)
	if g.Prefix == "" {
		return key
	}
	return g.Prefix + "/" + key
}

// FuncGenerator allows users to provide their own key generation function
type FuncGenerator func(originalName string) string

func (f FuncGenerator) GenerateKey(originalName string) string {
	return f(originalName)
}

// New returns the generator for a strategy name: "uuid" (default) or "gitlike".
func New(strategy, prefix string) (Generator, error) {
	var base Generator
	switch strategy {
	case "", "uuid":
		base = NewUUIDGenerator()
	case "gitlike":
		base = NewGitLikeGenerator()
	default:
		return nil, fmt.Errorf("unsupported key strategy: %s", strategy)
	}
	if prefix == "" {
		return base, nil
	}
	return NewPrefixGenerator(prefix, base), nil
}

func extension(name string) string {
	ext := path.Ext(name)
	if len(ext) <= 1 {
		return ""
	}
	return strings.ToLower(sanitizeFilename(ext[1:]))
}

// Helper functions for path sanitization
var unsafeChars = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "_",
)

func sanitizeFilename(filename string) string {
	return unsafeChars.Replace(filename)
}

func sanitizePathComponent(component string) string {
	parts := strings.Split(component, "/")
	for i, part := range parts {
		parts[i] = strings.ToLower(unsafeChars.Replace(part))
	}
	return strings.Join(parts, "/")
}
