package middleware

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/utopium/chatflow/pkg/domain"
	"github.com/utopium/chatflow/pkg/ports"
)

// SealedPrefix marks a value the PII middleware encrypted.
const SealedPrefix = "pii:"

// fileKey is the pattern subject for the attached file's bytes.
const fileKey = "file"

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
	config   EncryptionConfig
}

// NewPIIMiddleware creates a middleware that seals collected answers whose field
// name matches one of the patterns, and the bytes of attached files when "file"
// matches. Sealed values are AES-GCM encrypted under config and opened again on
// Load, so the conversation always sees what the user typed. The in-memory
// snapshot is never modified.
func NewPIIMiddleware(patternStrings []string, config EncryptionConfig) Middleware {
	if len(config.ActiveKey) != 32 {
		panic("active key must be 32 bytes (AES-256)")
	}
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns, config: config}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, snap *domain.Snapshot) error {
	cloned := snap.Clone()
	for k, v := range cloned.State.Data {
		if !m.matches(k) {
			continue
		}
		ciphertext, err := encrypt([]byte(v), m.config.ActiveKey)
		if err != nil {
			return fmt.Errorf("failed to seal %s: %w", k, err)
		}
		cloned.State.Data[k] = SealedPrefix + base64.StdEncoding.EncodeToString(ciphertext)
	}

	if m.matches(fileKey) {
		for _, f := range []*domain.Attachment{cloned.State.File, cloned.State.RefFile} {
			if f == nil || len(f.Data) == 0 {
				continue
			}
			ciphertext, err := encrypt(f.Data, m.config.ActiveKey)
			if err != nil {
				return fmt.Errorf("failed to seal %s: %w", f.Name, err)
			}
			f.Data = append([]byte(SealedPrefix), ciphertext...)
		}
	}

	return m.next.Save(ctx, sessionID, cloned)
}

// Load opens every sealed value. A value that cannot be opened is reported as
// corrupt.
func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.Snapshot, error) {
	snap, err := m.next.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	snap = snap.Clone()

	for k, v := range snap.State.Data {
		encoded, ok := strings.CutPrefix(v, SealedPrefix)
		if !ok {
			continue
		}
		ciphertext, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("failed to decode sealed %s: %w", k, errors.Join(domain.ErrCorruptState, err))
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to open sealed %s: %w", k, errors.Join(domain.ErrCorruptState, err))
		}
		snap.State.Data[k] = string(plain)
	}

	for _, f := range []*domain.Attachment{snap.State.File, snap.State.RefFile} {
		if f == nil {
			continue
		}
		ciphertext, ok := bytes.CutPrefix(f.Data, []byte(SealedPrefix))
		if !ok {
			continue
		}
		plain, err := decryptWithRotation(ciphertext, m.config.ActiveKey, m.config.FallbackKeys)
		if err != nil {
			return nil, fmt.Errorf("failed to open sealed %s: %w", f.Name, errors.Join(domain.ErrCorruptState, err))
		}
		f.Data = plain
	}

	return snap, nil
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) matches(key string) bool {
	for _, p := range m.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}
