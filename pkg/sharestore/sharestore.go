// Package sharestore keeps dispersals, the shares of one encoded payload
// together with their (n, k, length) parameters, on local disk.
package sharestore

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Davincible/rabinida/pkg/ida"
	"github.com/Davincible/rabinida/pkg/secure"
	"github.com/google/uuid"
)

// Status is the custody state of one share of a dispersal.
type Status string

const (
	StatusAvailable   Status = "available"
	StatusMissing     Status = "missing"
	StatusCorrupted   Status = "corrupted"
	StatusDistributed Status = "distributed"
)

// Dispersal is the stored record of one Encode call.
type Dispersal struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	Created        time.Time         `json:"created"`
	Modified       time.Time         `json:"modified"`
	Shares         int               `json:"shares"`
	Threshold      int               `json:"threshold"`
	Length         uint64            `json:"length"`
	Tags           []string          `json:"tags"`
	Metadata       map[string]string `json:"metadata"`
	Entries        []Entry           `json:"entries"`
	ChecksumSHA256 []byte            `json:"checksum_sha256"`
}

// Entry tracks a single share. Share is nil once the share has been handed
// out and is no longer held by the store.
type Entry struct {
	ID           byte       `json:"id"`
	Location     string     `json:"location"`
	Status       Status     `json:"status"`
	LastVerified *time.Time `json:"last_verified,omitempty"`
	Share        *ida.Share `json:"share,omitempty"`
	Notes        string     `json:"notes,omitempty"`
}

// NewDispersal builds a record for the output of an Encode call made with cfg.
func NewDispersal(name string, cfg ida.Config, shares []ida.Share) (*Dispersal, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(shares) != cfg.Shares {
		return nil, fmt.Errorf("expected %d shares, got %d", cfg.Shares, len(shares))
	}

	d := &Dispersal{
		Name:      name,
		Shares:    cfg.Shares,
		Threshold: cfg.Threshold,
		Length:    shares[0].Length,
		Metadata:  make(map[string]string),
		Entries:   make([]Entry, len(shares)),
	}
	for i := range shares {
		s := shares[i]
		d.Entries[i] = Entry{
			ID:     s.ID,
			Status: StatusAvailable,
			Share:  &s,
		}
	}
	return d, nil
}

// Config returns the codec parameters of the dispersal.
func (d *Dispersal) Config() ida.Config {
	return ida.Config{Shares: d.Shares, Threshold: d.Threshold}
}

var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Store manages dispersals in a directory, one JSON file per dispersal.
type Store struct {
	path       string
	dispersals map[string]*Dispersal
	encryption *encryption
	logger     *slog.Logger
}

// Option customizes a Store.
type Option func(*Store)

// WithLogger sets the logger used to report files that fail to load.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithPassphrase enables encryption of the stored files.
func WithPassphrase(p *secure.Passphrase) Option {
	return func(s *Store) {
		s.encryption = &encryption{
			passphrase: p,
			params:     DefaultKDFParams,
		}
	}
}

// WithKDFParams overrides the Argon2id cost. Only meaningful together with
// WithPassphrase.
func WithKDFParams(params KDFParams) Option {
	return func(s *Store) {
		if s.encryption != nil {
			s.encryption.params = params
		}
	}
}

// New opens the store at path, creating the directory when needed.
func New(path string, opts ...Option) (*Store, error) {
	s := &Store{
		path:       path,
		dispersals: make(map[string]*Dispersal),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.encryption != nil {
		if err := s.encryption.init(); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	if err := s.load(); err != nil {
		return nil, fmt.Errorf("failed to load dispersals: %w", err)
	}

	return s, nil
}

// Path returns the store directory.
func (s *Store) Path() string { return s.path }

// Add stores a new dispersal, assigning an ID when it has none.
func (s *Store) Add(d *Dispersal) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	if !idPattern.MatchString(d.ID) {
		return fmt.Errorf("invalid dispersal id '%s'", d.ID)
	}
	if d.Created.IsZero() {
		d.Created = time.Now()
	}
	d.Modified = time.Now()

	return s.put(d)
}

// Get returns the dispersal with the given ID or unique ID prefix.
func (s *Store) Get(id string) (*Dispersal, error) {
	d, err := s.resolve(id)
	if err != nil {
		return nil, err
	}

	sum, err := checksum(d)
	if err != nil {
		return nil, err
	}
	if !secure.ConstantTimeCompare(sum, d.ChecksumSHA256) {
		return nil, fmt.Errorf("dispersal '%s': checksum mismatch - record may be corrupted", d.ID)
	}

	return d, nil
}

// List returns all dispersals carrying every tag in tags, newest first.
func (s *Store) List(tags []string) []*Dispersal {
	var result []*Dispersal
	for _, d := range s.dispersals {
		if len(tags) == 0 || hasAllTags(d, tags) {
			result = append(result, d)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Created.After(result[j].Created)
	})
	return result
}

// Search matches query against name, description, tags and metadata.
// Exact name matches come first.
func (s *Store) Search(query string) []*Dispersal {
	query = strings.ToLower(query)

	var results []*Dispersal
	for _, d := range s.dispersals {
		if matchesQuery(d, query) {
			results = append(results, d)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		iExact := strings.ToLower(results[i].Name) == query
		jExact := strings.ToLower(results[j].Name) == query
		if iExact != jExact {
			return iExact
		}
		return results[i].Created.After(results[j].Created)
	})
	return results
}

// UpdateStatus changes the status of one share. Marking a share distributed
// records location and drops the share body from the store.
func (s *Store) UpdateStatus(id string, shareID byte, status Status, location string) error {
	d, err := s.Get(id)
	if err != nil {
		return err
	}

	for i := range d.Entries {
		e := &d.Entries[i]
		if e.ID != shareID {
			continue
		}

		e.Status = status
		if location != "" {
			e.Location = location
		}
		if status == StatusDistributed {
			e.Share = nil
		}
		d.Modified = time.Now()
		return s.put(d)
	}

	return fmt.Errorf("share %d not found in dispersal '%s'", shareID, d.ID)
}

// Delete removes a dispersal and its file.
func (s *Store) Delete(id string) error {
	d, err := s.resolve(id)
	if err != nil {
		return err
	}

	if err := wipeFile(s.filename(d)); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	delete(s.dispersals, d.ID)
	return nil
}

// wipeFile overwrites a file with random bytes before removing it.
func wipeFile(filename string) error {
	info, err := os.Stat(filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	noise := make([]byte, info.Size())
	if _, err := rand.Read(noise); err != nil {
		return err
	}
	if err := os.WriteFile(filename, noise, 0600); err != nil {
		return err
	}

	return os.Remove(filename)
}

func (s *Store) resolve(id string) (*Dispersal, error) {
	if d, ok := s.dispersals[id]; ok {
		return d, nil
	}

	var match *Dispersal
	if id != "" {
		for key, d := range s.dispersals {
			if strings.HasPrefix(key, id) {
				if match != nil {
					return nil, fmt.Errorf("dispersal id prefix '%s' is ambiguous", id)
				}
				match = d
			}
		}
	}
	if match == nil {
		return nil, fmt.Errorf("dispersal '%s' not found", id)
	}
	return match, nil
}

func (s *Store) put(d *Dispersal) error {
	sum, err := checksum(d)
	if err != nil {
		return fmt.Errorf("failed to calculate checksum: %w", err)
	}
	d.ChecksumSHA256 = sum
	s.dispersals[d.ID] = d

	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if s.encryption != nil {
		if data, err = s.encryption.seal(data); err != nil {
			return fmt.Errorf("failed to encrypt dispersal: %w", err)
		}
	}

	return os.WriteFile(s.filename(d), data, 0600)
}

func (s *Store) load() error {
	entries, err := os.ReadDir(s.path)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		filename := filepath.Join(s.path, entry.Name())
		if err := s.loadFile(filename); err != nil {
			s.logger.Warn("skipping unreadable dispersal", "file", filename, "error", err)
		}
	}

	return nil
}

func (s *Store) loadFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	if s.encryption != nil {
		if data, err = s.encryption.open(data); err != nil {
			return err
		}
	}

	var d Dispersal
	if err := json.Unmarshal(data, &d); err != nil {
		return err
	}

	sum, err := checksum(&d)
	if err != nil {
		return err
	}
	if !secure.ConstantTimeCompare(sum, d.ChecksumSHA256) {
		return fmt.Errorf("checksum mismatch")
	}

	if filepath.Base(filename) != filepath.Base(s.filename(&d)) {
		return fmt.Errorf("file name does not match dispersal id '%s'", d.ID)
	}

	s.dispersals[d.ID] = &d
	return nil
}

// filename is derived from the ID alone so a record keeps one file across
// renames and overwriting imports.
func (s *Store) filename(d *Dispersal) string {
	return filepath.Join(s.path, d.ID+".json")
}

// checksum hashes the JSON form of d with the checksum field cleared.
func checksum(d *Dispersal) ([]byte, error) {
	temp := *d
	temp.ChecksumSHA256 = nil

	data, err := json.Marshal(temp)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(data)
	return sum[:], nil
}

func hasAllTags(d *Dispersal, tags []string) bool {
	have := make(map[string]bool, len(d.Tags))
	for _, tag := range d.Tags {
		have[strings.ToLower(tag)] = true
	}
	for _, tag := range tags {
		if !have[strings.ToLower(tag)] {
			return false
		}
	}
	return true
}

func matchesQuery(d *Dispersal, query string) bool {
	if strings.Contains(strings.ToLower(d.Name), query) ||
		strings.Contains(strings.ToLower(d.Description), query) {
		return true
	}
	for _, tag := range d.Tags {
		if strings.Contains(strings.ToLower(tag), query) {
			return true
		}
	}
	for key, value := range d.Metadata {
		if strings.Contains(strings.ToLower(key), query) ||
			strings.Contains(strings.ToLower(value), query) {
			return true
		}
	}
	return false
}
