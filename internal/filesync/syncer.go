// Package filesync keeps a local game directory in step with the file list
// published by the launcher backend.
//
// The backend answers GET /list with an object mapping slash-separated
// paths to MD5 hex digests, either bare or wrapped as {"data": {...},
// "meta": {"version": "..."}}. A file is downloaded when it is missing
// locally or its digest differs; downloads are POST /files {"url": path}
// and stream the file body back. Files that are present locally but absent
// from the list are left alone.
package filesync

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	units "github.com/docker/go-units"
	"golang.org/x/sync/errgroup"

	"github.com/limacina/launcher/internal/apiclient"
	"github.com/limacina/launcher/internal/core"
)

// Backend paths, relative to the API base URL.
const (
	ListPath = "/list"
	FilePath = "/files"
)

// DefaultWorkers is the number of concurrent downloads.
const DefaultWorkers = 4

// ErrUnsafePath is returned for list entries that would resolve outside the
// sync root.
var ErrUnsafePath = errors.New("unsafe file path")

// Manifest maps a slash-separated path below the sync root to its MD5 hex
// digest.
type Manifest map[string]string

// ListMeta is the optional meta block of the file list.
type ListMeta struct {
	Version string `json:"version"`
}

// HashMismatchError reports a downloaded file whose digest does not match
// the list.
type HashMismatchError struct {
	File string
	Want string
	Got  string
}

func (e *HashMismatchError) Error() string {
	return fmt.Sprintf("hash mismatch for %s: want %s, got %s", e.File, e.Want, e.Got)
}

// Progress is reported once before downloading (Number 0) and once after
// each completed download.
type Progress struct {
	File   string
	Number int
	Total  int
	Bytes  int64
}

// Result summarizes one Sync run.
type Result struct {
	Version    string
	Checked    int
	Downloaded []string
	Bytes      int64
}

// Syncer synchronizes one root directory against the backend list.
type Syncer struct {
	client     *apiclient.Client
	root       string
	workers    int
	onProgress func(Progress)
	progressMu sync.Mutex
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithWorkers sets the number of concurrent downloads. Values below 1 are
// ignored.
func WithWorkers(n int) Option {
	return func(s *Syncer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithProgress registers a progress callback. Calls are serialized.
func WithProgress(fn func(Progress)) Option {
	return func(s *Syncer) {
		s.onProgress = fn
	}
}

// New creates a Syncer writing below root.
func New(client *apiclient.Client, root string, opts ...Option) (*Syncer, error) {
	if client == nil {
		return nil, fmt.Errorf("API client cannot be nil")
	}
	if root == "" {
		return nil, fmt.Errorf("sync root cannot be empty")
	}
	s := &Syncer{
		client:  client,
		root:    filepath.Clean(root),
		workers: DefaultWorkers,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Root returns the directory files are written into.
func (s *Syncer) Root() string {
	return s.root
}

// FetchManifest retrieves the backend file list.
func (s *Syncer) FetchManifest(ctx context.Context) (Manifest, ListMeta, error) {
	var meta ListMeta

	env, err := s.client.Request(ctx, apiclient.Settings{URL: ListPath})
	if err != nil {
		return nil, meta, fmt.Errorf("failed to fetch file list: %w", err)
	}

	manifest := Manifest{}
	if len(env.Data) > 0 {
		if err := env.DecodeData(&manifest); err != nil {
			return nil, meta, fmt.Errorf("failed to decode file list: %w", err)
		}
		if len(env.Meta) > 0 {
			if err := env.DecodeMeta(&meta); err != nil {
				return nil, meta, fmt.Errorf("failed to decode file list meta: %w", err)
			}
		}
		return manifest, meta, nil
	}

	if err := json.Unmarshal(env.Raw, &manifest); err != nil {
		return nil, meta, fmt.Errorf("failed to decode file list: %w", err)
	}
	return manifest, meta, nil
}

// LocalPath maps a list entry to a path below the root. Entries that are
// empty or contain a ".." segment are rejected.
func (s *Syncer) LocalPath(rel string) (string, error) {
	slashed := strings.TrimLeft(strings.ReplaceAll(rel, `\`, "/"), "/")
	for _, part := range strings.Split(slashed, "/") {
		if part == ".." {
			return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
		}
	}
	clean := path.Clean(slashed)
	if slashed == "" || clean == "." {
		return "", fmt.Errorf("%w: %q", ErrUnsafePath, rel)
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}

// Plan returns the entries that must be downloaded: missing locally or with
// a different digest. The result is sorted.
func (s *Syncer) Plan(m Manifest) ([]string, error) {
	var stale []string
	for rel, want := range m {
		local, err := s.LocalPath(rel)
		if err != nil {
			return nil, err
		}
		got, err := HashFile(local)
		if errors.Is(err, os.ErrNotExist) {
			stale = append(stale, rel)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !strings.EqualFold(got, want) {
			stale = append(stale, rel)
		}
	}
	sort.Strings(stale)
	return stale, nil
}

// Sync fetches the list, plans and downloads every stale file.
func (s *Syncer) Sync(ctx context.Context) (*Result, error) {
	manifest, meta, err := s.FetchManifest(ctx)
	if err != nil {
		return nil, err
	}

	stale, err := s.Plan(manifest)
	if err != nil {
		return nil, err
	}

	result := &Result{Version: meta.Version, Checked: len(manifest)}
	log.Printf("[INFO] sync %s: %d files listed, %d to download", s.root, len(manifest), len(stale))
	s.report(Progress{Total: len(stale)})
	if len(stale) == 0 {
		return result, nil
	}

	var (
		done    atomic.Int32
		written atomic.Int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for _, rel := range stale {
		g.Go(func() error {
			n, err := s.Download(gctx, rel, manifest[rel])
			if err != nil {
				return err
			}
			written.Add(n)
			s.report(Progress{File: rel, Number: int(done.Add(1)), Total: len(stale), Bytes: n})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result.Downloaded = stale
	result.Bytes = written.Load()
	log.Printf("[INFO] sync %s: downloaded %d files (%s)", s.root, len(stale), units.HumanSize(float64(result.Bytes)))
	return result, nil
}

// Download fetches one entry into place. The body is written to a temporary
// file next to the target and renamed once complete. A non-empty want is
// checked against the downloaded digest.
func (s *Syncer) Download(ctx context.Context, rel, want string) (int64, error) {
	local, err := s.LocalPath(rel)
	if err != nil {
		return 0, err
	}
	if err := core.EnsureDir(filepath.Dir(local)); err != nil {
		return 0, err
	}

	resp, err := s.client.Do(ctx, apiclient.Settings{
		URL:  FilePath,
		Type: "POST",
		JSON: map[string]string{"url": rel},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", rel, err)
	}
	defer resp.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(local), "."+filepath.Base(local)+".*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file for %s: %w", rel, err)
	}
	defer os.Remove(tmp.Name())

	hash := md5.New()
	n, err := io.Copy(io.MultiWriter(tmp, hash), resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write %s: %w", rel, err)
	}

	got := hex.EncodeToString(hash.Sum(nil))
	if want != "" && !strings.EqualFold(got, want) {
		return 0, &HashMismatchError{File: rel, Want: want, Got: got}
	}

	if err := os.Rename(tmp.Name(), local); err != nil {
		return 0, fmt.Errorf("failed to move %s into place: %w", rel, err)
	}
	log.Printf("[DEBUG] sync: %s (%s)", rel, units.HumanSize(float64(n)))
	return n, nil
}

// Clean removes the sync root and everything below it.
func (s *Syncer) Clean() error {
	log.Printf("[INFO] sync: removing %s", s.root)
	return core.DeleteDir(s.root)
}

func (s *Syncer) report(p Progress) {
	if s.onProgress == nil {
		return
	}
	s.progressMu.Lock()
	defer s.progressMu.Unlock()
	s.onProgress(p)
}

// HashFile returns the MD5 hex digest of the named file.
func HashFile(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := md5.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", name, err)
	}
	return hex.EncodeToString(hash.Sum(nil)), nil
}
