package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const defaultParallel = 4

// Remote is the part of the Drive API the downloader needs.
type Remote interface {
	ListFiles(ctx context.Context, folderID string) ([]*File, error)
	DownloadFile(ctx context.Context, file *File, w io.Writer) error
	FindFolderByPath(ctx context.Context, path string) (string, error)
}

// DownloadOptions controls how files are pulled from Google Drive.
type DownloadOptions struct {
	// FolderID wins over FolderPath when both are set.
	FolderID    string
	FolderPath  string
	DownloadDir string
	// Bases are the dataset file names without extension. A Drive file is
	// taken when its name is a base or a base followed by "_<suffix>".
	Bases    []string
	Parallel int
}

// Downloader pulls the planning input files from a Drive folder.
type Downloader struct {
	remote Remote
}

func NewDownloader(r Remote) *Downloader {
	return &Downloader{remote: r}
}

// Fetch downloads every CSV, XLSX or Google Sheets file in the folder whose
// name matches one of opts.Bases into DownloadDir. Sheets are exported as
// XLSX. It returns the local paths, sorted.
func (d *Downloader) Fetch(ctx context.Context, opts DownloadOptions) ([]string, error) {
	if opts.DownloadDir == "" {
		return nil, fmt.Errorf("download dir is required")
	}
	if err := os.MkdirAll(opts.DownloadDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create download dir: %w", err)
	}

	folderID := opts.FolderID
	if folderID == "" {
		id, err := d.remote.FindFolderByPath(ctx, opts.FolderPath)
		if err != nil {
			return nil, err
		}
		folderID = id
	}

	files, err := d.remote.ListFiles(ctx, folderID)
	if err != nil {
		return nil, err
	}

	parallel := opts.Parallel
	if parallel <= 0 {
		parallel = defaultParallel
	}

	var (
		mu    sync.Mutex
		paths []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)

	for _, f := range files {
		name, ok := localName(f, opts.Bases)
		if !ok {
			continue
		}
		g.Go(func() error {
			path := filepath.Join(opts.DownloadDir, name)
			if err := d.download(gctx, f, path); err != nil {
				return err
			}
			mu.Lock()
			paths = append(paths, path)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Strings(paths)
	log.Info().
		Str("folder", folderID).
		Int("listed", len(files)).
		Int("downloaded", len(paths)).
		Msg("drive inputs fetched")
	return paths, nil
}

func (d *Downloader) download(ctx context.Context, f *File, path string) error {
	// Write next to the target so a failed transfer never replaces a good file.
	tmp := path + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", tmp, err)
	}
	if err := d.remote.DownloadFile(ctx, f, out); err != nil {
		out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to download %s: %w", f.Name, err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

// localName returns the file name to store f under, or false when f is not
// one of the wanted inputs.
func localName(f *File, bases []string) (string, bool) {
	var stem, ext string
	if f.IsSpreadsheet() {
		stem, ext = f.Name, ".xlsx"
	} else {
		ext = strings.ToLower(filepath.Ext(f.Name))
		if ext != ".csv" && ext != ".xlsx" {
			return "", false
		}
		stem = strings.TrimSuffix(f.Name, filepath.Ext(f.Name))
	}
	if stem == "" || strings.ContainsAny(stem, `/\`) {
		return "", false
	}

	lower := strings.ToLower(stem)
	for _, base := range bases {
		base = strings.ToLower(base)
		if base == "" {
			continue
		}
		if lower == base || strings.HasPrefix(lower, base+"_") {
			return stem + ext, true
		}
	}
	return "", false
}
