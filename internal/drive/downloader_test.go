package drive

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRemote struct {
	folders map[string]string
	files   map[string][]*File
	content map[string]string
	failID  string
}

func (r *fakeRemote) ListFiles(_ context.Context, folderID string) ([]*File, error) {
	return r.files[folderID], nil
}

func (r *fakeRemote) DownloadFile(_ context.Context, f *File, w io.Writer) error {
	if f.ID == r.failID {
		return errors.New("boom")
	}
	_, err := io.Copy(w, bytes.NewBufferString(r.content[f.ID]))
	return err
}

func (r *fakeRemote) FindFolderByPath(_ context.Context, path string) (string, error) {
	id, ok := r.folders[path]
	if !ok {
		return "", errors.New("folder not found: " + path)
	}
	return id, nil
}

func TestLocalName(t *testing.T) {
	bases := []string{"clasificacion_abc", "stock_actual"}

	tests := []struct {
		name string
		file *File
		want string
		ok   bool
	}{
		{"exact csv", &File{Name: "clasificacion_abc.csv"}, "clasificacion_abc.csv", true},
		{"upper ext", &File{Name: "stock_actual.XLSX"}, "stock_actual.xlsx", true},
		{"week suffix", &File{Name: "stock_actual_12.csv"}, "stock_actual_12.csv", true},
		{"sheet export", &File{Name: "Clasificacion_ABC", MimeType: spreadsheetMimeType}, "Clasificacion_ABC.xlsx", true},
		{"other dataset", &File{Name: "costes.csv"}, "", false},
		{"prefix without separator", &File{Name: "stock_actualizado.csv"}, "", false},
		{"pdf", &File{Name: "stock_actual.pdf"}, "", false},
		{"folder", &File{Name: "stock_actual", MimeType: folderMimeType}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := localName(tt.file, bases)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFetch(t *testing.T) {
	remote := &fakeRemote{
		folders: map[string]string{"vivero/entradas": "f1"},
		files: map[string][]*File{
			"f1": {
				{ID: "1", Name: "clasificacion_abc.csv"},
				{ID: "2", Name: "costes", MimeType: spreadsheetMimeType},
				{ID: "3", Name: "notas.txt"},
			},
		},
		content: map[string]string{"1": "abc", "2": "xlsx"},
	}
	dir := t.TempDir()

	paths, err := NewDownloader(remote).Fetch(context.Background(), DownloadOptions{
		FolderPath:  "vivero/entradas",
		DownloadDir: dir,
		Bases:       []string{"clasificacion_abc", "costes"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "clasificacion_abc.csv"),
		filepath.Join(dir, "costes.xlsx"),
	}, paths)

	data, err := os.ReadFile(filepath.Join(dir, "clasificacion_abc.csv"))
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestFetchDownloadError(t *testing.T) {
	remote := &fakeRemote{
		files: map[string][]*File{
			"f1": {{ID: "1", Name: "costes.csv"}},
		},
		failID: "1",
	}
	dir := t.TempDir()

	_, err := NewDownloader(remote).Fetch(context.Background(), DownloadOptions{
		FolderID:    "f1",
		DownloadDir: dir,
		Bases:       []string{"costes"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "costes.csv")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetchNeedsDir(t *testing.T) {
	_, err := NewDownloader(&fakeRemote{}).Fetch(context.Background(), DownloadOptions{})
	assert.Error(t, err)
}
