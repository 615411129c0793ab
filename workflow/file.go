package workflow

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lepinkainen/videoenhance/video"
)

// SelectedFile is a user-chosen video, either on disk (Path) or already in memory (Data)
type SelectedFile struct {
	Name      string
	MediaType string
	Size      int64
	Path      string
	Data      []byte
}

// FileFromPath describes a local file the way a browser file picker would
func FileFromPath(path string) (SelectedFile, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return SelectedFile{}, fmt.Errorf("file not accessible: %w", err)
	}
	if fi.IsDir() {
		return SelectedFile{}, fmt.Errorf("%s is a directory", path)
	}

	mediaType, err := video.DetectMediaType(path)
	if err != nil {
		return SelectedFile{}, err
	}

	return SelectedFile{
		Name:      filepath.Base(path),
		MediaType: mediaType,
		Size:      fi.Size(),
		Path:      path,
	}, nil
}

// Info drops the contents
func (f SelectedFile) Info() FileInfo {
	return FileInfo{Name: f.Name, MediaType: f.MediaType, Size: f.Size}
}

// ReadAll loads the whole file, it is kept as the original side of the comparison
func (f SelectedFile) ReadAll() ([]byte, error) {
	if f.Data != nil || f.Path == "" {
		return f.Data, nil
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
	}
	return data, nil
}
