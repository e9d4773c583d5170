package acquire

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ExtractZip unpacks archive into destDir. Entries that would land outside
// destDir, including through symlinks, fail the extraction.
func ExtractZip(ctx context.Context, archive, destDir string) error {
	reader, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer reader.Close()

	destDir = filepath.Clean(destDir)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return fmt.Errorf("create dest dir: %w", err)
	}

	for _, file := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := entryPath(destDir, file.Name)
		if err != nil {
			return err
		}
		mode := file.Mode()
		switch {
		case mode.IsDir():
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create directory %s: %w", target, err)
			}
		case mode&os.ModeSymlink != 0:
			if err := extractSymlink(file, destDir, target); err != nil {
				return err
			}
		case mode.IsRegular():
			if err := extractFile(file, target); err != nil {
				return err
			}
		}
	}
	return nil
}

func entryPath(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	if !strings.HasPrefix(target, destDir+string(os.PathSeparator)) {
		return "", fmt.Errorf("illegal file path in archive: %s", name)
	}
	return target, nil
}

func extractFile(file *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s in archive: %w", file.Name, err)
	}
	defer src.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, file.Mode().Perm()|0o600)
	if err != nil {
		return fmt.Errorf("create file %s: %w", target, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return fmt.Errorf("write file %s: %w", target, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close file %s: %w", target, err)
	}
	return nil
}

func extractSymlink(file *zip.File, destDir, target string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open %s in archive: %w", file.Name, err)
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, 4096))
	if err != nil {
		return fmt.Errorf("read link %s: %w", file.Name, err)
	}
	link := string(data)
	resolved := link
	if !filepath.IsAbs(link) {
		resolved = filepath.Join(filepath.Dir(target), link)
	}
	if resolved != destDir && !strings.HasPrefix(resolved, destDir+string(os.PathSeparator)) {
		return fmt.Errorf("illegal link target in archive: %s -> %s", file.Name, link)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create parent dir for %s: %w", target, err)
	}
	if err := os.Symlink(link, target); err != nil {
		return fmt.Errorf("create symlink %s: %w", target, err)
	}
	return nil
}
