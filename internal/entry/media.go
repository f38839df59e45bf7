package entry

import (
	"io"
	"os"
	"path"
	"path/filepath"

	"takeoutmerge/internal/constants"
	"takeoutmerge/internal/errors"
	"takeoutmerge/internal/security"
)

func (e *Entry) persistMedia(opts SaveOptions) error {
	if err := security.ValidateFileName(e.Name); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid media name")
	}

	dir := opts.Directory(e)
	if err := security.ValidateFileName(dir); err != nil {
		return errors.Wrap(err, errors.ErrCodeInvalidInput, "invalid conversation directory")
	}

	outputMediaDir := filepath.Join(opts.OutputDir, dir, constants.MediaDirName)
	outputPath := filepath.Join(outputMediaDir, e.Name)

	if err := os.MkdirAll(outputMediaDir, 0750); err != nil {
		return errors.NewIOError("create media directory", outputMediaDir, err)
	}
	if err := copyFile(e.FullPath, outputPath); err != nil {
		return errors.NewIOError("copy media", e.FullPath, err)
	}

	// HTML references use forward slashes on every platform
	e.RelativePath = path.Join(constants.MediaDirName, e.Name)
	e.SavedPath = outputPath
	return nil
}

func copyFile(src, dst string) error {
	if err := security.ValidateFilePath(src); err != nil {
		return err
	}

	srcFile, err := os.Open(src) // #nosec G304 - Path validated above
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		dstFile.Close()
		return err
	}
	return dstFile.Close()
}
