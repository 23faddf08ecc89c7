// Package attachment stores files uploaded for documents on the local disk.
package attachment

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"gorm.io/gorm"

	"github.com/ync-lab/intranet/dao/model"
	"github.com/ync-lab/intranet/pkg/logutils"
	"github.com/ync-lab/intranet/pkg/workflow"
)

// MaxFileSize is the largest accepted upload in bytes
const MaxFileSize int64 = 10 << 20

var allowedExtensions = []string{
	"pdf", "doc", "docx", "xls", "xlsx", "ppt", "pptx",
	"jpg", "jpeg", "png", "gif", "zip", "txt",
}

type Store interface {
	Create(ctx context.Context, a *model.Attachment) error
	Get(ctx context.Context, id uint) (*model.Attachment, error)
	ListByDocument(ctx context.Context, documentID uint) ([]*model.Attachment, error)
	Delete(ctx context.Context, id uint) error
}

type Service struct {
	store Store
	dir   string
}

func NewService(store Store, dir string) *Service {
	return &Service{store: store, dir: dir}
}

// extension returns the lowercase extension of an allowed file name
func extension(name string) (string, error) {
	idx := strings.LastIndex(name, ".")
	if idx <= 0 || idx == len(name)-1 {
		return "", fmt.Errorf("file name %q has no extension: %w", name, workflow.ErrInvalidInput)
	}
	ext := strings.ToLower(name[idx+1:])
	if !lo.Contains(allowedExtensions, ext) {
		return "", fmt.Errorf("file type %q is not allowed: %w", ext, workflow.ErrInvalidInput)
	}
	return ext, nil
}

// Upload writes the file under the upload directory as <uuid>_<name> and records it
func (s *Service) Upload(ctx context.Context, documentID, uploaderID uint, name string, size int64, r io.Reader) (*model.Attachment, error) {
	// 1. Validate the file
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch {
	case size <= 0:
		return nil, fmt.Errorf("file is empty: %w", workflow.ErrInvalidInput)
	case size > MaxFileSize:
		return nil, fmt.Errorf("file exceeds %d bytes: %w", MaxFileSize, workflow.ErrInvalidInput)
	}
	ext, err := extension(name)
	if err != nil {
		return nil, err
	}

	// 2. Store it on disk
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	storedName := uuid.NewString() + "_" + name
	path, err := filepath.Abs(filepath.Join(s.dir, storedName))
	if err != nil {
		return nil, fmt.Errorf("resolve upload path: %w", err)
	}
	written, err := writeFile(path, r)
	if err != nil {
		return nil, err
	}

	// 3. Record the metadata
	a := &model.Attachment{
		DocumentID: documentID,
		FileName:   name,
		StoredName: storedName,
		FilePath:   path,
		FileSize:   written,
		FileType:   ext,
		UploadedBy: uploaderID,
	}
	if err := s.store.Create(ctx, a); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("create attachment: %w", err)
	}
	logutils.Log.WithFields(logutils.Fields{
		"attachmentID": a.ID,
		"documentID":   documentID,
		"size":         written,
	}).Info("attachment uploaded")
	return a, nil
}

// writeFile copies at most MaxFileSize bytes and removes the file when the body is larger
func writeFile(path string, r io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	written, err := io.Copy(f, io.LimitReader(r, MaxFileSize+1))
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written > MaxFileSize {
		err = fmt.Errorf("file exceeds %d bytes: %w", MaxFileSize, workflow.ErrInvalidInput)
	}
	if err != nil {
		_ = os.Remove(path)
		return 0, err
	}
	return written, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*model.Attachment, error) {
	a, err := s.store.Get(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("attachment %d: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get attachment %d: %w", id, err)
	}
	return a, nil
}

// Open returns the attachment and its content. The caller closes the file.
func (s *Service) Open(ctx context.Context, id uint) (*model.Attachment, *os.File, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	f, err := os.Open(a.FilePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil, fmt.Errorf("file of attachment %d is missing: %w", id, workflow.ErrNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("open attachment %d: %w", id, err)
	}
	return a, f, nil
}

func (s *Service) ListByDocument(ctx context.Context, documentID uint) ([]*model.Attachment, error) {
	return s.store.ListByDocument(ctx, documentID)
}

// Delete removes an attachment of the uploader together with its file
func (s *Service) Delete(ctx context.Context, id, memberID uint) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if a.UploadedBy != memberID {
		return fmt.Errorf("attachment %d was uploaded by another member: %w", id, workflow.ErrForbidden)
	}
	return s.remove(ctx, a)
}

// DeleteByDocument removes every attachment of a deleted document
func (s *Service) DeleteByDocument(ctx context.Context, documentID uint) error {
	attachments, err := s.store.ListByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("list attachments of document %d: %w", documentID, err)
	}
	for _, a := range attachments {
		if err := s.remove(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) remove(ctx context.Context, a *model.Attachment) error {
	if err := os.Remove(a.FilePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file of attachment %d: %w", a.ID, err)
	}
	if err := s.store.Delete(ctx, a.ID); err != nil {
		return fmt.Errorf("delete attachment %d: %w", a.ID, err)
	}
	logutils.Log.WithFields(logutils.Fields{"attachmentID": a.ID, "documentID": a.DocumentID}).Info("attachment deleted")
	return nil
}
