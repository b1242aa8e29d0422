package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/kasapp/kas-backend/internal/domain"
	"github.com/kasapp/kas-backend/internal/repository/storage"
)

const (
	MaxReceiptSize  = 5 * 1024 * 1024 // 5MB
	ReceiptMaxWidth = 1600
	JPEGQuality     = 85
	receiptURLTTL   = 15 * time.Minute
)

var (
	ErrReceiptTooLarge          = errors.New("file too large. Maximum size is 5MB")
	ErrReceiptInvalidFormat     = errors.New("invalid format. Supported: JPEG, PNG, WebP")
	ErrReceiptInvalidImageData  = errors.New("invalid image data")
	ErrReceiptStorageNotEnabled = errors.New("receipt storage not configured")
)

// allowedReceiptExtensions maps extensions to content types
var allowedReceiptExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// ReceiptService attaches receipt images to transactions. Images are
// re-encoded to JPEG, downscaled when wider than ReceiptMaxWidth, and stored
// under a per-user key; the key lives on the transaction row.
type ReceiptService struct {
	storage         storage.ReceiptRepository
	transactionRepo domain.TransactionRepository
}

func NewReceiptService(storage storage.ReceiptRepository, transactionRepo domain.TransactionRepository) *ReceiptService {
	return &ReceiptService{storage: storage, transactionRepo: transactionRepo}
}

// IsEnabled indicates whether uploads are supported (storage configured).
func (s *ReceiptService) IsEnabled() bool {
	return s != nil && s.storage != nil
}

func (s *ReceiptService) validateAndDecode(data []byte, filename string) (image.Image, error) {
	if len(data) > MaxReceiptSize {
		return nil, ErrReceiptTooLarge
	}
	ext := strings.ToLower(filepath.Ext(filename))
	if _, ok := allowedReceiptExtensions[ext]; !ok {
		return nil, ErrReceiptInvalidFormat
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, ErrReceiptInvalidImageData
	}
	return img, nil
}

// Upload attaches a receipt image to the transaction, replacing any existing
// one.
func (s *ReceiptService) Upload(ctx context.Context, userID string, transactionID uuid.UUID, data []byte, filename string) (string, error) {
	if !s.IsEnabled() {
		return "", ErrReceiptStorageNotEnabled
	}

	t, err := s.transactionRepo.GetByID(ctx, userID, transactionID)
	if err != nil {
		return "", err
	}

	img, err := s.validateAndDecode(data, filename)
	if err != nil {
		return "", err
	}

	if img.Bounds().Dx() > ReceiptMaxWidth {
		img = imaging.Resize(img, ReceiptMaxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}

	key := fmt.Sprintf("receipts/%s/%s.jpg", userID, transactionID)
	if _, err := s.storage.Upload(ctx, key, bytes.NewReader(buf.Bytes()), "image/jpeg", int64(buf.Len())); err != nil {
		return "", fmt.Errorf("failed to upload receipt: %w", err)
	}

	if err := s.transactionRepo.SetReceiptKey(ctx, userID, t.ID, &key); err != nil {
		return "", err
	}
	return key, nil
}

// URL returns a short-lived presigned URL for the transaction's receipt.
func (s *ReceiptService) URL(ctx context.Context, userID string, transactionID uuid.UUID) (string, error) {
	if !s.IsEnabled() {
		return "", ErrReceiptStorageNotEnabled
	}
	t, err := s.transactionRepo.GetByID(ctx, userID, transactionID)
	if err != nil {
		return "", err
	}
	if t.ReceiptKey == nil {
		return "", domain.ErrNotFound
	}
	return s.storage.GeneratePresignedURL(ctx, *t.ReceiptKey, receiptURLTTL)
}

// Delete removes the transaction's receipt from storage and clears the key.
func (s *ReceiptService) Delete(ctx context.Context, userID string, transactionID uuid.UUID) error {
	if !s.IsEnabled() {
		return ErrReceiptStorageNotEnabled
	}
	t, err := s.transactionRepo.GetByID(ctx, userID, transactionID)
	if err != nil {
		return err
	}
	if t.ReceiptKey == nil {
		return nil
	}
	if err := s.storage.Delete(ctx, *t.ReceiptKey); err != nil {
		return err
	}
	return s.transactionRepo.SetReceiptKey(ctx, userID, t.ID, nil)
}
