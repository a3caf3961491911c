package uploads

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	FolderResumes  = "career_mentor_resumes"
	FolderPayoutQR = "career_mentor_payout_qr"
	FolderReceipts = "career_mentor_receipts"
)

var allowedFolders = map[string]bool{
	FolderResumes:  true,
	FolderPayoutQR: true,
}

var ErrUnknownFolder = errors.New("unknown upload folder")

type Storage struct {
	cld    *cloudinary.Cloudinary
	secret string
	now    func() time.Time
}

// UploadSignature lets a browser upload straight to Cloudinary.
type UploadSignature struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
	Folder    string `json:"folder"`
}

func NewStorage(cloudinaryURL string) (*Storage, error) {
	cld, err := cloudinary.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("init cloudinary: %w", err)
	}
	parsedURL, err := url.Parse(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("parse cloudinary url: %w", err)
	}
	secret, _ := parsedURL.User.Password()
	return &Storage{cld: cld, secret: secret, now: time.Now}, nil
}

// SignUpload signs an upload into one of the client-facing folders.
func (s *Storage) SignUpload(folder string) (*UploadSignature, error) {
	if !allowedFolders[folder] {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFolder, folder)
	}

	paramsToSign, err := api.StructToParams(uploader.UploadParams{Folder: folder})
	if err != nil {
		return nil, fmt.Errorf("prepare signature params: %w", err)
	}
	timestamp := s.now().Unix()
	paramsToSign.Set("timestamp", strconv.FormatInt(timestamp, 10))

	signature, err := api.SignParameters(paramsToSign, s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign upload params: %w", err)
	}

	return &UploadSignature{
		Signature: signature,
		Timestamp: timestamp,
		APIKey:    s.cld.Config.Cloud.APIKey,
		CloudName: s.cld.Config.Cloud.CloudName,
		Folder:    folder,
	}, nil
}

// UploadRaw stores a non-image file and returns its secure URL.
func (s *Storage) UploadRaw(ctx context.Context, data []byte, folder, publicID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	result, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:     publicID,
		Folder:       folder,
		ResourceType: "raw",
	})
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary upload: %s", result.Error.Message)
	}
	return result.SecureURL, nil
}
