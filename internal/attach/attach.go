// Package attach turns @file: and @image: references in a message into the
// encoded attachments of a chat request.
package attach

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

const (
	FilePrefix  = "@file:"
	ImagePrefix = "@image:"
)

// MaxSize is the largest file that is attached.
const MaxSize = 10 << 20

// Image reads an image and returns it base64 encoded.
func Image(path string) (string, error) {
	data, err := read(path)
	if err != nil {
		return "", err
	}
	if ct := http.DetectContentType(data); !strings.HasPrefix(ct, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, ct)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// File reads a file into an attachment.
func File(path string) (chat.FileAttachment, error) {
	data, err := read(path)
	if err != nil {
		return chat.FileAttachment{}, err
	}
	ct := mime.TypeByExtension(filepath.Ext(path))
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return chat.FileAttachment{
		Name:    filepath.Base(path),
		Type:    ct,
		Content: base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Request builds a send request from text, replacing every attachment
// reference with the encoded attachment. think may be nil.
func Request(text string, think *bool) (*chat.SendRequest, error) {
	req := &chat.SendRequest{Think: think}

	var words []string
	for _, field := range strings.Fields(text) {
		switch {
		case strings.HasPrefix(field, ImagePrefix):
			img, err := Image(strings.TrimPrefix(field, ImagePrefix))
			if err != nil {
				return nil, err
			}
			req.Images = append(req.Images, img)
		case strings.HasPrefix(field, FilePrefix):
			f, err := File(strings.TrimPrefix(field, FilePrefix))
			if err != nil {
				return nil, err
			}
			req.Files = append(req.Files, f)
		default:
			words = append(words, field)
		}
	}

	if len(req.Images) == 0 && len(req.Files) == 0 {
		req.Message = strings.TrimSpace(text)
	} else {
		req.Message = strings.Join(words, " ")
	}
	return req, nil
}

func read(path string) ([]byte, error) {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("attach: %s is a directory", path)
	}
	if info.Size() > MaxSize {
		return nil, fmt.Errorf("attach: %s is larger than %d bytes", path, MaxSize)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("attach: %w", err)
	}
	return data, nil
}
