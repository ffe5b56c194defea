package attach

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/laundryguy77/PeanutChat-sub001/sdk/chat"
)

// 1x1 transparent png
var pixel = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0a, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x00, 0x01, 0x00, 0x00,
	0x05, 0x00, 0x01, 0x0d, 0x0a, 0x2d, 0xb4, 0x00, 0x00, 0x00, 0x00, 0x49,
	0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

func TestRequestPlainText(t *testing.T) {
	req, err := Request("  hello   world ", chat.Bool(true))
	require.NoError(t, err)
	assert.Equal(t, "hello   world", req.Message)
	assert.Empty(t, req.Images)
	assert.Empty(t, req.Files)
	require.NotNil(t, req.Think)
	assert.True(t, *req.Think)
}

func TestRequestWithAttachments(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "dot.png")
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(img, pixel, 0644))
	require.NoError(t, os.WriteFile(notes, []byte("remember the milk"), 0644))

	req, err := Request("what is in "+ImagePrefix+img+" and "+FilePrefix+notes+" ?", nil)
	require.NoError(t, err)

	assert.Equal(t, "what is in and ?", req.Message)
	require.Len(t, req.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(pixel), req.Images[0])
	require.Len(t, req.Files, 1)
	assert.Equal(t, "notes.txt", req.Files[0].Name)
	assert.Contains(t, req.Files[0].Type, "text/plain")
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("remember the milk")), req.Files[0].Content)
	assert.Nil(t, req.Think)
}

func TestAttachmentErrors(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("plain text"), 0644))

	_, err := Request(ImagePrefix+notes, nil)
	assert.ErrorContains(t, err, "not an image")

	_, err = Request(FilePrefix+filepath.Join(dir, "missing.txt"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Request(FilePrefix+dir, nil)
	assert.ErrorContains(t, err, "is a directory")
}
