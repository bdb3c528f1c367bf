package staging

import (
	"bytes"
	"mime/multipart"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageBytes_NamingAndContent(t *testing.T) {
	stager, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := stager.StageBytes("floor plan.jpg", []byte("image-bytes"))
	require.NoError(t, err)

	assert.Regexp(t, regexp.MustCompile(`^floor plan_[0-9a-f]{8}\.jpg$`), filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("image-bytes"), data)
}

func TestStageBytes_SameNameNeverCollides(t *testing.T) {
	stager, err := New(t.TempDir())
	require.NoError(t, err)

	a, err := stager.StageBytes("plan.pdf", []byte("one"))
	require.NoError(t, err)
	b, err := stager.StageBytes("plan.pdf", []byte("two"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestStage_FromMultipartUpload(t *testing.T) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("files", "site.pdf")
	require.NoError(t, err)
	_, err = part.Write([]byte("%PDF-1.4"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	reader := multipart.NewReader(&buf, w.Boundary())
	form, err := reader.ReadForm(1 << 20)
	require.NoError(t, err)
	defer form.RemoveAll()

	stager, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := stager.Stage(form.File["files"][0])
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestCleanup_RemovesStagedFiles(t *testing.T) {
	stager, err := New(t.TempDir())
	require.NoError(t, err)

	path, err := stager.StageBytes("plan.jpg", []byte("x"))
	require.NoError(t, err)

	stager.Cleanup([]string{path, ""})

	// Removal happens in the background.
	assert.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return os.IsNotExist(err)
	}, time.Second, 10*time.Millisecond)
}

func TestNew_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "uploads")
	stager, err := New(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, stager.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
